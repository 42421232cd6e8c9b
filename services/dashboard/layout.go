// Package dashboard stores the per-user widget grid and computes widget data.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// GridColumns is the width of the dashboard grid
const GridColumns = 12

// MaxWidgets caps the number of widgets on one dashboard
const MaxWidgets = 24

// Widget types
const (
	WidgetKPIRevenue         = "kpi_revenue"
	WidgetKPIPipeline        = "kpi_pipeline"
	WidgetCashBalance        = "cash_balance"
	WidgetCashflowChart      = "cashflow_chart"
	WidgetUpcomingDeadlines  = "upcoming_deadlines"
	WidgetProjectBudgets     = "project_budgets"
	WidgetTimesheetHours     = "timesheet_hours"
	WidgetRecentTransactions = "recent_transactions"
)

// WidgetTypes lists the widget types in catalogue order
var WidgetTypes = []string{
	WidgetKPIRevenue,
	WidgetKPIPipeline,
	WidgetCashBalance,
	WidgetCashflowChart,
	WidgetUpcomingDeadlines,
	WidgetProjectBudgets,
	WidgetTimesheetHours,
	WidgetRecentTransactions,
}

type size struct{ W, H int }

// default size of a newly added widget
var defaultSizes = map[string]size{
	WidgetKPIRevenue:         {3, 2},
	WidgetKPIPipeline:        {3, 2},
	WidgetCashBalance:        {3, 2},
	WidgetCashflowChart:      {6, 4},
	WidgetUpcomingDeadlines:  {6, 4},
	WidgetProjectBudgets:     {6, 4},
	WidgetTimesheetHours:     {3, 2},
	WidgetRecentTransactions: {6, 4},
}

// IsKnownWidget reports whether t is a widget type the dashboard can render
func IsKnownWidget(t string) bool {
	return lo.Contains(WidgetTypes, t)
}

// DefaultLayout is the dashboard a user gets before customizing it
func DefaultLayout() []models.WidgetLayout {
	return []models.WidgetLayout{
		{WidgetType: WidgetKPIRevenue, X: 0, Y: 0, W: 3, H: 2},
		{WidgetType: WidgetKPIPipeline, X: 3, Y: 0, W: 3, H: 2},
		{WidgetType: WidgetCashBalance, X: 6, Y: 0, W: 3, H: 2},
		{WidgetType: WidgetTimesheetHours, X: 9, Y: 0, W: 3, H: 2},
		{WidgetType: WidgetCashflowChart, X: 0, Y: 2, W: 8, H: 4},
		{WidgetType: WidgetUpcomingDeadlines, X: 8, Y: 2, W: 4, H: 4},
		{WidgetType: WidgetProjectBudgets, X: 0, Y: 6, W: 6, H: 4},
		{WidgetType: WidgetRecentTransactions, X: 6, Y: 6, W: 6, H: 4},
	}
}

// ValidateLayout checks widget types, bounds and id uniqueness of a whole layout
func ValidateLayout(layouts []models.WidgetLayout) error {
	v := &services.ValidationError{}
	if len(layouts) > MaxWidgets {
		v.Add("widgets", "validation.too_many_widgets")
	}
	seen := make(map[string]bool, len(layouts))
	for i, w := range layouts {
		field := fmt.Sprintf("widgets.%d", i)
		if err := validateWidget(w); err != "" {
			v.Add(field, err)
			continue
		}
		if w.ID != "" {
			if seen[w.ID] {
				v.Add(field+".id", "validation.duplicate_widget")
			}
			seen[w.ID] = true
		}
	}
	return v.OrNil()
}

func validateWidget(w models.WidgetLayout) string {
	switch {
	case !IsKnownWidget(w.WidgetType):
		return "validation.widget_type"
	case w.W < 1 || w.H < 1 || w.X < 0 || w.Y < 0 || w.X+w.W > GridColumns:
		return "validation.widget_bounds"
	case w.Config != "" && !json.Valid([]byte(w.Config)):
		return "validation.widget_config"
	}
	return ""
}

func sortLayout(layouts []models.WidgetLayout) {
	sort.SliceStable(layouts, func(i, j int) bool {
		if layouts[i].Y != layouts[j].Y {
			return layouts[i].Y < layouts[j].Y
		}
		return layouts[i].X < layouts[j].X
	})
}

func loadLayout(db *gorm.DB, organizationID, userID string) ([]models.WidgetLayout, error) {
	var layouts []models.WidgetLayout
	err := db.Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Order("y ASC, x ASC").
		Find(&layouts).Error
	return layouts, err
}

// replaceLayout swaps the stored layout of a user for the given widgets
func replaceLayout(tx *gorm.DB, organizationID, userID string, layouts []models.WidgetLayout) ([]models.WidgetLayout, error) {
	var owned []string
	if err := tx.Model(&models.WidgetLayout{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Pluck("id", &owned).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("organization_id = ? AND user_id = ?", organizationID, userID).Delete(&models.WidgetLayout{}).Error; err != nil {
		return nil, err
	}
	saved := make([]models.WidgetLayout, 0, len(layouts))
	for _, w := range layouts {
		// client ids survive only for widgets this user already had
		if !lo.Contains(owned, w.ID) {
			w.ID = ""
		}
		saved = append(saved, models.WidgetLayout{
			ID:             w.ID,
			OrganizationID: organizationID,
			UserID:         userID,
			WidgetType:     w.WidgetType,
			X:              w.X,
			Y:              w.Y,
			W:              w.W,
			H:              w.H,
			Config:         w.Config,
		})
	}
	if len(saved) > 0 {
		if err := tx.Create(&saved).Error; err != nil {
			return nil, fmt.Errorf("failed to save layout: %w", err)
		}
	}
	sortLayout(saved)
	return saved, nil
}

// GetLayout returns the saved layout of a user. The default layout is stored on first access,
// and again whenever the user has removed every widget, so widgets always have stable ids.
func GetLayout(db *gorm.DB, organizationID, userID string) ([]models.WidgetLayout, error) {
	layouts, err := loadLayout(db, organizationID, userID)
	if err != nil || len(layouts) > 0 {
		return layouts, err
	}
	return replaceLayout(db, organizationID, userID, DefaultLayout())
}

// SaveLayout replaces the whole layout of a user. Last write wins.
func SaveLayout(db *gorm.DB, organizationID, userID string, layouts []models.WidgetLayout) ([]models.WidgetLayout, error) {
	if err := ValidateLayout(layouts); err != nil {
		return nil, err
	}
	var saved []models.WidgetLayout
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = replaceLayout(tx, organizationID, userID, layouts)
		return err
	})
	return saved, err
}

// ResetLayout drops the customized layout and stores the default one again
func ResetLayout(db *gorm.DB, organizationID, userID string) ([]models.WidgetLayout, error) {
	var saved []models.WidgetLayout
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = replaceLayout(tx, organizationID, userID, DefaultLayout())
		return err
	})
	return saved, err
}

// WidgetPatch moves, resizes or reconfigures one widget. Nil fields are left unchanged.
type WidgetPatch struct {
	X      *int    `json:"x"`
	Y      *int    `json:"y"`
	W      *int    `json:"w"`
	H      *int    `json:"h"`
	Config *string `json:"config"`
}

func getWidget(db *gorm.DB, organizationID, userID, widgetID string) (*models.WidgetLayout, error) {
	var w models.WidgetLayout
	err := db.Where("organization_id = ? AND user_id = ? AND id = ?", organizationID, userID, widgetID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// UpdateWidget applies a drag or resize to one widget
func UpdateWidget(db *gorm.DB, organizationID, userID, widgetID string, patch WidgetPatch) (*models.WidgetLayout, error) {
	w, err := getWidget(db, organizationID, userID, widgetID)
	if err != nil {
		return nil, err
	}
	if patch.X != nil {
		w.X = *patch.X
	}
	if patch.Y != nil {
		w.Y = *patch.Y
	}
	if patch.W != nil {
		w.W = *patch.W
	}
	if patch.H != nil {
		w.H = *patch.H
	}
	if patch.Config != nil {
		w.Config = *patch.Config
	}
	if msg := validateWidget(*w); msg != "" {
		return nil, services.NewValidationError("widget", msg)
	}
	if err := db.Model(w).Select("x", "y", "w", "h", "config").Updates(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// FirstFreeSlot finds the top-most, then left-most position where a w×h widget
// fits without overlapping the existing ones
func FirstFreeSlot(layouts []models.WidgetLayout, w, h int) (int, int) {
	for y := 0; ; y++ {
		for x := 0; x+w <= GridColumns; x++ {
			candidate := models.WidgetLayout{X: x, Y: y, W: w, H: h}
			if !lo.SomeBy(layouts, candidate.Overlaps) {
				return x, y
			}
		}
	}
}

// AddWidget appends a widget of the given type at the first free slot
func AddWidget(db *gorm.DB, organizationID, userID, widgetType, config string) (*models.WidgetLayout, error) {
	if !IsKnownWidget(widgetType) {
		return nil, services.NewValidationError("widget_type", "validation.widget_type")
	}
	if config != "" && !json.Valid([]byte(config)) {
		return nil, services.NewValidationError("config", "validation.widget_config")
	}
	layouts, err := GetLayout(db, organizationID, userID)
	if err != nil {
		return nil, err
	}
	if len(layouts) >= MaxWidgets {
		return nil, services.NewValidationError("widgets", "validation.too_many_widgets")
	}

	sz := defaultSizes[widgetType]
	x, y := FirstFreeSlot(layouts, sz.W, sz.H)
	w := &models.WidgetLayout{
		OrganizationID: organizationID,
		UserID:         userID,
		WidgetType:     widgetType,
		X:              x,
		Y:              y,
		W:              sz.W,
		H:              sz.H,
		Config:         config,
	}
	if err := db.Create(w).Error; err != nil {
		return nil, fmt.Errorf("failed to add widget: %w", err)
	}
	return w, nil
}

// RemoveWidget deletes one widget of a user's layout
func RemoveWidget(db *gorm.DB, organizationID, userID, widgetID string) error {
	w, err := getWidget(db, organizationID, userID, widgetID)
	if err != nil {
		return err
	}
	return db.Delete(w).Error
}
