package services

import (
	"fmt"
	"math"
	"strings"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// BudgetLineInput is the editable part of a budget line
type BudgetLineInput struct {
	Category      string  `json:"category"`
	Label         string  `json:"label"`
	PlannedAmount float64 `json:"planned_amount"`
	ActualAmount  float64 `json:"actual_amount"`
}

// Validate normalizes the category and checks amounts
func (in *BudgetLineInput) Validate() error {
	in.Label = strings.TrimSpace(in.Label)
	in.Category = strings.ToUpper(strings.TrimSpace(in.Category))
	if in.Category == "" {
		in.Category = models.BudgetCategoryOther
	}

	v := &ValidationError{}
	requireField(v, "label", in.Label)
	checkNonNegative(v, "planned_amount", in.PlannedAmount)
	checkNonNegative(v, "actual_amount", in.ActualAmount)
	if !models.IsValidBudgetCategory(in.Category) {
		v.Add("category", "validation.budget_category")
	}
	return v.OrNil()
}

// ListBudgetLines returns the budget lines of a project
func ListBudgetLines(db *gorm.DB, organizationID, projectID string) ([]models.BudgetLine, error) {
	var lines []models.BudgetLine
	err := db.Where("organization_id = ? AND project_id = ?", organizationID, projectID).
		Order("category ASC, label ASC").
		Find(&lines).Error
	return lines, err
}

// GetBudgetLine loads a budget line of the organization
func GetBudgetLine(db *gorm.DB, organizationID, lineID string) (*models.BudgetLine, error) {
	var line models.BudgetLine
	if err := db.Where("organization_id = ? AND id = ?", organizationID, lineID).First(&line).Error; err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// CreateBudgetLine adds a line to a project budget
func CreateBudgetLine(db *gorm.DB, organizationID, projectID string, in BudgetLineInput) (*models.BudgetLine, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.Project{}).Where("organization_id = ? AND id = ?", organizationID, projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	line := &models.BudgetLine{
		OrganizationID: organizationID,
		ProjectID:      projectID,
		Category:       in.Category,
		Label:          in.Label,
		PlannedAmount:  in.PlannedAmount,
		ActualAmount:   in.ActualAmount,
	}
	if err := db.Create(line).Error; err != nil {
		return nil, fmt.Errorf("failed to create budget line: %w", err)
	}
	return line, nil
}

// UpdateBudgetLine replaces the editable fields of a budget line
func UpdateBudgetLine(db *gorm.DB, organizationID, lineID string, in BudgetLineInput) (*models.BudgetLine, error) {
	line, err := GetBudgetLine(db, organizationID, lineID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	line.Category = in.Category
	line.Label = in.Label
	line.PlannedAmount = in.PlannedAmount
	line.ActualAmount = in.ActualAmount
	if err := db.Save(line).Error; err != nil {
		return nil, fmt.Errorf("failed to update budget line: %w", err)
	}
	return line, nil
}

// DeleteBudgetLine removes a budget line
func DeleteBudgetLine(db *gorm.DB, organizationID, lineID string) error {
	line, err := GetBudgetLine(db, organizationID, lineID)
	if err != nil {
		return err
	}
	return db.Delete(line).Error
}

// CategoryBudget is the planned/actual pair of one budget category
type CategoryBudget struct {
	Category string  `json:"category"`
	Planned  float64 `json:"planned"`
	Actual   float64 `json:"actual"`
}

// BudgetSummary compares the planned budget of a project with what was spent
type BudgetSummary struct {
	ProjectID          string           `json:"project_id"`
	ProjectCode        string           `json:"project_code"`
	ProjectName        string           `json:"project_name"`
	Budget             float64          `json:"budget"`
	Planned            float64          `json:"planned"`
	Actual             float64          `json:"actual"`
	LabourHours        float64          `json:"labour_hours"`
	LabourCost         float64          `json:"labour_cost"`
	Spent              float64          `json:"spent"`
	Variance           float64          `json:"variance"`
	ConsumptionPercent float64          `json:"consumption_percent"`
	OverBudget         bool             `json:"over_budget"`
	ByCategory         []CategoryBudget `json:"by_category"`
}

// GetBudgetSummary computes the budget of a project. Spent is the actual amounts of the
// budget lines plus the labour of approved timesheets at the employees' hourly cost.
// The reference is the project budget, or the sum of planned lines when no budget is set.
func GetBudgetSummary(db *gorm.DB, organizationID, projectID string) (*BudgetSummary, error) {
	var project models.Project
	if err := db.Where("organization_id = ? AND id = ?", organizationID, projectID).First(&project).Error; err != nil {
		return nil, notFound(err)
	}
	lines, err := ListBudgetLines(db, organizationID, projectID)
	if err != nil {
		return nil, err
	}

	var labour struct {
		Hours float64
		Cost  float64
	}
	err = db.Table("timesheets").
		Select("COALESCE(SUM(timesheets.hours), 0) AS hours, COALESCE(SUM(timesheets.hours * employees.hourly_cost), 0) AS cost").
		Joins("JOIN employees ON employees.id = timesheets.employee_id").
		Where("timesheets.organization_id = ? AND timesheets.project_id = ? AND timesheets.status = ? AND timesheets.deleted_at IS NULL",
			organizationID, projectID, models.TimesheetStatusApproved).
		Scan(&labour).Error
	if err != nil {
		return nil, err
	}

	summary := &BudgetSummary{
		ProjectID:   projectID,
		ProjectCode: project.Code,
		ProjectName: project.Name,
		Budget:      project.Budget,
		Planned:     lo.SumBy(lines, func(l models.BudgetLine) float64 { return l.PlannedAmount }),
		Actual:      lo.SumBy(lines, func(l models.BudgetLine) float64 { return l.ActualAmount }),
		LabourHours: labour.Hours,
		LabourCost:  models.RoundCents(labour.Cost),
	}

	grouped := lo.GroupBy(lines, func(l models.BudgetLine) string { return l.Category })
	for _, category := range models.BudgetCategories {
		group, ok := grouped[category]
		if !ok && category != models.BudgetCategoryLabour {
			continue
		}
		cb := CategoryBudget{
			Category: category,
			Planned:  lo.SumBy(group, func(l models.BudgetLine) float64 { return l.PlannedAmount }),
			Actual:   lo.SumBy(group, func(l models.BudgetLine) float64 { return l.ActualAmount }),
		}
		if category == models.BudgetCategoryLabour {
			cb.Actual += summary.LabourCost
			if !ok && cb.Actual == 0 {
				continue
			}
		}
		summary.ByCategory = append(summary.ByCategory, cb)
	}

	reference := summary.Budget
	if reference == 0 {
		reference = summary.Planned
	}
	summary.Spent = models.RoundCents(summary.Actual + summary.LabourCost)
	summary.Variance = models.RoundCents(reference - summary.Spent)
	summary.OverBudget = summary.Variance < 0
	if reference > 0 {
		summary.ConsumptionPercent = math.Round(summary.Spent/reference*1000) / 10
	}
	return summary, nil
}
