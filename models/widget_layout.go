package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WidgetLayout is the position and size of one widget on a user's dashboard grid
type WidgetLayout struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string `gorm:"type:uuid;not null;index" json:"-"`
	UserID         string `gorm:"type:uuid;not null;index" json:"-"`

	WidgetType string `gorm:"not null" json:"widget_type"`
	X          int    `gorm:"not null;default:0" json:"x"`
	Y          int    `gorm:"not null;default:0" json:"y"`
	W          int    `gorm:"not null;default:1" json:"w"`
	H          int    `gorm:"not null;default:1" json:"h"`
	Config     string `gorm:"type:text" json:"config,omitempty"` // widget specific JSON
}

func (w *WidgetLayout) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

func (WidgetLayout) TableName() string {
	return "widget_layouts"
}

// Overlaps reports whether two widgets share at least one grid cell
func (w WidgetLayout) Overlaps(o WidgetLayout) bool {
	return w.X < o.X+o.W && o.X < w.X+w.W && w.Y < o.Y+o.H && o.Y < w.Y+w.H
}

// DashboardFilter holds the global filters applied to every widget of a user's dashboard,
// one row per organization and user
type DashboardFilter struct {
	OrganizationID string    `gorm:"type:uuid;primarykey" json:"-"`
	UserID         string    `gorm:"type:uuid;primarykey" json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`

	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	ProjectID *string    `gorm:"type:uuid" json:"project_id,omitempty"`
	CompanyID *string    `gorm:"type:uuid" json:"company_id,omitempty"`
}

func (DashboardFilter) TableName() string {
	return "dashboard_filters"
}
