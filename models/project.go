package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project status constants
const (
	ProjectStatusPlanned   = "PLANNED"
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusOnHold    = "ON_HOLD"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusCancelled = "CANCELLED"
)

type Project struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_project_org_code;index:idx_project_org_status" json:"organization_id"`

	Code        string     `gorm:"not null;uniqueIndex:idx_project_org_code" json:"code"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"` // sanitized HTML
	Status      string     `gorm:"not null;default:PLANNED;index:idx_project_org_status" json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Budget      float64    `gorm:"not null;default:0" json:"budget"`

	CompanyID *string  `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ManagerID *string  `gorm:"type:uuid" json:"manager_id,omitempty"`
	Manager   *User    `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`

	Deadlines   []Deadline   `gorm:"foreignKey:ProjectID" json:"deadlines,omitempty"`
	BudgetLines []BudgetLine `gorm:"foreignKey:ProjectID" json:"budget_lines,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProjectStatusPlanned
	}
	return nil
}

func (Project) TableName() string {
	return "projects"
}

// IsValidProjectStatus checks if the status is valid
func IsValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanned, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}
