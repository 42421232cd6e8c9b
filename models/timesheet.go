package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timesheet status constants
const (
	TimesheetStatusDraft     = "DRAFT"
	TimesheetStatusSubmitted = "SUBMITTED"
	TimesheetStatusApproved  = "APPROVED"
	TimesheetStatusRejected  = "REJECTED"
)

// MaxHoursPerDay caps the hours one employee can log on a single day
const MaxHoursPerDay = 24.0

// Timesheet is one time entry of an employee on a project for a day
type Timesheet struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string    `gorm:"type:uuid;not null;index:idx_ts_org_date" json:"organization_id"`
	EmployeeID     string    `gorm:"type:uuid;not null;index:idx_ts_employee_date" json:"employee_id"`
	Employee       *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	ProjectID      *string   `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Project        *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Date        time.Time `gorm:"not null;index:idx_ts_org_date;index:idx_ts_employee_date" json:"date"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Description string    `json:"description"`
	Billable    bool      `gorm:"not null;default:true" json:"billable"`
	Status      string    `gorm:"not null;default:DRAFT" json:"status"`

	ReviewedByID *string    `gorm:"type:uuid" json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
}

func (t *Timesheet) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TimesheetStatusDraft
	}
	return nil
}

func (Timesheet) TableName() string {
	return "timesheets"
}

// IsEditable reports whether the entry can still be changed by its owner
func (t *Timesheet) IsEditable() bool {
	return t.Status == TimesheetStatusDraft || t.Status == TimesheetStatusRejected
}
