package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deadline status constants
const (
	DeadlineStatusPending = "PENDING"
	DeadlineStatusDone    = "DONE"
	DeadlineStatusMissed  = "MISSED"
)

type Deadline struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string   `gorm:"type:uuid;not null;index:idx_deadline_org_due" json:"organization_id"`
	ProjectID      string   `gorm:"type:uuid;not null;index" json:"project_id"`
	Project        *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     time.Time  `gorm:"not null;index:idx_deadline_org_due" json:"due_date"`
	Status      string     `gorm:"not null;default:PENDING" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	AssigneeID *string `gorm:"type:uuid" json:"assignee_id,omitempty"`
	Assignee   *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
}

func (d *Deadline) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = DeadlineStatusPending
	}
	return nil
}

func (Deadline) TableName() string {
	return "deadlines"
}

// IsOverdue reports whether a pending deadline is past its due date
func (d *Deadline) IsOverdue(now time.Time) bool {
	return d.Status == DeadlineStatusPending && d.DueDate.Before(now)
}

// DaysLeft is negative once the deadline has passed
func (d *Deadline) DaysLeft(now time.Time) int {
	due := time.Date(d.DueDate.Year(), d.DueDate.Month(), d.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}
