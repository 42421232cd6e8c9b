package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index" json:"organization_id"`

	FirstName  string     `gorm:"not null" json:"first_name"`
	LastName   string     `gorm:"not null" json:"last_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	JobTitle   string     `json:"job_title"`
	Department string     `json:"department"`
	HireDate   *time.Time `json:"hire_date,omitempty"`
	HourlyCost float64    `gorm:"not null;default:0" json:"hourly_cost"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (Employee) TableName() string {
	return "employees"
}
