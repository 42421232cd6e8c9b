package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Testimonial struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string   `gorm:"type:uuid;not null;index" json:"organization_id"`
	CompanyID      string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company        *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	ContactName  string `gorm:"not null" json:"contact_name"`
	ContactTitle string `json:"contact_title"`
	Content      string `gorm:"type:text;not null" json:"content"` // sanitized HTML
	Rating       int    `gorm:"not null;default:5" json:"rating"`
	IsPublished  bool   `gorm:"not null;default:false" json:"is_published"`
	MediaKey     string `json:"media_key,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
}

func (t *Testimonial) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (Testimonial) TableName() string {
	return "testimonials"
}
