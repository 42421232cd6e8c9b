package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company types
const (
	CompanyTypeClient   = "CLIENT"
	CompanyTypeProspect = "PROSPECT"
	CompanyTypeSupplier = "SUPPLIER"
	CompanyTypePartner  = "PARTNER"
)

// Company is a client, prospect, supplier or partner of the organization
type Company struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index:idx_company_org_name" json:"organization_id"`

	Name     string `gorm:"not null;index:idx_company_org_name" json:"name"`
	LegalID  string `json:"legal_id"` // SIRET / VAT number
	Type     string `gorm:"not null;default:PROSPECT" json:"type"`
	Industry string `json:"industry"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Notes    string `gorm:"type:text" json:"notes"`

	OwnerID *string `gorm:"type:uuid" json:"owner_id,omitempty"`
	Owner   *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Contacts []Contact `gorm:"foreignKey:CompanyID" json:"contacts,omitempty"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Type == "" {
		c.Type = CompanyTypeProspect
	}
	return nil
}

func (Company) TableName() string {
	return "companies"
}

// IsValidCompanyType checks if the type is valid
func IsValidCompanyType(t string) bool {
	switch t {
	case CompanyTypeClient, CompanyTypeProspect, CompanyTypeSupplier, CompanyTypePartner:
		return true
	}
	return false
}
