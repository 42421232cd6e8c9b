package services

import (
	"fmt"
	"strings"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// CreateOrganizationInput bootstraps a tenant and its first administrator
type CreateOrganizationInput struct {
	Name          string `json:"name"`
	LegalID       string `json:"legal_id"`
	Currency      string `json:"currency"`
	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
	Language      string `json:"language"`
}

// CreateOrganizationWithAdmin creates the organization, its system roles, the admin user
// and the default transaction categories in one transaction.
func CreateOrganizationWithAdmin(db *gorm.DB, in CreateOrganizationInput) (*models.Organization, *models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := &ValidationError{}
	requireField(v, "name", in.Name)
	if err := v.OrNil(); err != nil {
		return nil, nil, err
	}

	var org *models.Organization
	var admin *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		org = &models.Organization{
			Name:     in.Name,
			LegalID:  strings.TrimSpace(in.LegalID),
			Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
		}
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		if err := SeedSystemRoles(tx, org.ID); err != nil {
			return err
		}

		var err error
		admin, err = CreateUser(tx, org.ID, CreateUserInput{
			Name:     in.AdminName,
			Email:    in.AdminEmail,
			Password: in.AdminPassword,
			Role:     models.RoleAdmin,
			Language: in.Language,
		})
		if err != nil {
			return err
		}
		return SeedDefaultCategories(tx, org.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	return org, admin, nil
}

// GetOrganization loads an organization by ID
func GetOrganization(db *gorm.DB, organizationID string) (*models.Organization, error) {
	var org models.Organization
	if err := db.First(&org, "id = ?", organizationID).Error; err != nil {
		return nil, notFound(err)
	}
	return &org, nil
}

// OrganizationSettings are the editable organization fields
type OrganizationSettings struct {
	Name                 string `json:"name"`
	LegalID              string `json:"legal_id"`
	Currency             string `json:"currency"`
	Timezone             string `json:"timezone"`
	FiscalYearStartMonth int    `json:"fiscal_year_start_month"`
	BillingEmail         string `json:"billing_email"`
	Address              string `json:"address"`
	IBAN                 string `json:"iban"`
}

// UpdateOrganization saves the organization settings
func UpdateOrganization(db *gorm.DB, organizationID string, in OrganizationSettings) (*models.Organization, error) {
	org, err := GetOrganization(db, organizationID)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	checkEmail(v, "billing_email", in.BillingEmail)
	if in.FiscalYearStartMonth == 0 {
		in.FiscalYearStartMonth = org.FiscalYearStartMonth
	}
	checkRange(v, "fiscal_year_start_month", float64(in.FiscalYearStartMonth), 1, 12)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	org.Name = strings.TrimSpace(in.Name)
	org.LegalID = strings.TrimSpace(in.LegalID)
	if in.Currency != "" {
		org.Currency = strings.ToUpper(in.Currency)
	}
	if in.Timezone != "" {
		org.Timezone = in.Timezone
	}
	org.FiscalYearStartMonth = in.FiscalYearStartMonth
	org.BillingEmail = NormalizeEmail(in.BillingEmail)
	org.Address = strings.TrimSpace(in.Address)
	org.IBAN = strings.ReplaceAll(strings.ToUpper(in.IBAN), " ", "")

	if err := db.Save(org).Error; err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}
