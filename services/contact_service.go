package services

import (
	"fmt"
	"strings"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// ContactInput is the editable part of a contact
type ContactInput struct {
	CompanyID string `json:"company_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	JobTitle  string `json:"job_title"`
	IsPrimary bool   `json:"is_primary"`
}

// Validate normalizes the input and checks required fields
func (in *ContactInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)

	v := &ValidationError{}
	requireField(v, "company_id", in.CompanyID)
	requireField(v, "first_name", in.FirstName)
	requireField(v, "last_name", in.LastName)
	checkEmail(v, "email", in.Email)
	return v.OrNil()
}

// ListContacts returns the contacts of the organization, optionally of one company
func ListContacts(db *gorm.DB, organizationID, companyID, keyword string, page, limit int) ([]models.Contact, int64, error) {
	query := db.Model(&models.Contact{}).Where("organization_id = ?", organizationID)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if keyword != "" {
		kw := likePattern(keyword)
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []models.Contact
	err := query.Preload("Company").
		Order("last_name ASC, first_name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contacts).Error
	return contacts, total, err
}

// GetContact loads a contact of the organization
func GetContact(db *gorm.DB, organizationID, contactID string) (*models.Contact, error) {
	var contact models.Contact
	if err := db.Where("organization_id = ? AND id = ?", organizationID, contactID).Preload("Company").First(&contact).Error; err != nil {
		return nil, notFound(err)
	}
	return &contact, nil
}

// clearPrimary unsets the primary flag of every other contact of the company
func clearPrimary(tx *gorm.DB, organizationID, companyID, exceptID string) error {
	return tx.Model(&models.Contact{}).
		Where("organization_id = ? AND company_id = ? AND id <> ? AND is_primary = ?", organizationID, companyID, exceptID, true).
		Update("is_primary", false).Error
}

// CreateContact stores a contact. A primary contact replaces the previous primary of the company.
func CreateContact(db *gorm.DB, organizationID string, in ContactInput) (*models.Contact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
		return nil, NewValidationError("company_id", "validation.unknown_company")
	}

	contact := &models.Contact{
		OrganizationID: organizationID,
		CompanyID:      in.CompanyID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          strings.TrimSpace(in.Phone),
		JobTitle:       strings.TrimSpace(in.JobTitle),
		IsPrimary:      in.IsPrimary,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contact).Error; err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		if contact.IsPrimary {
			return clearPrimary(tx, organizationID, contact.CompanyID, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// UpdateContact replaces the editable fields of a contact
func UpdateContact(db *gorm.DB, organizationID, contactID string, in ContactInput) (*models.Contact, error) {
	contact, err := GetContact(db, organizationID, contactID)
	if err != nil {
		return nil, err
	}
	if in.CompanyID == "" {
		in.CompanyID = contact.CompanyID
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.CompanyID != contact.CompanyID {
		if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
			return nil, NewValidationError("company_id", "validation.unknown_company")
		}
	}

	contact.CompanyID = in.CompanyID
	contact.Company = nil
	contact.FirstName = in.FirstName
	contact.LastName = in.LastName
	contact.Email = in.Email
	contact.Phone = strings.TrimSpace(in.Phone)
	contact.JobTitle = strings.TrimSpace(in.JobTitle)
	contact.IsPrimary = in.IsPrimary

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(contact).Error; err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		if contact.IsPrimary {
			return clearPrimary(tx, organizationID, contact.CompanyID, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// SetPrimaryContact makes a contact the primary one of its company
func SetPrimaryContact(db *gorm.DB, organizationID, contactID string) error {
	contact, err := GetContact(db, organizationID, contactID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(contact).Update("is_primary", true).Error; err != nil {
			return err
		}
		return clearPrimary(tx, organizationID, contact.CompanyID, contact.ID)
	})
}

// DeleteContact soft-deletes a contact
func DeleteContact(db *gorm.DB, organizationID, contactID string) error {
	contact, err := GetContact(db, organizationID, contactID)
	if err != nil {
		return err
	}
	return db.Delete(contact).Error
}
