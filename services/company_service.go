package services

import (
	"fmt"
	"strings"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// CompanyFilters narrows the company list
type CompanyFilters struct {
	Keyword string
	Type    string
	OwnerID string
	City    string
}

// CompanyInput is the editable part of a company
type CompanyInput struct {
	Name     string  `json:"name"`
	LegalID  string  `json:"legal_id"`
	Type     string  `json:"type"`
	Industry string  `json:"industry"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  string  `json:"address"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Notes    string  `json:"notes"`
	OwnerID  *string `json:"owner_id"`
}

// Validate normalizes the input and checks required fields
func (in *CompanyInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	in.Email = NormalizeEmail(in.Email)
	if in.Type == "" {
		in.Type = models.CompanyTypeProspect
	}

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	checkEmail(v, "email", in.Email)
	if !models.IsValidCompanyType(in.Type) {
		v.Add("type", "validation.company_type")
	}
	return v.OrNil()
}

func (in *CompanyInput) apply(c *models.Company) {
	c.Name = in.Name
	c.LegalID = strings.TrimSpace(in.LegalID)
	c.Type = in.Type
	c.Industry = strings.TrimSpace(in.Industry)
	c.Email = in.Email
	c.Phone = strings.TrimSpace(in.Phone)
	c.Website = strings.TrimSpace(in.Website)
	c.Address = strings.TrimSpace(in.Address)
	c.City = strings.TrimSpace(in.City)
	c.Country = strings.TrimSpace(in.Country)
	c.Notes = SanitizeRichText(in.Notes)
	if in.OwnerID != nil {
		c.OwnerID = ptrIfNotEmpty(*in.OwnerID)
	}
}

// ListCompanies returns a page of companies with keyword and type filters
func ListCompanies(db *gorm.DB, organizationID string, filters CompanyFilters, page, limit int) ([]models.Company, int64, error) {
	query := db.Model(&models.Company{}).Where("organization_id = ?", organizationID)

	if filters.Keyword != "" {
		kw := likePattern(filters.Keyword)
		query = query.Where("name LIKE ? OR legal_id LIKE ? OR email LIKE ? OR city LIKE ?", kw, kw, kw, kw)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", strings.ToUpper(filters.Type))
	}
	if filters.OwnerID != "" {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}
	if filters.City != "" {
		query = query.Where("city = ?", filters.City)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	err := query.Preload("Owner").
		Order("name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&companies).Error
	return companies, total, err
}

// GetCompany loads a company with its contacts
func GetCompany(db *gorm.DB, organizationID, companyID string) (*models.Company, error) {
	var company models.Company
	err := db.Where("organization_id = ? AND id = ?", organizationID, companyID).
		Preload("Owner").
		Preload("Contacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, last_name ASC")
		}).
		First(&company).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &company, nil
}

// FindCompanyByName matches names case-insensitively, returns ErrNotFound when absent
func FindCompanyByName(db *gorm.DB, organizationID, name string) (*models.Company, error) {
	var company models.Company
	err := db.Where("organization_id = ? AND LOWER(name) = LOWER(?)", organizationID, strings.TrimSpace(name)).
		First(&company).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &company, nil
}

// CreateCompany validates and stores a company
func CreateCompany(db *gorm.DB, organizationID string, in CompanyInput) (*models.Company, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	company := &models.Company{OrganizationID: organizationID}
	in.apply(company)
	if err := db.Create(company).Error; err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// UpdateCompany replaces the editable fields of a company
func UpdateCompany(db *gorm.DB, organizationID, companyID string, in CompanyInput) (*models.Company, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	company, err := GetCompany(db, organizationID, companyID)
	if err != nil {
		return nil, err
	}
	in.apply(company)
	if err := db.Omit("Contacts", "Owner").Save(company).Error; err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// DeleteCompany soft-deletes a company and its contacts
func DeleteCompany(db *gorm.DB, organizationID, companyID string) error {
	company, err := GetCompany(db, organizationID, companyID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ? AND company_id = ?", organizationID, company.ID).Delete(&models.Contact{}).Error; err != nil {
			return err
		}
		return tx.Delete(company).Error
	})
}

// CompanyStats summarizes the activity with one company
type CompanyStats struct {
	Contacts          int64   `json:"contacts"`
	OpenOpportunities int64   `json:"open_opportunities"`
	PipelineValue     float64 `json:"pipeline_value"`
	WeightedPipeline  float64 `json:"weighted_pipeline"`
	WonValue          float64 `json:"won_value"`
	Projects          int64   `json:"projects"`
	ActiveProjects    int64   `json:"active_projects"`
	InvoicedTotal     float64 `json:"invoiced_total"`
	OutstandingTotal  float64 `json:"outstanding_total"`
}

// GetCompanyStats computes the per-company summary
func GetCompanyStats(db *gorm.DB, organizationID, companyID string) (*CompanyStats, error) {
	if _, err := GetCompany(db, organizationID, companyID); err != nil {
		return nil, err
	}
	stats := &CompanyStats{}
	scope := func(model interface{}) *gorm.DB {
		return db.Model(model).Where("organization_id = ? AND company_id = ?", organizationID, companyID)
	}
	open := []string{models.StageLead, models.StageQualified, models.StageProposal, models.StageNegotiation}

	if err := scope(&models.Contact{}).Count(&stats.Contacts).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Opportunity{}).Where("stage IN ?", open).Count(&stats.OpenOpportunities).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Opportunity{}).Where("stage IN ?", open).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.PipelineValue).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Opportunity{}).Where("stage IN ?", open).
		Select("COALESCE(SUM(amount * probability / 100.0), 0)").Scan(&stats.WeightedPipeline).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Opportunity{}).Where("stage = ?", models.StageWon).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.WonValue).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Project{}).Count(&stats.Projects).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Project{}).Where("status = ?", models.ProjectStatusActive).Count(&stats.ActiveProjects).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Invoice{}).Where("status <> ?", models.InvoiceStatusCancelled).
		Select("COALESCE(SUM(total), 0)").Scan(&stats.InvoicedTotal).Error; err != nil {
		return nil, err
	}
	if err := scope(&models.Invoice{}).Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Select("COALESCE(SUM(total), 0)").Scan(&stats.OutstandingTotal).Error; err != nil {
		return nil, err
	}

	stats.WeightedPipeline = models.RoundCents(stats.WeightedPipeline)
	return stats, nil
}
