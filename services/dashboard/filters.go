package dashboard

import (
	"errors"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"gorm.io/gorm"
)

// FilterInput is the payload of the global dashboard filters
type FilterInput struct {
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	ProjectID *string    `json:"project_id"`
	CompanyID *string    `json:"company_id"`
}

// GetFilters returns the saved filters of a user in an organization, or empty filters
func GetFilters(db *gorm.DB, organizationID, userID string) (*models.DashboardFilter, error) {
	var f models.DashboardFilter
	err := db.Where("organization_id = ? AND user_id = ?", organizationID, userID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.DashboardFilter{UserID: userID, OrganizationID: organizationID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func blank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// SaveFilters validates and stores the global filters of a user
func SaveFilters(db *gorm.DB, organizationID, userID string, in FilterInput) (*models.DashboardFilter, error) {
	in.ProjectID = blank(in.ProjectID)
	in.CompanyID = blank(in.CompanyID)

	v := &services.ValidationError{}
	if in.DateFrom != nil && in.DateTo != nil && in.DateTo.Before(*in.DateFrom) {
		v.Add("date_to", "validation.date_order")
	}
	if in.ProjectID != nil {
		if _, err := services.GetProject(db, organizationID, *in.ProjectID); err != nil {
			v.Add("project_id", "validation.unknown_project")
		}
	}
	if in.CompanyID != nil {
		if _, err := services.GetCompany(db, organizationID, *in.CompanyID); err != nil {
			v.Add("company_id", "validation.unknown_company")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	f := &models.DashboardFilter{
		UserID:         userID,
		OrganizationID: organizationID,
		DateFrom:       in.DateFrom,
		DateTo:         in.DateTo,
		ProjectID:      in.ProjectID,
		CompanyID:      in.CompanyID,
	}
	if err := db.Save(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}
