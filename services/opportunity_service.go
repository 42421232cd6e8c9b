package services

import (
	"fmt"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// OpportunityFilters narrows the opportunity list
type OpportunityFilters struct {
	Keyword   string
	Stage     string
	CompanyID string
	OwnerID   string
	OpenOnly  bool
}

// OpportunityInput is the editable part of an opportunity
type OpportunityInput struct {
	CompanyID         string     `json:"company_id"`
	ContactID         *string    `json:"contact_id"`
	Title             string     `json:"title"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Stage             string     `json:"stage"`
	Probability       *int       `json:"probability"`
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
	Notes             string     `json:"notes"`
	OwnerID           *string    `json:"owner_id"`
}

// Validate normalizes the input and checks required fields and ranges
func (in *OpportunityInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Stage = strings.ToUpper(strings.TrimSpace(in.Stage))
	if in.Stage == "" {
		in.Stage = models.StageLead
	}

	v := &ValidationError{}
	requireField(v, "company_id", in.CompanyID)
	requireField(v, "title", in.Title)
	checkNonNegative(v, "amount", in.Amount)
	if !models.IsValidStage(in.Stage) {
		v.Add("stage", "validation.stage")
	}
	if in.Probability != nil {
		checkRange(v, "probability", float64(*in.Probability), 0, 100)
	}
	return v.OrNil()
}

// stageProbability resolves the probability for a stage. Closed stages force 100 or 0.
func stageProbability(stage string, requested *int) int {
	switch stage {
	case models.StageWon:
		return 100
	case models.StageLost:
		return 0
	}
	if requested != nil {
		return *requested
	}
	return models.DefaultStageProbability[stage]
}

func applyStage(o *models.Opportunity, stage string, probability *int, now time.Time) {
	o.Stage = stage
	o.Probability = stageProbability(stage, probability)
	if o.IsOpen() {
		o.ClosedAt = nil
	} else if o.ClosedAt == nil {
		o.ClosedAt = &now
	}
}

// ListOpportunities returns a page of opportunities
func ListOpportunities(db *gorm.DB, organizationID string, filters OpportunityFilters, page, limit int) ([]models.Opportunity, int64, error) {
	query := db.Model(&models.Opportunity{}).Where("organization_id = ?", organizationID)
	if filters.Keyword != "" {
		query = query.Where("title LIKE ?", likePattern(filters.Keyword))
	}
	if filters.Stage != "" {
		query = query.Where("stage = ?", strings.ToUpper(filters.Stage))
	}
	if filters.CompanyID != "" {
		query = query.Where("company_id = ?", filters.CompanyID)
	}
	if filters.OwnerID != "" {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}
	if filters.OpenOnly {
		query = query.Where("stage NOT IN ?", []string{models.StageWon, models.StageLost})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var opps []models.Opportunity
	err := query.Preload("Company").Preload("Owner").
		Order("expected_close_date IS NULL, expected_close_date ASC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&opps).Error
	return opps, total, err
}

// GetOpportunity loads an opportunity of the organization
func GetOpportunity(db *gorm.DB, organizationID, opportunityID string) (*models.Opportunity, error) {
	var opp models.Opportunity
	err := db.Where("organization_id = ? AND id = ?", organizationID, opportunityID).
		Preload("Company").Preload("Contact").Preload("Owner").
		First(&opp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &opp, nil
}

func checkOpportunityRefs(db *gorm.DB, organizationID string, in *OpportunityInput) error {
	if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
		return NewValidationError("company_id", "validation.unknown_company")
	}
	if in.ContactID != nil && *in.ContactID != "" {
		contact, err := GetContact(db, organizationID, *in.ContactID)
		if err != nil || contact.CompanyID != in.CompanyID {
			return NewValidationError("contact_id", "validation.unknown_contact")
		}
	}
	return nil
}

// CreateOpportunity stores an opportunity in the pipeline
func CreateOpportunity(db *gorm.DB, organizationID string, in OpportunityInput) (*models.Opportunity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkOpportunityRefs(db, organizationID, &in); err != nil {
		return nil, err
	}

	opp := &models.Opportunity{
		OrganizationID:    organizationID,
		CompanyID:         in.CompanyID,
		Title:             in.Title,
		Amount:            in.Amount,
		Currency:          strings.ToUpper(in.Currency),
		ExpectedCloseDate: in.ExpectedCloseDate,
		Notes:             SanitizeRichText(in.Notes),
	}
	if in.ContactID != nil {
		opp.ContactID = ptrIfNotEmpty(*in.ContactID)
	}
	if in.OwnerID != nil {
		opp.OwnerID = ptrIfNotEmpty(*in.OwnerID)
	}
	if opp.Currency == "" {
		opp.Currency = "EUR"
	}
	applyStage(opp, in.Stage, in.Probability, time.Now())
	probability := opp.Probability

	if err := db.Create(opp).Error; err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}
	// A zero probability is skipped on insert in favour of the column default
	if probability == 0 {
		if err := db.Model(opp).Update("probability", 0).Error; err != nil {
			return nil, err
		}
		opp.Probability = 0
	}
	return opp, nil
}

// UpdateOpportunity replaces the editable fields of an opportunity
func UpdateOpportunity(db *gorm.DB, organizationID, opportunityID string, in OpportunityInput) (*models.Opportunity, error) {
	opp, err := GetOpportunity(db, organizationID, opportunityID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkOpportunityRefs(db, organizationID, &in); err != nil {
		return nil, err
	}

	opp.CompanyID = in.CompanyID
	opp.ContactID = nil
	if in.ContactID != nil {
		opp.ContactID = ptrIfNotEmpty(*in.ContactID)
	}
	opp.Title = in.Title
	opp.Amount = in.Amount
	if in.Currency != "" {
		opp.Currency = strings.ToUpper(in.Currency)
	}
	opp.ExpectedCloseDate = in.ExpectedCloseDate
	opp.Notes = SanitizeRichText(in.Notes)
	if in.OwnerID != nil {
		opp.OwnerID = ptrIfNotEmpty(*in.OwnerID)
	}
	applyStage(opp, in.Stage, in.Probability, time.Now())
	opp.Company, opp.Contact, opp.Owner = nil, nil, nil

	if err := db.Save(opp).Error; err != nil {
		return nil, fmt.Errorf("failed to update opportunity: %w", err)
	}
	return opp, nil
}

// MoveStage moves an opportunity through the pipeline. WON forces a probability of 100 and LOST of 0.
func MoveStage(db *gorm.DB, organizationID, opportunityID, stage string, probability *int) (*models.Opportunity, error) {
	stage = strings.ToUpper(strings.TrimSpace(stage))
	if !models.IsValidStage(stage) {
		return nil, NewValidationError("stage", "validation.stage")
	}
	if probability != nil && (*probability < 0 || *probability > 100) {
		return nil, NewValidationError("probability", "validation.range")
	}

	opp, err := GetOpportunity(db, organizationID, opportunityID)
	if err != nil {
		return nil, err
	}
	applyStage(opp, stage, probability, time.Now())

	err = db.Model(opp).Updates(map[string]interface{}{
		"stage":       opp.Stage,
		"probability": opp.Probability,
		"closed_at":   opp.ClosedAt,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to move opportunity: %w", err)
	}
	return opp, nil
}

// DeleteOpportunity soft-deletes an opportunity
func DeleteOpportunity(db *gorm.DB, organizationID, opportunityID string) error {
	opp, err := GetOpportunity(db, organizationID, opportunityID)
	if err != nil {
		return err
	}
	return db.Delete(opp).Error
}

// StageSummary aggregates the opportunities of one pipeline stage
type StageSummary struct {
	Stage    string  `json:"stage"`
	Count    int64   `json:"count"`
	Amount   float64 `json:"amount"`
	Weighted float64 `json:"weighted"`
}

// PipelineSummary returns one entry per stage, in pipeline order, including empty stages
func PipelineSummary(db *gorm.DB, organizationID, companyID string) ([]StageSummary, error) {
	var rows []StageSummary
	query := db.Model(&models.Opportunity{}).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(amount * probability / 100.0), 0) AS weighted").
		Where("organization_id = ?", organizationID)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if err := query.Group("stage").Scan(&rows).Error; err != nil {
		return nil, err
	}

	byStage := lo.KeyBy(rows, func(r StageSummary) string { return r.Stage })
	return lo.Map(models.PipelineStages, func(stage string, _ int) StageSummary {
		s := byStage[stage]
		s.Stage = stage
		s.Weighted = models.RoundCents(s.Weighted)
		return s
	}), nil
}
