package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pipeline stages, in order
const (
	StageLead        = "LEAD"
	StageQualified   = "QUALIFIED"
	StageProposal    = "PROPOSAL"
	StageNegotiation = "NEGOTIATION"
	StageWon         = "WON"
	StageLost        = "LOST"
)

// PipelineStages lists the stages in display order
var PipelineStages = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

// DefaultStageProbability is applied when an opportunity enters a stage without an explicit probability
var DefaultStageProbability = map[string]int{
	StageLead:        10,
	StageQualified:   25,
	StageProposal:    50,
	StageNegotiation: 75,
	StageWon:         100,
	StageLost:        0,
}

type Opportunity struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index:idx_opp_org_stage" json:"organization_id"`

	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ContactID *string  `gorm:"type:uuid" json:"contact_id,omitempty"`
	Contact   *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`

	Title             string     `gorm:"not null" json:"title"`
	Amount            float64    `gorm:"not null;default:0" json:"amount"`
	Currency          string     `gorm:"not null;default:EUR" json:"currency"`
	Stage             string     `gorm:"not null;default:LEAD;index:idx_opp_org_stage" json:"stage"`
	Probability       int        `gorm:"not null;default:10" json:"probability"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	Notes             string     `gorm:"type:text" json:"notes"`

	OwnerID *string `gorm:"type:uuid" json:"owner_id,omitempty"`
	Owner   *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (o *Opportunity) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Stage == "" {
		o.Stage = StageLead
	}
	return nil
}

func (Opportunity) TableName() string {
	return "opportunities"
}

// WeightedAmount is the amount scaled by the win probability
func (o *Opportunity) WeightedAmount() float64 {
	return o.Amount * float64(o.Probability) / 100
}

// IsOpen reports whether the opportunity is still in the pipeline
func (o *Opportunity) IsOpen() bool {
	return o.Stage != StageWon && o.Stage != StageLost
}

func IsValidStage(stage string) bool {
	_, ok := DefaultStageProbability[stage]
	return ok
}
