package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Budget line categories
const (
	BudgetCategoryLabour      = "LABOUR"
	BudgetCategoryMaterial    = "MATERIAL"
	BudgetCategorySubcontract = "SUBCONTRACT"
	BudgetCategoryTravel      = "TRAVEL"
	BudgetCategoryOther       = "OTHER"
)

var BudgetCategories = []string{BudgetCategoryLabour, BudgetCategoryMaterial, BudgetCategorySubcontract, BudgetCategoryTravel, BudgetCategoryOther}

// BudgetLine is one planned/actual pair of a project budget
type BudgetLine struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index" json:"organization_id"`
	ProjectID      string `gorm:"type:uuid;not null;index" json:"project_id"`

	Category      string  `gorm:"not null;default:OTHER" json:"category"`
	Label         string  `gorm:"not null" json:"label"`
	PlannedAmount float64 `gorm:"not null;default:0" json:"planned_amount"`
	ActualAmount  float64 `gorm:"not null;default:0" json:"actual_amount"`
}

func (b *BudgetLine) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Category == "" {
		b.Category = BudgetCategoryOther
	}
	return nil
}

func (BudgetLine) TableName() string {
	return "budget_lines"
}

func IsValidBudgetCategory(c string) bool {
	return contains(BudgetCategories, c)
}
