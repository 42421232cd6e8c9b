package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction kinds, shared with categories
const (
	TransactionKindIncome  = "INCOME"
	TransactionKindExpense = "EXPENSE"
)

type TransactionCategory struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_txcat_org_name" json:"organization_id"`
	Name           string `gorm:"not null;uniqueIndex:idx_txcat_org_name" json:"name"`
	Kind           string `gorm:"not null" json:"kind"`
	Color          string `gorm:"size:7" json:"color"`
}

func (c *TransactionCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (TransactionCategory) TableName() string {
	return "transaction_categories"
}

// Transaction is a bank movement. Amount is signed: expenses are negative.
type Transaction struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index:idx_tx_org_date" json:"organization_id"`

	AccountID  string               `gorm:"type:uuid;not null;index" json:"account_id"`
	Account    *BankAccount         `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	CategoryID *string              `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category   *TransactionCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	Date       time.Time `gorm:"not null;index:idx_tx_org_date" json:"date"`
	Label      string    `gorm:"not null" json:"label"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Kind       string    `gorm:"not null" json:"kind"`
	Reference  string    `json:"reference"`
	Reconciled bool      `gorm:"not null;default:false" json:"reconciled"`

	ProjectID *string `gorm:"type:uuid;index" json:"project_id,omitempty"`
	InvoiceID *string `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
}

// BeforeSave keeps the sign of Amount consistent with Kind
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	t.Amount = SignedAmount(t.Kind, t.Amount)
	return nil
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (Transaction) TableName() string {
	return "transactions"
}

// SignedAmount returns a positive amount for income and a negative one for expenses
func SignedAmount(kind string, amount float64) float64 {
	abs := math.Abs(amount)
	if kind == TransactionKindExpense {
		return -abs
	}
	return abs
}

func IsValidTransactionKind(kind string) bool {
	return kind == TransactionKindIncome || kind == TransactionKindExpense
}
