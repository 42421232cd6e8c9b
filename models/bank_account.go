package models

import (
	"time"

	"biz_flow_app_go/services/secret"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankAccount struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string `gorm:"type:uuid;not null;index" json:"organization_id"`

	Name           string  `gorm:"not null" json:"name"`
	BankName       string  `json:"bank_name"`
	IBAN           string  `json:"iban"`
	Currency       string  `gorm:"not null;default:EUR" json:"currency"`
	OpeningBalance float64 `gorm:"not null;default:0" json:"opening_balance"`
	IsActive       bool    `gorm:"not null;default:true" json:"is_active"`

	// Computed by the treasury service
	Balance float64 `gorm:"-" json:"balance"`
}

func (b *BankAccount) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Currency == "" {
		b.Currency = "EUR"
	}
	return nil
}

// BeforeSave seals the IBAN. AfterSave and AfterFind open it again so callers only see plaintext.
func (b *BankAccount) BeforeSave(tx *gorm.DB) error {
	sealed, err := secret.Seal(b.IBAN)
	if err != nil {
		return err
	}
	b.IBAN = sealed
	return nil
}

func (b *BankAccount) AfterSave(tx *gorm.DB) error {
	return b.openIBAN()
}

func (b *BankAccount) AfterFind(tx *gorm.DB) error {
	return b.openIBAN()
}

func (b *BankAccount) openIBAN() error {
	plain, err := secret.Open(b.IBAN)
	if err != nil {
		return err
	}
	b.IBAN = plain
	return nil
}

func (BankAccount) TableName() string {
	return "bank_accounts"
}
