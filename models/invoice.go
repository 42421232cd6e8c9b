package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice status constants
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusSent      = "SENT"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusOverdue   = "OVERDUE"
	InvoiceStatusCancelled = "CANCELLED"
)

type Invoice struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_org_number;index:idx_invoice_org_status" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"-"`

	Number    string   `gorm:"not null;uniqueIndex:idx_invoice_org_number" json:"number"`
	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ProjectID *string  `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null;index" json:"due_date"`
	Status    string     `gorm:"not null;default:DRAFT;index:idx_invoice_org_status" json:"status"`
	Currency  string     `gorm:"not null;default:EUR" json:"currency"`
	TaxRate   float64    `gorm:"not null;default:20" json:"tax_rate"` // percent
	Subtotal  float64    `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount float64    `gorm:"not null;default:0" json:"tax_amount"`
	Total     float64    `gorm:"not null;default:0" json:"total"`
	Notes     string     `gorm:"type:text" json:"notes"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	PDFKey    string     `json:"pdf_key,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
}

type InvoiceLine struct {
	ID        string `gorm:"type:uuid;primarykey" json:"id"`
	InvoiceID string `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position  int    `gorm:"not null;default:0" json:"position"`

	Description string  `gorm:"not null" json:"description"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"not null;default:0" json:"unit_price"`
	Total       float64 `gorm:"not null;default:0" json:"total"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	return nil
}

func (l *InvoiceLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

func (Invoice) TableName() string {
	return "invoices"
}

func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// ComputeTotals recomputes line totals, subtotal, tax and total, rounded to cents
func (i *Invoice) ComputeTotals() {
	subtotal := 0.0
	for idx := range i.Lines {
		i.Lines[idx].Position = idx
		i.Lines[idx].Total = RoundCents(i.Lines[idx].Quantity * i.Lines[idx].UnitPrice)
		subtotal += i.Lines[idx].Total
	}
	i.Subtotal = RoundCents(subtotal)
	i.TaxAmount = RoundCents(i.Subtotal * i.TaxRate / 100)
	i.Total = RoundCents(i.Subtotal + i.TaxAmount)
}

// IsOutstanding reports whether the invoice still expects a payment
func (i *Invoice) IsOutstanding() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusOverdue
}

// RoundCents rounds half away from zero to two decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
