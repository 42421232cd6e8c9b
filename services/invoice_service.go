package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services/i18n"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// DefaultTaxRate applies when an invoice does not set one
const DefaultTaxRate = 20.0

// DefaultPaymentTerm is the gap between issue and due dates when no due date is given
const DefaultPaymentTerm = 30 * 24 * time.Hour

// InvoiceFilters narrows the invoice list
type InvoiceFilters struct {
	Status    string
	CompanyID string
	ProjectID string
	Keyword   string
	From      *time.Time
	To        *time.Time
}

// InvoiceLineInput is one line of an invoice
type InvoiceLineInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// InvoiceInput is the editable part of a draft invoice
type InvoiceInput struct {
	CompanyID string             `json:"company_id"`
	ProjectID *string            `json:"project_id"`
	IssueDate time.Time          `json:"issue_date"`
	DueDate   time.Time          `json:"due_date"`
	Currency  string             `json:"currency"`
	TaxRate   *float64           `json:"tax_rate"`
	Notes     string             `json:"notes"`
	Lines     []InvoiceLineInput `json:"lines"`
}

// Validate fills the dates and tax rate defaults and checks every line
func (in *InvoiceInput) Validate() error {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = time.Now()
	}
	in.IssueDate = truncateDay(in.IssueDate)
	if in.DueDate.IsZero() {
		in.DueDate = in.IssueDate.Add(DefaultPaymentTerm)
	}
	in.DueDate = truncateDay(in.DueDate)
	if in.TaxRate == nil {
		rate := DefaultTaxRate
		in.TaxRate = &rate
	}

	v := &ValidationError{}
	requireField(v, "company_id", in.CompanyID)
	checkRange(v, "tax_rate", *in.TaxRate, 0, 100)
	if in.DueDate.Before(in.IssueDate) {
		v.Add("due_date", "validation.date_order")
	}
	if len(in.Lines) == 0 {
		v.Add("lines", "validation.invoice_lines")
	}
	for i := range in.Lines {
		line := &in.Lines[i]
		line.Description = strings.TrimSpace(line.Description)
		prefix := "lines." + strconv.Itoa(i) + "."
		requireField(v, prefix+"description", line.Description)
		if line.Quantity <= 0 {
			v.Add(prefix+"quantity", "validation.positive")
		}
		checkNonNegative(v, prefix+"unit_price", line.UnitPrice)
	}
	return v.OrNil()
}

func (in *InvoiceInput) apply(inv *models.Invoice) {
	inv.CompanyID = in.CompanyID
	inv.ProjectID = nil
	if in.ProjectID != nil {
		inv.ProjectID = ptrIfNotEmpty(*in.ProjectID)
	}
	inv.IssueDate = in.IssueDate
	inv.DueDate = in.DueDate
	inv.Currency = in.Currency
	inv.TaxRate = *in.TaxRate
	inv.Notes = SanitizeRichText(in.Notes)
	inv.Lines = lo.Map(in.Lines, func(l InvoiceLineInput, _ int) models.InvoiceLine {
		return models.InvoiceLine{Description: l.Description, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	})
	inv.ComputeTotals()
}

func checkInvoiceRefs(db *gorm.DB, organizationID string, in *InvoiceInput) error {
	if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
		return NewValidationError("company_id", "validation.unknown_company")
	}
	if in.ProjectID != nil && *in.ProjectID != "" {
		var count int64
		if err := db.Model(&models.Project{}).Where("organization_id = ? AND id = ?", organizationID, *in.ProjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return NewValidationError("project_id", "validation.unknown_project")
		}
	}
	return nil
}

// NextInvoiceNumber returns the next INV-YYYY-NNNNN number of the organization for the year.
// Numbers of deleted drafts are never reused.
func NextInvoiceNumber(db *gorm.DB, organizationID string, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	var numbers []string
	err := db.Unscoped().Model(&models.Invoice{}).
		Where("organization_id = ? AND number LIKE ?", organizationID, prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return "", err
	}
	next := 1 + lo.Max(lo.FilterMap(numbers, func(n string, _ int) (int, bool) {
		v, err := strconv.Atoi(strings.TrimPrefix(n, prefix))
		return v, err == nil
	}))
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// ListInvoices returns a page of invoices, most recent first
func ListInvoices(db *gorm.DB, organizationID string, filters InvoiceFilters, page, limit int) ([]models.Invoice, int64, error) {
	query := db.Model(&models.Invoice{}).Where("organization_id = ?", organizationID)
	if filters.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(filters.Status))
	}
	if filters.CompanyID != "" {
		query = query.Where("company_id = ?", filters.CompanyID)
	}
	if filters.ProjectID != "" {
		query = query.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Keyword != "" {
		query = query.Where("number LIKE ?", likePattern(filters.Keyword))
	}
	if filters.From != nil {
		query = query.Where("issue_date >= ?", truncateDay(*filters.From))
	}
	if filters.To != nil {
		query = query.Where("issue_date < ?", truncateDay(*filters.To).AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []models.Invoice
	err := query.Preload("Company").
		Order("issue_date DESC, number DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&invoices).Error
	return invoices, total, err
}

// GetInvoice loads an invoice with its lines, company, project and organization
func GetInvoice(db *gorm.DB, organizationID, invoiceID string) (*models.Invoice, error) {
	var inv models.Invoice
	err := db.Where("organization_id = ? AND id = ?", organizationID, invoiceID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Company").
		Preload("Project").
		Preload("Organization").
		First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// CreateInvoice stores a draft invoice with its lines and a fresh number
func CreateInvoice(db *gorm.DB, organizationID string, in InvoiceInput) (*models.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkInvoiceRefs(db, organizationID, &in); err != nil {
		return nil, err
	}

	inv := &models.Invoice{OrganizationID: organizationID, Status: models.InvoiceStatusDraft}
	in.apply(inv)
	taxRate := inv.TaxRate

	err := db.Transaction(func(tx *gorm.DB) error {
		number, err := NextInvoiceNumber(tx, organizationID, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		// A zero rate is skipped on insert in favour of the column default
		if taxRate == 0 {
			inv.TaxRate = 0
			return tx.Model(inv).Update("tax_rate", 0).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return inv, nil
}

// UpdateInvoice replaces a draft invoice and its lines
func UpdateInvoice(db *gorm.DB, organizationID, invoiceID string, in InvoiceInput) (*models.Invoice, error) {
	inv, err := GetInvoice(db, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return nil, NewConflict("errors.invoice_locked")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkInvoiceRefs(db, organizationID, &in); err != nil {
		return nil, err
	}
	in.apply(inv)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		for i := range inv.Lines {
			inv.Lines[i].InvoiceID = inv.ID
		}
		if err := tx.Create(&inv.Lines).Error; err != nil {
			return err
		}
		return tx.Omit("Lines", "Company", "Project", "Organization").Save(inv).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return inv, nil
}

// DeleteInvoice removes a draft invoice. Sent invoices are cancelled instead.
func DeleteInvoice(db *gorm.DB, organizationID, invoiceID string) error {
	inv, err := GetInvoice(db, organizationID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return NewConflict("errors.invoice_locked")
	}
	return db.Select("Lines").Delete(inv).Error
}

// CancelInvoice voids an invoice that is not paid yet
func CancelInvoice(db *gorm.DB, organizationID, invoiceID string) (*models.Invoice, error) {
	inv, err := GetInvoice(db, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
		return nil, NewConflict("errors.invoice_status")
	}
	if err := db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusCancelled
	return inv, nil
}

// InvoicePDF renders the PDF of an invoice in the given language
func InvoicePDF(inv *models.Invoice, lang string) ([]byte, error) {
	org := inv.Organization
	if org == nil {
		org = &models.Organization{}
	}
	return GenerateInvoicePDF(org, inv, func(key string) string { return i18n.Translate(lang, key) })
}

// SendInvoice renders the PDF, stores it and emails it to the company. Drafts become SENT;
// sent and overdue invoices can be sent again.
func SendInvoice(ctx context.Context, db *gorm.DB, cfg *config.Config, organizationID, invoiceID, lang string) (*models.Invoice, error) {
	inv, err := GetInvoice(db, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains([]string{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusOverdue}, inv.Status) {
		return nil, NewConflict("errors.invoice_status")
	}
	to := ""
	if inv.Company != nil {
		to = inv.Company.Email
	}
	if to == "" {
		return nil, NewValidationError("company_id", "validation.company_email")
	}

	pdf, err := InvoicePDF(inv, lang)
	if err != nil {
		return nil, err
	}
	key := GenerateInvoiceKey(organizationID, inv.Number)
	if _, err := Storage.UploadReader(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
		return nil, fmt.Errorf("failed to store invoice pdf: %w", err)
	}

	orgName := ""
	if inv.Organization != nil {
		orgName = inv.Organization.Name
	}
	email := BuildInvoiceEmail(to, InvoiceEmailData{
		Number:           inv.Number,
		OrganizationName: orgName,
		Total:            FormatMoney(inv.Total, inv.Currency),
		DueDate:          inv.DueDate.Format("02/01/2006"),
	}, pdf, lang)
	if err := SendEmail(cfg, email); err != nil {
		return nil, fmt.Errorf("failed to email invoice: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{"pdf_key": key, "sent_at": now}
	if inv.Status == models.InvoiceStatusDraft {
		updates["status"] = models.InvoiceStatusSent
		inv.Status = models.InvoiceStatusSent
	}
	if err := db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	inv.PDFKey = key
	inv.SentAt = &now
	return inv, nil
}

// PaymentInput records the payment of an invoice on a bank account
type PaymentInput struct {
	AccountID  string    `json:"account_id"`
	CategoryID *string   `json:"category_id"`
	PaidAt     time.Time `json:"paid_at"`
}

// MarkInvoicePaid marks a sent or overdue invoice as paid and records the income transaction
func MarkInvoicePaid(db *gorm.DB, organizationID, invoiceID string, in PaymentInput) (*models.Invoice, *models.Transaction, error) {
	inv, err := GetInvoice(db, organizationID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if !inv.IsOutstanding() {
		return nil, nil, NewConflict("errors.invoice_status")
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = time.Now()
	}

	var txn *models.Transaction
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = CreateTransaction(tx, organizationID, TransactionInput{
			AccountID:  in.AccountID,
			CategoryID: in.CategoryID,
			Date:       in.PaidAt,
			Label:      inv.Number,
			Amount:     inv.Total,
			Kind:       models.TransactionKindIncome,
			Reference:  inv.Number,
			ProjectID:  inv.ProjectID,
			InvoiceID:  &inv.ID,
		})
		if err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
			"status":  models.InvoiceStatusPaid,
			"paid_at": in.PaidAt,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	inv.Status = models.InvoiceStatusPaid
	inv.PaidAt = &in.PaidAt
	return inv, txn, nil
}

// MarkOverdueInvoices flags sent invoices whose due date has passed, across organizations
func MarkOverdueInvoices(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, truncateDay(now)).
		Update("status", models.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

// OutstandingTotal sums the sent and overdue invoices of the organization
func OutstandingTotal(db *gorm.DB, organizationID string) (float64, error) {
	var total float64
	err := db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total), 0)").
		Where("organization_id = ? AND status IN ?", organizationID, []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Scan(&total).Error
	return models.RoundCents(total), err
}
