package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedInvoice(t *testing.T, db *gorm.DB, orgID, companyID string) *models.Invoice {
	t.Helper()
	inv, err := CreateInvoice(db, orgID, InvoiceInput{
		CompanyID: companyID,
		IssueDate: day(2026, 3, 1),
		Lines: []InvoiceLineInput{
			{Description: "Audit", Quantity: 2, UnitPrice: 450.5},
			{Description: "Travel", Quantity: 1, UnitPrice: 99.99},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestCreateInvoice_TotalsAndNumbers(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Client"})

	inv := seedInvoice(t, db, org.ID, company.ID)
	assert.Equal(t, "INV-2026-00001", inv.Number)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 1000.99, inv.Subtotal)
	assert.Equal(t, 200.2, inv.TaxAmount)
	assert.Equal(t, 1201.19, inv.Total)
	assert.Equal(t, day(2026, 3, 31), inv.DueDate, "30 day default term")

	zero := 0.0
	exempt, err := CreateInvoice(db, org.ID, InvoiceInput{
		CompanyID: company.ID,
		IssueDate: day(2026, 3, 2),
		TaxRate:   &zero,
		Lines:     []InvoiceLineInput{{Description: "Training", Quantity: 3, UnitPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00002", exempt.Number)

	reloaded, err := GetInvoice(db, org.ID, exempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, reloaded.TaxRate, "zero tax rate is kept")
	assert.Equal(t, 300.0, reloaded.Total)
	require.Len(t, reloaded.Lines, 1)

	// Deleted drafts keep their number
	require.NoError(t, DeleteInvoice(db, org.ID, exempt.ID))
	next, err := NextInvoiceNumber(db, org.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00003", next)

	_, err = CreateInvoice(db, org.ID, InvoiceInput{CompanyID: company.ID, Lines: []InvoiceLineInput{{Description: "", Quantity: 0, UnitPrice: -1}}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lines.0.description")
	assert.Contains(t, verr.Fields, "lines.0.quantity")
	assert.Contains(t, verr.Fields, "lines.0.unit_price")

	_, err = CreateInvoice(db, org.ID, InvoiceInput{CompanyID: company.ID})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lines")
}

func TestUpdateInvoice_ReplacesLines(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Client"})
	inv := seedInvoice(t, db, org.ID, company.ID)

	updated, err := UpdateInvoice(db, org.ID, inv.ID, InvoiceInput{
		CompanyID: company.ID,
		IssueDate: day(2026, 3, 1),
		Lines:     []InvoiceLineInput{{Description: "Flat fee", Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, inv.Number, updated.Number)
	assert.Equal(t, 600.0, updated.Total)

	reloaded, _ := GetInvoice(db, org.ID, inv.ID)
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, "Flat fee", reloaded.Lines[0].Description)

	var lineCount int64
	db.Model(&models.InvoiceLine{}).Where("invoice_id = ?", inv.ID).Count(&lineCount)
	assert.Equal(t, int64(1), lineCount)
}

func TestInvoiceLifecycle(t *testing.T) {
	dir := useLocalStorage(t)
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	require.NoError(t, db.Model(org).Updates(map[string]interface{}{"iban": "FR7630006000011234567890189"}).Error)
	cfg := &config.Config{EmailTestMode: true}
	ctx := context.Background()

	noEmail, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Silent"})
	silent := seedInvoice(t, db, org.ID, noEmail.ID)
	_, err := SendInvoice(ctx, db, cfg, org.ID, silent.ID, "fr")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Client", Email: "ap@client.test"})
	inv := seedInvoice(t, db, org.ID, company.ID)

	_, _, err = MarkInvoicePaid(db, org.ID, inv.ID, PaymentInput{})
	assert.ErrorIs(t, err, ErrConflict, "drafts cannot be paid")

	sent, err := SendInvoice(ctx, db, cfg, org.ID, inv.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	assert.Equal(t, GenerateInvoiceKey(org.ID, inv.Number), sent.PDFKey)
	stored, err := os.ReadFile(filepath.Join(dir, sent.PDFKey))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(stored, []byte("%PDF-")))

	_, err = UpdateInvoice(db, org.ID, inv.ID, InvoiceInput{CompanyID: company.ID, Lines: []InvoiceLineInput{{Description: "x", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrConflict, "sent invoices are locked")

	// Overdue job only touches sent invoices past their due date
	count, err := MarkOverdueInvoices(db, day(2026, 4, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	overdue, _ := GetInvoice(db, org.ID, inv.ID)
	assert.Equal(t, models.InvoiceStatusOverdue, overdue.Status)

	outstanding, err := OutstandingTotal(db, org.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Total, outstanding)

	account, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main"})
	paid, txn, err := MarkInvoicePaid(db, org.ID, inv.ID, PaymentInput{AccountID: account.ID, PaidAt: day(2026, 4, 20)})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, inv.Total, txn.Amount)
	require.NotNil(t, txn.InvoiceID)
	assert.Equal(t, inv.ID, *txn.InvoiceID)

	balance, _ := GetBankAccount(db, org.ID, account.ID)
	assert.Equal(t, inv.Total, balance.Balance)

	_, err = CancelInvoice(db, org.ID, inv.ID)
	assert.ErrorIs(t, err, ErrConflict, "paid invoices cannot be cancelled")

	cancelled, err := CancelInvoice(db, org.ID, silent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, cancelled.Status)
}

func TestGenerateInvoicePDF(t *testing.T) {
	org := &models.Organization{Name: "Acme Société", IBAN: "FR7630006000011234567890189", Address: "1 rue de la Paix, Paris"}
	inv := &models.Invoice{
		Number:    "INV-2026-00042",
		Currency:  "EUR",
		TaxRate:   20,
		IssueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Company:   &models.Company{Name: "Client Ltd", City: "Lyon"},
		Lines:     []models.InvoiceLine{{Description: "Conseil stratégique", Quantity: 1.5, UnitPrice: 1000}},
	}
	inv.ComputeTotals()

	pdf, err := GenerateInvoicePDF(org, inv, func(key string) string { return key })
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	payload := PaymentQRPayload(org, inv)
	lines := strings.Split(payload, "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "BCD", lines[0])
	assert.Equal(t, org.IBAN, lines[6])
	assert.Equal(t, fmt.Sprintf("EUR%.2f", inv.Total), lines[7])
	assert.Equal(t, inv.Number, lines[10])

	inv.Currency = "USD"
	assert.Empty(t, PaymentQRPayload(org, inv))

	_, err = GenerateInvoicePDF(org, &models.Invoice{}, func(key string) string { return key })
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1 234,50 €", FormatMoney(1234.5, "EUR"))
	assert.Equal(t, "-0,05 $", FormatMoney(-0.05, "usd"))
	assert.Equal(t, "1 000 000,00 JPY", FormatMoney(1e6, "JPY"))
	assert.Equal(t, "1.5", FormatQuantity(1.5))
	assert.Equal(t, "2", FormatQuantity(2))
}
