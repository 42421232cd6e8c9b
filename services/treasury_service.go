package services

import (
	"fmt"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ---- Bank accounts ----

// BankAccountInput is the editable part of a bank account
type BankAccountInput struct {
	Name           string  `json:"name"`
	BankName       string  `json:"bank_name"`
	IBAN           string  `json:"iban"`
	Currency       string  `json:"currency"`
	OpeningBalance float64 `json:"opening_balance"`
	IsActive       *bool   `json:"is_active"`
}

// Validate normalizes the IBAN and currency
func (in *BankAccountInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.BankName = strings.TrimSpace(in.BankName)
	in.IBAN = strings.ToUpper(strings.ReplaceAll(in.IBAN, " ", ""))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "EUR"
	}

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	if len(in.Currency) != 3 {
		v.Add("currency", "validation.currency")
	}
	return v.OrNil()
}

type accountTotal struct {
	AccountID string
	Total     float64
}

// accountBalances sums the transactions of every account of the organization
func accountBalances(db *gorm.DB, organizationID string) (map[string]float64, error) {
	var rows []accountTotal
	err := db.Model(&models.Transaction{}).
		Select("account_id, COALESCE(SUM(amount), 0) AS total").
		Where("organization_id = ?", organizationID).
		Group("account_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(rows, func(r accountTotal) (string, float64) {
		return r.AccountID, r.Total
	}), nil
}

// ListBankAccounts returns the accounts of the organization with their balance
func ListBankAccounts(db *gorm.DB, organizationID string, activeOnly bool) ([]models.BankAccount, error) {
	query := db.Where("organization_id = ?", organizationID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var accounts []models.BankAccount
	if err := query.Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	balances, err := accountBalances(db, organizationID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Balance = models.RoundCents(accounts[i].OpeningBalance + balances[accounts[i].ID])
	}
	return accounts, nil
}

// GetBankAccount loads an account with its balance
func GetBankAccount(db *gorm.DB, organizationID, accountID string) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := db.Where("organization_id = ? AND id = ?", organizationID, accountID).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	var total float64
	if err := db.Model(&models.Transaction{}).Select("COALESCE(SUM(amount), 0)").Where("account_id = ?", account.ID).Scan(&total).Error; err != nil {
		return nil, err
	}
	account.Balance = models.RoundCents(account.OpeningBalance + total)
	return &account, nil
}

// TotalCashBalance sums the balance of the active accounts
func TotalCashBalance(db *gorm.DB, organizationID string) (float64, error) {
	accounts, err := ListBankAccounts(db, organizationID, true)
	if err != nil {
		return 0, err
	}
	return models.RoundCents(lo.SumBy(accounts, func(a models.BankAccount) float64 { return a.Balance })), nil
}

// CreateBankAccount stores a bank account
func CreateBankAccount(db *gorm.DB, organizationID string, in BankAccountInput) (*models.BankAccount, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	account := &models.BankAccount{
		OrganizationID: organizationID,
		Name:           in.Name,
		BankName:       in.BankName,
		IBAN:           in.IBAN,
		Currency:       in.Currency,
		OpeningBalance: in.OpeningBalance,
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}
	account.Balance = account.OpeningBalance
	return account, nil
}

// UpdateBankAccount replaces the editable fields of an account
func UpdateBankAccount(db *gorm.DB, organizationID, accountID string, in BankAccountInput) (*models.BankAccount, error) {
	account, err := GetBankAccount(db, organizationID, accountID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	account.Name = in.Name
	account.BankName = in.BankName
	account.IBAN = in.IBAN
	account.Currency = in.Currency
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	delta := in.OpeningBalance - account.OpeningBalance
	account.OpeningBalance = in.OpeningBalance
	if err := db.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to update bank account: %w", err)
	}
	account.Balance = models.RoundCents(account.Balance + delta)
	return account, nil
}

// DeleteBankAccount removes an account that has no transactions
func DeleteBankAccount(db *gorm.DB, organizationID, accountID string) error {
	account, err := GetBankAccount(db, organizationID, accountID)
	if err != nil {
		return err
	}
	var count int64
	if err := db.Model(&models.Transaction{}).Where("account_id = ?", account.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewConflict("errors.account_in_use")
	}
	return db.Delete(account).Error
}

// ---- Categories ----

var defaultCategories = []models.TransactionCategory{
	{Name: "Ventes", Kind: models.TransactionKindIncome, Color: "#16a34a"},
	{Name: "Prestations", Kind: models.TransactionKindIncome, Color: "#22c55e"},
	{Name: "Autres produits", Kind: models.TransactionKindIncome, Color: "#86efac"},
	{Name: "Salaires", Kind: models.TransactionKindExpense, Color: "#dc2626"},
	{Name: "Loyer", Kind: models.TransactionKindExpense, Color: "#ea580c"},
	{Name: "Fournitures", Kind: models.TransactionKindExpense, Color: "#d97706"},
	{Name: "Déplacements", Kind: models.TransactionKindExpense, Color: "#ca8a04"},
	{Name: "Impôts et taxes", Kind: models.TransactionKindExpense, Color: "#9333ea"},
	{Name: "Autres charges", Kind: models.TransactionKindExpense, Color: "#6b7280"},
}

// SeedDefaultCategories creates the default income and expense categories. Existing names are kept.
func SeedDefaultCategories(db *gorm.DB, organizationID string) error {
	for _, c := range defaultCategories {
		category := c
		category.OrganizationID = organizationID
		err := db.Where("organization_id = ? AND name = ?", organizationID, category.Name).
			FirstOrCreate(&category).Error
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

// CategoryInput is the editable part of a transaction category
type CategoryInput struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
}

// Validate normalizes the kind and checks the color format
func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Kind = strings.ToUpper(strings.TrimSpace(in.Kind))
	in.Color = strings.TrimSpace(in.Color)

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	if !models.IsValidTransactionKind(in.Kind) {
		v.Add("kind", "validation.transaction_kind")
	}
	if in.Color != "" && (len(in.Color) != 7 || in.Color[0] != '#') {
		v.Add("color", "validation.color")
	}
	return v.OrNil()
}

// ListCategories returns the categories of the organization, optionally of one kind
func ListCategories(db *gorm.DB, organizationID, kind string) ([]models.TransactionCategory, error) {
	query := db.Where("organization_id = ?", organizationID)
	if kind != "" {
		query = query.Where("kind = ?", strings.ToUpper(kind))
	}
	var categories []models.TransactionCategory
	err := query.Order("kind DESC, name ASC").Find(&categories).Error
	return categories, err
}

// GetCategory loads a category of the organization
func GetCategory(db *gorm.DB, organizationID, categoryID string) (*models.TransactionCategory, error) {
	var category models.TransactionCategory
	if err := db.Where("organization_id = ? AND id = ?", organizationID, categoryID).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func categoryNameTaken(db *gorm.DB, organizationID, name, exceptID string) (bool, error) {
	var count int64
	query := db.Unscoped().Model(&models.TransactionCategory{}).
		Where("organization_id = ? AND LOWER(name) = LOWER(?)", organizationID, name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// CreateCategory stores a category with a unique name
func CreateCategory(db *gorm.DB, organizationID string, in CategoryInput) (*models.TransactionCategory, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	taken, err := categoryNameTaken(db, organizationID, in.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewConflict("errors.category_exists")
	}
	category := &models.TransactionCategory{OrganizationID: organizationID, Name: in.Name, Kind: in.Kind, Color: in.Color}
	if err := db.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// UpdateCategory renames or recolors a category. The kind is fixed once transactions use it.
func UpdateCategory(db *gorm.DB, organizationID, categoryID string, in CategoryInput) (*models.TransactionCategory, error) {
	category, err := GetCategory(db, organizationID, categoryID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	taken, err := categoryNameTaken(db, organizationID, in.Name, category.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewConflict("errors.category_exists")
	}
	if in.Kind != category.Kind {
		var count int64
		if err := db.Model(&models.Transaction{}).Where("category_id = ?", category.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, NewValidationError("kind", "validation.category_kind_locked")
		}
	}

	category.Name = in.Name
	category.Kind = in.Kind
	category.Color = in.Color
	if err := db.Save(category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category and uncategorizes its transactions
func DeleteCategory(db *gorm.DB, organizationID, categoryID string) error {
	category, err := GetCategory(db, organizationID, categoryID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("category_id = ?", category.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(category).Error
	})
}

// ---- Transactions ----

// TransactionFilters narrows the transaction list
type TransactionFilters struct {
	AccountID  string
	CategoryID string
	ProjectID  string
	Kind       string
	Keyword    string
	From       *time.Time
	To         *time.Time
	Reconciled *bool
}

func (f TransactionFilters) apply(query *gorm.DB) *gorm.DB {
	if f.AccountID != "" {
		query = query.Where("account_id = ?", f.AccountID)
	}
	if f.CategoryID != "" {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.ProjectID != "" {
		query = query.Where("project_id = ?", f.ProjectID)
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", strings.ToUpper(f.Kind))
	}
	if f.Keyword != "" {
		pattern := likePattern(f.Keyword)
		query = query.Where("label LIKE ? OR reference LIKE ?", pattern, pattern)
	}
	if f.From != nil {
		query = query.Where("date >= ?", truncateDay(*f.From))
	}
	if f.To != nil {
		query = query.Where("date < ?", truncateDay(*f.To).AddDate(0, 0, 1))
	}
	if f.Reconciled != nil {
		query = query.Where("reconciled = ?", *f.Reconciled)
	}
	return query
}

// TransactionInput is the editable part of a transaction. Amount may be given unsigned.
type TransactionInput struct {
	AccountID  string    `json:"account_id"`
	CategoryID *string   `json:"category_id"`
	Date       time.Time `json:"date"`
	Label      string    `json:"label"`
	Amount     float64   `json:"amount"`
	Kind       string    `json:"kind"`
	Reference  string    `json:"reference"`
	ProjectID  *string   `json:"project_id"`
	InvoiceID  *string   `json:"invoice_id"`
}

// Validate infers the kind from a signed amount when none is given
func (in *TransactionInput) Validate() error {
	in.Label = strings.TrimSpace(in.Label)
	in.Reference = strings.TrimSpace(in.Reference)
	in.Kind = strings.ToUpper(strings.TrimSpace(in.Kind))
	in.Date = truncateDay(in.Date)
	if in.Kind == "" {
		in.Kind = models.TransactionKindIncome
		if in.Amount < 0 {
			in.Kind = models.TransactionKindExpense
		}
	}

	v := &ValidationError{}
	requireField(v, "account_id", in.AccountID)
	requireField(v, "label", in.Label)
	if in.Date.IsZero() {
		v.Add("date", "validation.required")
	}
	if in.Amount == 0 {
		v.Add("amount", "validation.non_zero")
	}
	if !models.IsValidTransactionKind(in.Kind) {
		v.Add("kind", "validation.transaction_kind")
	}
	return v.OrNil()
}

func checkTransactionRefs(db *gorm.DB, organizationID string, in *TransactionInput) error {
	var count int64
	if err := db.Model(&models.BankAccount{}).Where("organization_id = ? AND id = ?", organizationID, in.AccountID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError("account_id", "validation.unknown_account")
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		category, err := GetCategory(db, organizationID, *in.CategoryID)
		if err != nil {
			return NewValidationError("category_id", "validation.unknown_category")
		}
		if category.Kind != in.Kind {
			return NewValidationError("category_id", "validation.category_kind")
		}
	}
	return nil
}

func (in *TransactionInput) apply(t *models.Transaction) {
	t.AccountID = in.AccountID
	t.CategoryID = nil
	if in.CategoryID != nil {
		t.CategoryID = ptrIfNotEmpty(*in.CategoryID)
	}
	t.Date = in.Date
	t.Label = in.Label
	t.Kind = in.Kind
	t.Amount = models.SignedAmount(in.Kind, in.Amount)
	t.Reference = in.Reference
	t.ProjectID = nil
	if in.ProjectID != nil {
		t.ProjectID = ptrIfNotEmpty(*in.ProjectID)
	}
	if in.InvoiceID != nil {
		t.InvoiceID = ptrIfNotEmpty(*in.InvoiceID)
	}
}

// ListTransactions returns a page of transactions, most recent first
func ListTransactions(db *gorm.DB, organizationID string, filters TransactionFilters, page, limit int) ([]models.Transaction, int64, error) {
	query := filters.apply(db.Model(&models.Transaction{}).Where("organization_id = ?", organizationID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	err := query.Preload("Account").Preload("Category").
		Order("date DESC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&txs).Error
	return txs, total, err
}

// GetTransaction loads a transaction of the organization
func GetTransaction(db *gorm.DB, organizationID, transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	err := db.Where("organization_id = ? AND id = ?", organizationID, transactionID).
		Preload("Account").Preload("Category").
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CreateTransaction records a bank movement
func CreateTransaction(db *gorm.DB, organizationID string, in TransactionInput) (*models.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkTransactionRefs(db, organizationID, &in); err != nil {
		return nil, err
	}
	t := &models.Transaction{OrganizationID: organizationID}
	in.apply(t)
	if err := db.Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction replaces the editable fields. Reconciled transactions are locked.
func UpdateTransaction(db *gorm.DB, organizationID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	t, err := GetTransaction(db, organizationID, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Reconciled {
		return nil, NewConflict("errors.transaction_reconciled")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkTransactionRefs(db, organizationID, &in); err != nil {
		return nil, err
	}
	in.apply(t)
	t.Account, t.Category = nil, nil
	if err := db.Save(t).Error; err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

// SetReconciled marks a transaction as matched with the bank statement, or undoes it
func SetReconciled(db *gorm.DB, organizationID, transactionID string, reconciled bool) (*models.Transaction, error) {
	t, err := GetTransaction(db, organizationID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.Transaction{}).Where("id = ?", t.ID).Update("reconciled", reconciled).Error; err != nil {
		return nil, err
	}
	t.Reconciled = reconciled
	return t, nil
}

// DeleteTransaction removes an unreconciled transaction
func DeleteTransaction(db *gorm.DB, organizationID, transactionID string) error {
	t, err := GetTransaction(db, organizationID, transactionID)
	if err != nil {
		return err
	}
	if t.Reconciled {
		return NewConflict("errors.transaction_reconciled")
	}
	return db.Delete(t).Error
}

// ---- Cash flow ----

// MonthFlow is the income, expenses and net of one calendar month ("2006-01")
type MonthFlow struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CashFlow returns one entry per month between from and to inclusive, empty months included.
// Expenses are reported as positive amounts.
func CashFlow(db *gorm.DB, organizationID string, from, to time.Time, accountID string) ([]MonthFlow, error) {
	start, end := monthStart(from), monthStart(to)
	if end.Before(start) {
		return nil, NewValidationError("to", "validation.date_order")
	}

	query := db.Model(&models.Transaction{}).
		Where("organization_id = ? AND date >= ? AND date < ?", organizationID, start, end.AddDate(0, 1, 0))
	if accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}
	var txs []models.Transaction
	if err := query.Select("date", "amount").Find(&txs).Error; err != nil {
		return nil, err
	}

	byMonth := lo.GroupBy(txs, func(t models.Transaction) string { return t.Date.UTC().Format("2006-01") })
	var flows []MonthFlow
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		flow := MonthFlow{Month: key}
		for _, t := range byMonth[key] {
			if t.Amount >= 0 {
				flow.Income += t.Amount
			} else {
				flow.Expense -= t.Amount
			}
		}
		flow.Income = models.RoundCents(flow.Income)
		flow.Expense = models.RoundCents(flow.Expense)
		flow.Net = models.RoundCents(flow.Income - flow.Expense)
		flows = append(flows, flow)
	}
	return flows, nil
}

// ForecastMonth projects the treasury of one future month
type ForecastMonth struct {
	Month            string  `json:"month"`
	ExpectedIncome   float64 `json:"expected_income"`
	ExpectedExpense  float64 `json:"expected_expense"`
	InvoicesDue      float64 `json:"invoices_due"`
	Net              float64 `json:"net"`
	ProjectedBalance float64 `json:"projected_balance"`
}

// ForecastHistoryMonths is the number of past complete months averaged by the forecast
const ForecastHistoryMonths = 3

// Forecast projects the next months from the average of the last complete months,
// plus the outstanding invoices due in each month. Invoices already past due count in the first month.
func Forecast(db *gorm.DB, organizationID string, now time.Time, months int) ([]ForecastMonth, error) {
	if months < 1 || months > 24 {
		return nil, NewValidationError("months", "validation.range")
	}
	current := monthStart(now)
	history, err := CashFlow(db, organizationID, current.AddDate(0, -ForecastHistoryMonths, 0), current.AddDate(0, -1, 0), "")
	if err != nil {
		return nil, err
	}
	avgIncome := lo.SumBy(history, func(m MonthFlow) float64 { return m.Income }) / ForecastHistoryMonths
	avgExpense := lo.SumBy(history, func(m MonthFlow) float64 { return m.Expense }) / ForecastHistoryMonths

	balance, err := TotalCashBalance(db, organizationID)
	if err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	err = db.Select("total", "due_date").
		Where("organization_id = ? AND status IN ?", organizationID, []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	dueByMonth := map[string]float64{}
	for _, inv := range invoices {
		due := monthStart(inv.DueDate.UTC())
		if due.Before(current) {
			due = current
		}
		dueByMonth[due.Format("2006-01")] += inv.Total
	}

	forecast := make([]ForecastMonth, 0, months)
	for i := 0; i < months; i++ {
		key := current.AddDate(0, i, 0).Format("2006-01")
		fm := ForecastMonth{
			Month:           key,
			ExpectedIncome:  models.RoundCents(avgIncome),
			ExpectedExpense: models.RoundCents(avgExpense),
			InvoicesDue:     models.RoundCents(dueByMonth[key]),
		}
		fm.Net = models.RoundCents(fm.ExpectedIncome + fm.InvoicesDue - fm.ExpectedExpense)
		balance = models.RoundCents(balance + fm.Net)
		fm.ProjectedBalance = balance
		forecast = append(forecast, fm)
	}
	return forecast, nil
}
