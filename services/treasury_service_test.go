package services

import (
	"testing"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services/secret"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankAccountBalance(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	account, err := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main", IBAN: "fr76 3000 6000 0112 3456 7890 189", OpeningBalance: 1000})
	require.NoError(t, err)
	assert.Equal(t, "FR7630006000011234567890189", account.IBAN)
	assert.Equal(t, "EUR", account.Currency)

	_, err = CreateTransaction(db, org.ID, TransactionInput{AccountID: account.ID, Date: day(2026, 1, 5), Label: "Client payment", Amount: 500, Kind: "income"})
	require.NoError(t, err)
	expense, err := CreateTransaction(db, org.ID, TransactionInput{AccountID: account.ID, Date: day(2026, 1, 6), Label: "Rent", Amount: 300, Kind: "EXPENSE"})
	require.NoError(t, err)
	assert.Equal(t, -300.0, expense.Amount, "expenses are stored negative")

	inferred, err := CreateTransaction(db, org.ID, TransactionInput{AccountID: account.ID, Date: day(2026, 1, 7), Label: "Fees", Amount: -12.5})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionKindExpense, inferred.Kind)

	reloaded, err := GetBankAccount(db, org.ID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1187.5, reloaded.Balance)

	total, err := TotalCashBalance(db, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1187.5, total)

	assert.ErrorIs(t, DeleteBankAccount(db, org.ID, account.ID), ErrConflict)

	empty, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Savings"})
	require.NoError(t, DeleteBankAccount(db, org.ID, empty.ID))
}

func TestCategories(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	require.NoError(t, SeedDefaultCategories(db, org.ID))
	require.NoError(t, SeedDefaultCategories(db, org.ID), "seeding is idempotent")

	all, err := ListCategories(db, org.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, len(defaultCategories))

	income, err := ListCategories(db, org.ID, "income")
	require.NoError(t, err)
	for _, c := range income {
		assert.Equal(t, models.TransactionKindIncome, c.Kind)
	}

	_, err = CreateCategory(db, org.ID, CategoryInput{Name: "loyer", Kind: "EXPENSE"})
	assert.ErrorIs(t, err, ErrConflict, "names are case-insensitive")

	_, err = CreateCategory(db, org.ID, CategoryInput{Name: "Gifts", Kind: "OTHER", Color: "red"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "kind")
	assert.Contains(t, verr.Fields, "color")

	software, err := CreateCategory(db, org.ID, CategoryInput{Name: "Software", Kind: "EXPENSE", Color: "#0ea5e9"})
	require.NoError(t, err)

	account, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main"})
	txn, err := CreateTransaction(db, org.ID, TransactionInput{AccountID: account.ID, CategoryID: &software.ID, Date: day(2026, 2, 1), Label: "Licences", Amount: 99, Kind: "EXPENSE"})
	require.NoError(t, err)

	_, err = CreateTransaction(db, org.ID, TransactionInput{AccountID: account.ID, CategoryID: &software.ID, Date: day(2026, 2, 1), Label: "Refund", Amount: 10, Kind: "INCOME"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation.category_kind", verr.Fields["category_id"])

	_, err = UpdateCategory(db, org.ID, software.ID, CategoryInput{Name: "Software", Kind: "INCOME"})
	require.ErrorAs(t, err, &verr)

	require.NoError(t, DeleteCategory(db, org.ID, software.ID))
	reloaded, err := GetTransaction(db, org.ID, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)

	_, err = CreateCategory(db, org.ID, CategoryInput{Name: "Software", Kind: "EXPENSE"})
	assert.NoError(t, err, "deleted names can be reused")
}

func TestTransactions_FiltersAndReconcile(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	main, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main"})
	other, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Other"})

	for _, in := range []TransactionInput{
		{AccountID: main.ID, Date: day(2026, 1, 10), Label: "Invoice ACME", Amount: 1200},
		{AccountID: main.ID, Date: day(2026, 2, 10), Label: "Supplies", Amount: -80},
		{AccountID: other.ID, Date: day(2026, 2, 15), Label: "Interest", Amount: 3},
	} {
		_, err := CreateTransaction(db, org.ID, in)
		require.NoError(t, err)
	}

	from := day(2026, 2, 1)
	to := day(2026, 2, 28)
	txs, total, err := ListTransactions(db, org.ID, TransactionFilters{From: &from, To: &to}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Interest", txs[0].Label, "most recent first")

	_, total, _ = ListTransactions(db, org.ID, TransactionFilters{AccountID: main.ID, Kind: "expense"}, 1, 20)
	assert.Equal(t, int64(1), total)
	_, total, _ = ListTransactions(db, org.ID, TransactionFilters{Keyword: "acme"}, 1, 20)
	assert.Equal(t, int64(1), total)

	reconciled, err := SetReconciled(db, org.ID, txs[0].ID, true)
	require.NoError(t, err)
	assert.True(t, reconciled.Reconciled)

	yes := true
	_, total, _ = ListTransactions(db, org.ID, TransactionFilters{Reconciled: &yes}, 1, 20)
	assert.Equal(t, int64(1), total)

	_, err = UpdateTransaction(db, org.ID, txs[0].ID, TransactionInput{AccountID: other.ID, Date: day(2026, 2, 15), Label: "x", Amount: 4})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, DeleteTransaction(db, org.ID, txs[0].ID), ErrConflict)

	_, err = SetReconciled(db, org.ID, txs[0].ID, false)
	require.NoError(t, err)
	updated, err := UpdateTransaction(db, org.ID, txs[0].ID, TransactionInput{AccountID: other.ID, Date: day(2026, 2, 15), Label: "Interest Q1", Amount: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Amount)

	_, err = CreateTransaction(db, org.ID, TransactionInput{AccountID: "missing", Date: day(2026, 2, 1), Label: "x", Amount: 0})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
}

func TestCashFlowAndForecast(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	account, _ := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main", OpeningBalance: 1000})

	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	for _, in := range []TransactionInput{
		{Date: day(2026, 2, 3), Label: "Sale", Amount: 3000},
		{Date: day(2026, 2, 20), Label: "Rent", Amount: -900},
		{Date: day(2026, 3, 3), Label: "Sale", Amount: 1500},
		{Date: day(2026, 4, 20), Label: "Rent", Amount: -900},
		{Date: day(2026, 4, 25), Label: "Sale", Amount: 1500},
	} {
		in.AccountID = account.ID
		_, err := CreateTransaction(db, org.ID, in)
		require.NoError(t, err)
	}

	flows, err := CashFlow(db, org.ID, day(2026, 1, 10), day(2026, 4, 2), "")
	require.NoError(t, err)
	require.Len(t, flows, 4)
	assert.Equal(t, MonthFlow{Month: "2026-01"}, flows[0], "empty months are present")
	assert.Equal(t, MonthFlow{Month: "2026-02", Income: 3000, Expense: 900, Net: 2100}, flows[1])
	assert.Equal(t, 600.0, flows[3].Net)

	_, err = CashFlow(db, org.ID, day(2026, 4, 1), day(2026, 1, 1), "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Payer", Email: "ap@payer.test"})
	inv, err := CreateInvoice(db, org.ID, InvoiceInput{
		CompanyID: company.ID,
		IssueDate: day(2026, 5, 1),
		DueDate:   day(2026, 6, 10),
		Lines:     []InvoiceLineInput{{Description: "Consulting", Quantity: 1, UnitPrice: 1000}},
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(inv).Update("status", models.InvoiceStatusSent).Error)

	// History is Feb-Apr: income 6000/3 = 2000, expense 1800/3 = 600
	forecast, err := Forecast(db, org.ID, now, 3)
	require.NoError(t, err)
	require.Len(t, forecast, 3)
	assert.Equal(t, "2026-05", forecast[0].Month)
	assert.Equal(t, 2000.0, forecast[0].ExpectedIncome)
	assert.Equal(t, 600.0, forecast[0].ExpectedExpense)
	assert.Equal(t, 0.0, forecast[0].InvoicesDue)
	assert.Equal(t, 1200.0, forecast[1].InvoicesDue)
	assert.Equal(t, 2600.0, forecast[1].Net)

	// Opening 1000 + movements 4200 = 5200, then +1400, +2600, +1400
	assert.Equal(t, 6600.0, forecast[0].ProjectedBalance)
	assert.Equal(t, 9200.0, forecast[1].ProjectedBalance)
	assert.Equal(t, 10600.0, forecast[2].ProjectedBalance)

	_, err = Forecast(db, org.ID, now, 0)
	require.ErrorAs(t, err, &verr)
}

func TestBankAccountIBANSealedAtRest(t *testing.T) {
	key, err := secret.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, secret.Configure(key))
	t.Cleanup(func() { _ = secret.Configure("") })

	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	account, err := CreateBankAccount(db, org.ID, BankAccountInput{Name: "Main", IBAN: "FR7630006000011234567890189"})
	require.NoError(t, err)
	assert.Equal(t, "FR7630006000011234567890189", account.IBAN, "the caller keeps the plaintext")

	var stored string
	require.NoError(t, db.Raw("SELECT iban FROM bank_accounts WHERE id = ?", account.ID).Scan(&stored).Error)
	assert.True(t, secret.IsSealed(stored))

	loaded, err := GetBankAccount(db, org.ID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "FR7630006000011234567890189", loaded.IBAN)
}
