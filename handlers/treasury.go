package handlers

import (
	"net/http"
	"strconv"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"
	"biz_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

const (
	eventAccountsChanged     = "accountsChanged"
	eventCategoriesChanged   = "categoriesChanged"
	eventTransactionsChanged = "transactionsChanged"
)

type bankAccountRequest struct {
	Name           string  `json:"name" form:"name"`
	BankName       string  `json:"bank_name" form:"bank_name"`
	IBAN           string  `json:"iban" form:"iban"`
	Currency       string  `json:"currency" form:"currency"`
	OpeningBalance float64 `json:"opening_balance" form:"opening_balance"`
	IsActive       *bool   `json:"is_active" form:"is_active"`
}

func (r bankAccountRequest) input(c echo.Context) services.BankAccountInput {
	in := services.BankAccountInput{
		Name: r.Name, BankName: r.BankName, IBAN: r.IBAN, Currency: r.Currency,
		OpeningBalance: r.OpeningBalance, IsActive: r.IsActive,
	}
	if in.Currency == "" {
		in.Currency = currency(c)
	}
	return in
}

// ListBankAccountsHandler lists bank accounts with their computed balance
func ListBankAccountsHandler(c echo.Context) error {
	accounts, err := services.ListBankAccounts(db.DB, orgID(c), queryBool(c, "active"))
	if err != nil {
		return respondError(c, err)
	}
	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "accounts-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.bank_name"), tr(c, "fields.iban"), tr(c, "fields.balance"), tr(c, "fields.status")},
	}
	for _, a := range accounts {
		status := tr(c, "common.active")
		if !a.IsActive {
			status = tr(c, "common.inactive")
		}
		row := components.Row{ID: a.ID, Cells: []string{a.Name, a.BankName, a.IBAN, services.FormatMoney(a.Balance, a.Currency), status}}
		if user != nil && user.Can("treasury:delete") {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/treasury/accounts/"+a.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, accounts, int64(len(accounts)), 1, len(accounts)+1, view)
}

// GetBankAccountHandler returns one account with its balance
func GetBankAccountHandler(c echo.Context) error {
	account, err := services.GetBankAccount(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

// CreateBankAccountHandler opens a bank account
func CreateBankAccountHandler(c echo.Context) error {
	var req bankAccountRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	account, err := services.CreateBankAccount(db.DB, orgID(c), req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "BankAccount", account.ID, account.Name, nil, account)
	return respondMutation(c, http.StatusCreated, account, eventAccountsChanged, "treasury.account_created")
}

// UpdateBankAccountHandler edits a bank account
func UpdateBankAccountHandler(c echo.Context) error {
	var req bankAccountRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetBankAccount(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	account, err := services.UpdateBankAccount(db.DB, orgID(c), before.ID, req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "BankAccount", account.ID, account.Name, before, account)
	return respondMutation(c, http.StatusOK, account, eventAccountsChanged, "common.saved")
}

// DeleteBankAccountHandler removes an account without transactions
func DeleteBankAccountHandler(c echo.Context) error {
	account, err := services.GetBankAccount(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteBankAccount(db.DB, orgID(c), account.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "BankAccount", account.ID, account.Name, account, nil)
	return respondMutation(c, http.StatusOK, nil, eventAccountsChanged, "common.deleted")
}

type categoryRequest struct {
	Name  string `json:"name" form:"name"`
	Kind  string `json:"kind" form:"kind"`
	Color string `json:"color" form:"color"`
}

// ListCategoriesHandler lists the transaction categories, optionally of one kind
func ListCategoriesHandler(c echo.Context) error {
	categories, err := services.ListCategories(db.DB, orgID(c), c.QueryParam("kind"))
	if err != nil {
		return respondError(c, err)
	}
	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "categories-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.kind"), tr(c, "fields.color")},
	}
	for _, cat := range categories {
		row := components.Row{ID: cat.ID, Cells: []string{cat.Name, tr(c, "transaction_kinds."+cat.Kind), cat.Color}}
		if user != nil && user.Can("treasury:delete") {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/treasury/categories/"+cat.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, categories, int64(len(categories)), 1, len(categories)+1, view)
}

// CreateCategoryHandler adds a transaction category
func CreateCategoryHandler(c echo.Context) error {
	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	cat, err := services.CreateCategory(db.DB, orgID(c), services.CategoryInput{Name: req.Name, Kind: req.Kind, Color: req.Color})
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "TransactionCategory", cat.ID, cat.Name, nil, cat)
	return respondMutation(c, http.StatusCreated, cat, eventCategoriesChanged, "treasury.category_created")
}

// UpdateCategoryHandler renames or recolors a category
func UpdateCategoryHandler(c echo.Context) error {
	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetCategory(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	cat, err := services.UpdateCategory(db.DB, orgID(c), before.ID, services.CategoryInput{Name: req.Name, Kind: req.Kind, Color: req.Color})
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "TransactionCategory", cat.ID, cat.Name, before, cat)
	return respondMutation(c, http.StatusOK, cat, eventCategoriesChanged, "common.saved")
}

// DeleteCategoryHandler removes an unused category
func DeleteCategoryHandler(c echo.Context) error {
	cat, err := services.GetCategory(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteCategory(db.DB, orgID(c), cat.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "TransactionCategory", cat.ID, cat.Name, cat, nil)
	return respondMutation(c, http.StatusOK, nil, eventCategoriesChanged, "common.deleted")
}

type transactionRequest struct {
	AccountID  string  `json:"account_id" form:"account_id"`
	CategoryID string  `json:"category_id" form:"category_id"`
	Date       Date    `json:"date" form:"date"`
	Label      string  `json:"label" form:"label"`
	Amount     float64 `json:"amount" form:"amount"`
	Kind       string  `json:"kind" form:"kind"`
	Reference  string  `json:"reference" form:"reference"`
	ProjectID  string  `json:"project_id" form:"project_id"`
	InvoiceID  string  `json:"invoice_id" form:"invoice_id"`
}

func (r transactionRequest) input() services.TransactionInput {
	return services.TransactionInput{
		AccountID:  r.AccountID,
		CategoryID: optional(&r.CategoryID),
		Date:       r.Date.Time,
		Label:      r.Label,
		Amount:     r.Amount,
		Kind:       r.Kind,
		Reference:  r.Reference,
		ProjectID:  optional(&r.ProjectID),
		InvoiceID:  optional(&r.InvoiceID),
	}
}

// transactionFilters reads the list and export filters of transactions
func transactionFilters(c echo.Context) (services.TransactionFilters, error) {
	from, err := queryDate(c, "from")
	if err != nil {
		return services.TransactionFilters{}, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return services.TransactionFilters{}, err
	}
	filters := services.TransactionFilters{
		AccountID:  c.QueryParam("account_id"),
		CategoryID: c.QueryParam("category_id"),
		ProjectID:  c.QueryParam("project_id"),
		Kind:       c.QueryParam("kind"),
		Keyword:    c.QueryParam("keyword"),
		From:       from,
		To:         to,
	}
	if raw := c.QueryParam("reconciled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, services.NewValidationError("reconciled", "validation.boolean")
		}
		filters.Reconciled = &v
	}
	return filters, nil
}

// ListTransactionsHandler lists bank movements, newest first
func ListTransactionsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters, err := transactionFilters(c)
	if err != nil {
		return respondError(c, err)
	}
	txns, total, err := services.ListTransactions(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "transactions-table",
		Columns: []string{tr(c, "fields.date"), tr(c, "fields.label"), tr(c, "fields.account"), tr(c, "fields.category"),
			tr(c, "fields.amount"), tr(c, "fields.reconciled")},
	}
	for _, t := range txns {
		account, category, cur := "", "", currency(c)
		if t.Account != nil {
			account, cur = t.Account.Name, t.Account.Currency
		}
		if t.Category != nil {
			category = t.Category.Name
		}
		reconciled := ""
		if t.Reconciled {
			reconciled = "✓"
		}
		date := t.Date
		row := components.Row{ID: t.ID, Cells: []string{formatDate(&date), t.Label, account, category, services.FormatMoney(t.Amount, cur), reconciled}}
		if user != nil && user.Can("treasury:write") {
			label := tr(c, "treasury.reconcile")
			if t.Reconciled {
				label = tr(c, "treasury.unreconcile")
			}
			row.Actions = append(row.Actions, components.Action{
				Label:  label,
				Method: "put",
				URL:    "/api/v1/treasury/transactions/" + t.ID + "/reconcile?reconciled=" + strconv.FormatBool(!t.Reconciled),
			})
		}
		if user != nil && user.Can("treasury:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/treasury/transactions/"+t.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, txns, total, page, limit, view)
}

// GetTransactionHandler returns one transaction
func GetTransactionHandler(c echo.Context) error {
	txn, err := services.GetTransaction(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, txn)
}

// CreateTransactionHandler records a bank movement
func CreateTransactionHandler(c echo.Context) error {
	var req transactionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	txn, err := services.CreateTransaction(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Transaction", txn.ID, txn.Label, nil, txn)
	return respondMutation(c, http.StatusCreated, txn, eventTransactionsChanged, "treasury.transaction_created")
}

// UpdateTransactionHandler edits an unreconciled movement
func UpdateTransactionHandler(c echo.Context) error {
	var req transactionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetTransaction(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	txn, err := services.UpdateTransaction(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Transaction", txn.ID, txn.Label, before, txn)
	return respondMutation(c, http.StatusOK, txn, eventTransactionsChanged, "common.saved")
}

// ReconcileTransactionHandler sets or clears the reconciled flag (?reconciled=false to clear)
func ReconcileTransactionHandler(c echo.Context) error {
	reconciled := true
	if raw := c.QueryParam("reconciled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c)
		}
		reconciled = v
	}
	txn, err := services.SetReconciled(db.DB, orgID(c), c.Param("id"), reconciled)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Transaction", txn.ID, txn.Label, nil, map[string]bool{"reconciled": reconciled})
	return respondMutation(c, http.StatusOK, txn, eventTransactionsChanged, "common.saved")
}

// DeleteTransactionHandler removes an unreconciled movement
func DeleteTransactionHandler(c echo.Context) error {
	txn, err := services.GetTransaction(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteTransaction(db.DB, orgID(c), txn.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Transaction", txn.ID, txn.Label, txn, nil)
	return respondMutation(c, http.StatusOK, nil, eventTransactionsChanged, "common.deleted")
}

// CashFlowHandler returns monthly income, expense and net between ?from and ?to (default: last 6 months)
func CashFlowHandler(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, err)
	}
	end := now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, -5, 0)
	if from != nil {
		start = *from
	}
	if start.After(end) {
		return respondError(c, services.NewValidationError("from", "validation.date_order"))
	}
	months, err := services.CashFlow(db.DB, orgID(c), start, end, c.QueryParam("account_id"))
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, partials.CashflowChart(months, currency(c)))
	}
	return c.JSON(http.StatusOK, months)
}

// ForecastHandler projects the balance over ?months (1 to 24, default 6)
func ForecastHandler(c echo.Context) error {
	months := 6
	if raw := c.QueryParam("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, services.NewValidationError("months", "validation.range"))
		}
		months = v
	}
	forecast, err := services.Forecast(db.DB, orgID(c), now(), months)
	if err != nil {
		return respondError(c, err)
	}
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, forecast)
	}
	view := components.TableView{
		ID: "forecast-table",
		Columns: []string{tr(c, "fields.month"), tr(c, "treasury.expected_income"), tr(c, "treasury.expected_expense"),
			tr(c, "treasury.invoices_due"), tr(c, "treasury.net"), tr(c, "treasury.projected_balance")},
	}
	for _, m := range forecast {
		view.Rows = append(view.Rows, components.Row{Cells: []string{m.Month, money(c, m.ExpectedIncome), money(c, m.ExpectedExpense),
			money(c, m.InvoicesDue), money(c, m.Net), money(c, m.ProjectedBalance)}})
	}
	return render(c, http.StatusOK, components.Table(view))
}
