package handlers

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/grid"
	"biz_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// MaxGridRows caps the rows loaded in one spreadsheet view
const MaxGridRows = 200

const eventGridActivate = "gridActivate"

// gridSource binds a spreadsheet view to one kind of record
type gridSource struct {
	permission string
	event      string
	columns    func(c echo.Context) []grid.Column
	list       func(c echo.Context) ([]map[string]string, error)
	get        func(c echo.Context, id string) (map[string]string, error)
	save       func(c echo.Context, id, colKey, value string) error
}

var gridSources = map[string]gridSource{
	"timesheets": {
		permission: "timesheets:write",
		event:      eventTimesheetsChanged,
		columns:    timesheetColumns,
		list:       listTimesheetRows,
		get:        getTimesheetRow,
		save:       saveTimesheetCell,
	},
	"transactions": {
		permission: "treasury:write",
		event:      eventTransactionsChanged,
		columns:    transactionColumns,
		list:       listTransactionRows,
		get:        getTransactionRow,
		save:       saveTransactionCell,
	},
	"budget-lines": {
		permission: "budgets:write",
		event:      eventBudgetLinesChanged,
		columns:    budgetLineColumns,
		list:       listBudgetLineRows,
		get:        getBudgetLineRow,
		save:       saveBudgetLineCell,
	},
}

func floatPtr(v float64) *float64 { return &v }

func isoDay(t time.Time) string { return t.Format("2006-01-02") }

func formatNumber(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func parseNumber(v string) float64 {
	n, _ := strconv.ParseFloat(v, 64)
	return n
}

func parseDay(v string) time.Time {
	d, _ := time.Parse("2006-01-02", v)
	return d
}

// loadGridSource resolves the :resource param and checks the write permission
func loadGridSource(c echo.Context) (gridSource, error) {
	src, ok := gridSources[c.Param("resource")]
	if !ok {
		return src, services.ErrNotFound
	}
	user := middleware.GetCurrentUser(c)
	if user == nil || !user.Can(src.permission) {
		return src, services.ErrForbidden
	}
	return src, nil
}

// GridHandler opens the spreadsheet view of a resource, honoring the list filters
func GridHandler(c echo.Context) error {
	src, err := loadGridSource(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := src.list(c)
	if err != nil {
		return respondError(c, err)
	}
	g := grid.New(src.columns(c), rows, nil)
	if isHTMX(c) {
		return render(c, http.StatusOK, partials.GridTable(c.Param("resource"), g))
	}
	return c.JSON(http.StatusOK, g)
}

type cellRequest struct {
	Cell  string `json:"cell" form:"cell"`
	ID    string `json:"id" form:"id"`
	Value string `json:"value" form:"value"`
	// Key is the key press that ended the edit, Rows the number of rows on screen
	Key  string `json:"key" form:"key"`
	Rows int    `json:"rows" form:"rows"`
}

// UpdateGridCellHandler validates and stores one cell, then renders it back.
// When the edit ended with a navigation key the next active cell is sent as a gridActivate event.
func UpdateGridCellHandler(c echo.Context) error {
	src, err := loadGridSource(c)
	if err != nil {
		return respondError(c, err)
	}
	var req cellRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	row, col, err := grid.ParseCellKey(req.Cell)
	columns := src.columns(c)
	if err != nil || row >= MaxGridRows || col >= len(columns) {
		return respondError(c, services.NewValidationError("cell", "validation.invalid"))
	}
	if columns[col].ReadOnly || columns[col].Hidden {
		return respondError(c, services.NewValidationError("cell", "validation.read_only"))
	}
	record, err := src.get(c, req.ID)
	if err != nil {
		return respondError(c, err)
	}

	// Only the edited row is loaded; the others are placeholders for navigation
	rows := make([]map[string]string, lo.Clamp(req.Rows, row+1, MaxGridRows))
	for i := range rows {
		rows[i] = map[string]string{}
	}
	rows[row] = record
	g := grid.New(columns, rows, func(_ int, colKey, value string) error {
		return src.save(c, req.ID, colKey, value)
	})
	cell := grid.Cell{Row: row, Col: col}
	g.Active = cell

	if err := g.SetValue(cell, req.Value); err != nil {
		if _, ok := err.(*grid.CellError); !ok {
			return respondError(c, err)
		}
		if !isHTMX(c) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"cell": cell.Key(), "error": tr(c, g.Errors[cell.Key()])})
		}
		return render(c, http.StatusOK, partials.GridCell(c.Param("resource"), g, cell))
	}

	events := map[string]interface{}{src.event: true}
	if req.Key != "" {
		next := g.Navigate(req.Key)
		events[eventGridActivate] = map[string]string{"cell": next.Key()}
	}
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, map[string]string{"cell": cell.Key(), "value": g.Value(cell)})
	}
	trigger(c, events)
	return render(c, http.StatusOK, partials.GridCell(c.Param("resource"), g, cell))
}

type pasteRequest struct {
	Anchor string `json:"anchor" form:"anchor"`
	Text   string `json:"text" form:"text"`
	IDs    string `json:"ids" form:"ids"`
}

// PasteGridHandler writes tab separated clipboard text onto the grid from the anchor cell
func PasteGridHandler(c echo.Context) error {
	src, err := loadGridSource(c)
	if err != nil {
		return respondError(c, err)
	}
	var req pasteRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	row, col, err := grid.ParseCellKey(req.Anchor)
	if err != nil {
		return respondError(c, services.NewValidationError("anchor", "validation.invalid"))
	}
	ids := lo.Compact(strings.Split(req.IDs, ","))
	if len(ids) > MaxGridRows {
		ids = ids[:MaxGridRows]
	}
	rows := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		record, err := src.get(c, id)
		if err != nil {
			return respondError(c, err)
		}
		rows = append(rows, record)
	}
	g := grid.New(src.columns(c), rows, func(r int, colKey, value string) error {
		return src.save(c, rows[r]["id"], colKey, value)
	})
	g.Active = grid.Cell{Row: row, Col: col}
	res := g.Paste(g.Active, req.Text)
	if len(res.Changed) > 0 {
		audit(c, models.AuditActionUpdate, "Grid", "", c.Param("resource"), nil, res)
	}

	if !isHTMX(c) {
		return c.JSON(http.StatusOK, res)
	}
	trigger(c, map[string]interface{}{src.event: true})
	if len(res.Errors) > 0 {
		toast(c, "error", tr(c, "grid.paste_errors", map[string]interface{}{"count": len(res.Errors)}))
	} else {
		toast(c, "success", tr(c, "grid.pasted", map[string]interface{}{"count": len(res.Changed)}))
	}
	return render(c, http.StatusOK, partials.GridTable(c.Param("resource"), g))
}

// Timesheets

func timesheetColumns(c echo.Context) []grid.Column {
	return []grid.Column{
		{Key: "id", Hidden: true, ReadOnly: true},
		{Key: "employee", Label: tr(c, "fields.employee"), Type: grid.TypeText, ReadOnly: true},
		{Key: "date", Label: tr(c, "fields.date"), Type: grid.TypeDate, Required: true},
		{Key: "project", Label: tr(c, "fields.project"), Type: grid.TypeText, ReadOnly: true},
		{Key: "hours", Label: tr(c, "fields.hours"), Type: grid.TypeNumber, Required: true, Min: floatPtr(0), Max: floatPtr(24)},
		{Key: "description", Label: tr(c, "fields.description"), Type: grid.TypeText},
		{Key: "billable", Label: tr(c, "fields.billable"), Type: grid.TypeBool},
		{Key: "status", Label: tr(c, "fields.status"), Type: grid.TypeText, ReadOnly: true},
	}
}

func timesheetRow(c echo.Context, ts models.Timesheet) map[string]string {
	employee, project := "", ""
	if ts.Employee != nil {
		employee = ts.Employee.FullName()
	}
	if ts.Project != nil {
		project = ts.Project.Name
	}
	return map[string]string{
		"id":          ts.ID,
		"employee":    employee,
		"date":        isoDay(ts.Date),
		"project":     project,
		"hours":       formatNumber(ts.Hours),
		"description": ts.Description,
		"billable":    strconv.FormatBool(ts.Billable),
		"status":      tr(c, "timesheet_statuses."+ts.Status),
	}
}

func listTimesheetRows(c echo.Context) ([]map[string]string, error) {
	own, err := ownEmployeeID(c)
	if err != nil {
		return nil, err
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return nil, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return nil, err
	}
	filters := services.TimesheetFilters{
		EmployeeID: c.QueryParam("employee_id"),
		ProjectID:  c.QueryParam("project_id"),
		Status:     c.QueryParam("status"),
		From:       from,
		To:         to,
	}
	if own != "" {
		filters.EmployeeID = own
	}
	entries, _, err := services.ListTimesheets(db.DB, orgID(c), filters, 1, MaxGridRows)
	if err != nil {
		return nil, err
	}
	return lo.Map(entries, func(ts models.Timesheet, _ int) map[string]string { return timesheetRow(c, ts) }), nil
}

func getOwnTimesheet(c echo.Context, id string) (*models.Timesheet, error) {
	own, err := ownEmployeeID(c)
	if err != nil {
		return nil, err
	}
	ts, err := services.GetTimesheet(db.DB, orgID(c), id)
	if err != nil {
		return nil, err
	}
	if own != "" && ts.EmployeeID != own {
		return nil, services.ErrForbidden
	}
	return ts, nil
}

func getTimesheetRow(c echo.Context, id string) (map[string]string, error) {
	ts, err := getOwnTimesheet(c, id)
	if err != nil {
		return nil, err
	}
	return timesheetRow(c, *ts), nil
}

func saveTimesheetCell(c echo.Context, id, colKey, value string) error {
	ts, err := getOwnTimesheet(c, id)
	if err != nil {
		return err
	}
	billable := ts.Billable
	in := services.TimesheetInput{
		EmployeeID:  ts.EmployeeID,
		ProjectID:   ts.ProjectID,
		Date:        ts.Date,
		Hours:       ts.Hours,
		Description: ts.Description,
		Billable:    &billable,
	}
	switch colKey {
	case "date":
		in.Date = parseDay(value)
	case "hours":
		in.Hours = parseNumber(value)
	case "description":
		in.Description = value
	case "billable":
		b := value == "true"
		in.Billable = &b
	}
	updated, err := services.UpdateTimesheet(db.DB, orgID(c), id, in)
	if err != nil {
		return gridCellError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Timesheet", updated.ID, isoDay(updated.Date), ts, updated)
	return nil
}

// Transactions

func transactionColumns(c echo.Context) []grid.Column {
	return []grid.Column{
		{Key: "id", Hidden: true, ReadOnly: true},
		{Key: "date", Label: tr(c, "fields.date"), Type: grid.TypeDate, Required: true},
		{Key: "label", Label: tr(c, "fields.label"), Type: grid.TypeText, Required: true},
		{Key: "kind", Label: tr(c, "fields.kind"), Type: grid.TypeSelect, Required: true,
			Options: []string{models.TransactionKindIncome, models.TransactionKindExpense}},
		{Key: "amount", Label: tr(c, "fields.amount"), Type: grid.TypeNumber, Required: true, Min: floatPtr(0)},
		{Key: "account", Label: tr(c, "fields.account"), Type: grid.TypeText, ReadOnly: true},
		{Key: "reference", Label: tr(c, "fields.reference"), Type: grid.TypeText},
		{Key: "reconciled", Label: tr(c, "fields.reconciled"), Type: grid.TypeBool},
	}
}

func transactionRow(t models.Transaction) map[string]string {
	account := ""
	if t.Account != nil {
		account = t.Account.Name
	}
	return map[string]string{
		"id":         t.ID,
		"date":       isoDay(t.Date),
		"label":      t.Label,
		"kind":       t.Kind,
		"amount":     formatNumber(math.Abs(t.Amount)),
		"account":    account,
		"reference":  t.Reference,
		"reconciled": strconv.FormatBool(t.Reconciled),
	}
}

func listTransactionRows(c echo.Context) ([]map[string]string, error) {
	filters, err := transactionFilters(c)
	if err != nil {
		return nil, err
	}
	txns, _, err := services.ListTransactions(db.DB, orgID(c), filters, 1, MaxGridRows)
	if err != nil {
		return nil, err
	}
	return lo.Map(txns, func(t models.Transaction, _ int) map[string]string { return transactionRow(t) }), nil
}

func getTransactionRow(c echo.Context, id string) (map[string]string, error) {
	t, err := services.GetTransaction(db.DB, orgID(c), id)
	if err != nil {
		return nil, err
	}
	return transactionRow(*t), nil
}

func saveTransactionCell(c echo.Context, id, colKey, value string) error {
	t, err := services.GetTransaction(db.DB, orgID(c), id)
	if err != nil {
		return err
	}
	var updated *models.Transaction
	if colKey == "reconciled" {
		updated, err = services.SetReconciled(db.DB, orgID(c), id, value == "true")
	} else {
		in := services.TransactionInput{
			AccountID:  t.AccountID,
			CategoryID: t.CategoryID,
			Date:       t.Date,
			Label:      t.Label,
			Amount:     math.Abs(t.Amount),
			Kind:       t.Kind,
			Reference:  t.Reference,
			ProjectID:  t.ProjectID,
			InvoiceID:  t.InvoiceID,
		}
		switch colKey {
		case "date":
			in.Date = parseDay(value)
		case "label":
			in.Label = value
		case "kind":
			in.Kind = value
			if value != t.Kind {
				in.CategoryID = nil
			}
		case "amount":
			in.Amount = parseNumber(value)
		case "reference":
			in.Reference = value
		}
		updated, err = services.UpdateTransaction(db.DB, orgID(c), id, in)
	}
	if err != nil {
		return gridCellError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Transaction", updated.ID, updated.Label, t, updated)
	return nil
}

// Budget lines

func budgetLineColumns(c echo.Context) []grid.Column {
	return []grid.Column{
		{Key: "id", Hidden: true, ReadOnly: true},
		{Key: "category", Label: tr(c, "fields.category"), Type: grid.TypeSelect, Required: true, Options: models.BudgetCategories},
		{Key: "label", Label: tr(c, "fields.label"), Type: grid.TypeText, Required: true},
		{Key: "planned_amount", Label: tr(c, "fields.planned_amount"), Type: grid.TypeNumber, Min: floatPtr(0)},
		{Key: "actual_amount", Label: tr(c, "fields.actual_amount"), Type: grid.TypeNumber, Min: floatPtr(0)},
	}
}

func budgetLineRow(b models.BudgetLine) map[string]string {
	return map[string]string{
		"id":             b.ID,
		"category":       b.Category,
		"label":          b.Label,
		"planned_amount": formatNumber(b.PlannedAmount),
		"actual_amount":  formatNumber(b.ActualAmount),
	}
}

func listBudgetLineRows(c echo.Context) ([]map[string]string, error) {
	projectID := c.QueryParam("project_id")
	if projectID == "" {
		return nil, services.NewValidationError("project_id", "validation.required")
	}
	lines, err := services.ListBudgetLines(db.DB, orgID(c), projectID)
	if err != nil {
		return nil, err
	}
	if len(lines) > MaxGridRows {
		lines = lines[:MaxGridRows]
	}
	return lo.Map(lines, func(b models.BudgetLine, _ int) map[string]string { return budgetLineRow(b) }), nil
}

func getBudgetLineRow(c echo.Context, id string) (map[string]string, error) {
	b, err := services.GetBudgetLine(db.DB, orgID(c), id)
	if err != nil {
		return nil, err
	}
	return budgetLineRow(*b), nil
}

func saveBudgetLineCell(c echo.Context, id, colKey, value string) error {
	b, err := services.GetBudgetLine(db.DB, orgID(c), id)
	if err != nil {
		return err
	}
	in := services.BudgetLineInput{
		Category:      b.Category,
		Label:         b.Label,
		PlannedAmount: b.PlannedAmount,
		ActualAmount:  b.ActualAmount,
	}
	switch colKey {
	case "category":
		in.Category = value
	case "label":
		in.Label = value
	case "planned_amount":
		in.PlannedAmount = parseNumber(value)
	case "actual_amount":
		in.ActualAmount = parseNumber(value)
	}
	updated, err := services.UpdateBudgetLine(db.DB, orgID(c), id, in)
	if err != nil {
		return gridCellError(c, err)
	}
	audit(c, models.AuditActionUpdate, "BudgetLine", updated.ID, updated.Label, b, updated)
	return nil
}

type gridMessage string

func (m gridMessage) Error() string { return string(m) }

// gridCellError turns a service error into the message shown on the cell
func gridCellError(c echo.Context, err error) error {
	if fields := services.FieldMessages(reqCtx(c), err); len(fields) > 0 {
		keys := lo.Keys(fields)
		sort.Strings(keys)
		return gridMessage(strings.Join(lo.Map(keys, func(k string, _ int) string { return fields[k] }), "; "))
	}
	return gridMessage(services.UserMessage(reqCtx(c), err))
}
