package handlers

import (
	"fmt"
	"net/http"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
)

const eventInvoicesChanged = "invoicesChanged"

type invoiceRequest struct {
	CompanyID string                      `json:"company_id" form:"company_id"`
	ProjectID string                      `json:"project_id" form:"project_id"`
	IssueDate Date                        `json:"issue_date" form:"issue_date"`
	DueDate   Date                        `json:"due_date" form:"due_date"`
	Currency  string                      `json:"currency" form:"currency"`
	TaxRate   OptFloat                    `json:"tax_rate" form:"tax_rate"`
	Notes     string                      `json:"notes" form:"notes"`
	Lines     []services.InvoiceLineInput `json:"lines"`

	// Forms post the lines as parallel repeated fields
	LineDescriptions []string  `json:"-" form:"line_description"`
	LineQuantities   []float64 `json:"-" form:"line_quantity"`
	LineUnitPrices   []float64 `json:"-" form:"line_unit_price"`
}

func (r invoiceRequest) input(c echo.Context) services.InvoiceInput {
	lines := r.Lines
	for i, desc := range r.LineDescriptions {
		line := services.InvoiceLineInput{Description: desc, Quantity: 1}
		if i < len(r.LineQuantities) {
			line.Quantity = r.LineQuantities[i]
		}
		if i < len(r.LineUnitPrices) {
			line.UnitPrice = r.LineUnitPrices[i]
		}
		if desc == "" && line.UnitPrice == 0 {
			continue
		}
		lines = append(lines, line)
	}
	in := services.InvoiceInput{
		CompanyID: r.CompanyID,
		ProjectID: optional(&r.ProjectID),
		IssueDate: r.IssueDate.Time,
		DueDate:   r.DueDate.Time,
		Currency:  r.Currency,
		TaxRate:   r.TaxRate.Value,
		Notes:     r.Notes,
		Lines:     lines,
	}
	if in.Currency == "" {
		in.Currency = currency(c)
	}
	return in
}

// ListInvoicesHandler lists invoices filtered by status, company, project, keyword and issue period
func ListInvoicesHandler(c echo.Context) error {
	page, limit := pageParams(c)
	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, err)
	}
	filters := services.InvoiceFilters{
		Status:    c.QueryParam("status"),
		CompanyID: c.QueryParam("company_id"),
		ProjectID: c.QueryParam("project_id"),
		Keyword:   c.QueryParam("keyword"),
		From:      from,
		To:        to,
	}
	invoices, total, err := services.ListInvoices(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "invoices-table",
		Columns: []string{tr(c, "fields.number"), tr(c, "fields.company"), tr(c, "fields.issue_date"),
			tr(c, "fields.due_date"), tr(c, "fields.total"), tr(c, "fields.status")},
	}
	for _, inv := range invoices {
		company := ""
		if inv.Company != nil {
			company = inv.Company.Name
		}
		issue, due := inv.IssueDate, inv.DueDate
		row := components.Row{
			ID:    inv.ID,
			Link:  "/api/v1/treasury/invoices/" + inv.ID + "/pdf",
			Cells: []string{inv.Number, company, formatDate(&issue), formatDate(&due), services.FormatMoney(inv.Total, inv.Currency), tr(c, "invoice_statuses."+inv.Status)},
		}
		base := "/api/v1/treasury/invoices/" + inv.ID
		if user != nil && user.Can("invoices:write") {
			switch inv.Status {
			case models.InvoiceStatusDraft:
				row.Actions = append(row.Actions,
					components.Action{Label: tr(c, "invoices.send"), Method: "post", URL: base + "/send", Confirm: tr(c, "invoices.confirm_send")},
					components.Action{Label: tr(c, "invoices.cancel"), Method: "put", URL: base + "/cancel", Confirm: tr(c, "invoices.confirm_cancel")},
				)
			case models.InvoiceStatusSent, models.InvoiceStatusOverdue:
				row.Actions = append(row.Actions,
					components.Action{Label: tr(c, "invoices.resend"), Method: "post", URL: base + "/send"},
					components.Action{Label: tr(c, "invoices.cancel"), Method: "put", URL: base + "/cancel", Confirm: tr(c, "invoices.confirm_cancel")},
				)
			}
		}
		if user != nil && user.Can("invoices:delete") && inv.Status == models.InvoiceStatusDraft {
			row.Actions = append(row.Actions, deleteAction(c, base))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, invoices, total, page, limit, view)
}

// GetInvoiceHandler returns an invoice with its lines
func GetInvoiceHandler(c echo.Context) error {
	inv, err := services.GetInvoice(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

// CreateInvoiceHandler drafts an invoice numbered INV-YYYY-NNNNN
func CreateInvoiceHandler(c echo.Context) error {
	var req invoiceRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	inv, err := services.CreateInvoice(db.DB, orgID(c), req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Invoice", inv.ID, inv.Number, nil, inv)
	return respondMutation(c, http.StatusCreated, inv, eventInvoicesChanged, "invoices.created")
}

// UpdateInvoiceHandler edits a draft invoice
func UpdateInvoiceHandler(c echo.Context) error {
	var req invoiceRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetInvoice(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	inv, err := services.UpdateInvoice(db.DB, orgID(c), before.ID, req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Invoice", inv.ID, inv.Number, before, inv)
	return respondMutation(c, http.StatusOK, inv, eventInvoicesChanged, "common.saved")
}

// DeleteInvoiceHandler removes a draft invoice
func DeleteInvoiceHandler(c echo.Context) error {
	inv, err := services.GetInvoice(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteInvoice(db.DB, orgID(c), inv.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Invoice", inv.ID, inv.Number, inv, nil)
	return respondMutation(c, http.StatusOK, nil, eventInvoicesChanged, "common.deleted")
}

// SendInvoiceHandler emails the invoice PDF to the company
func SendInvoiceHandler(c echo.Context) error {
	inv, err := services.SendInvoice(reqCtx(c), db.DB, getConfig(c), orgID(c), c.Param("id"), middleware.GetLocale(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Invoice", inv.ID, inv.Number, nil, map[string]string{"status": inv.Status, "pdf_key": inv.PDFKey})
	return respondMutation(c, http.StatusOK, inv, eventInvoicesChanged, "invoices.sent")
}

type paymentRequest struct {
	AccountID  string `json:"account_id" form:"account_id"`
	CategoryID string `json:"category_id" form:"category_id"`
	PaidAt     Date   `json:"paid_at" form:"paid_at"`
}

// PayInvoiceHandler marks an invoice paid and books the income on a bank account
func PayInvoiceHandler(c echo.Context) error {
	var req paymentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	inv, txn, err := services.MarkInvoicePaid(db.DB, orgID(c), c.Param("id"), services.PaymentInput{
		AccountID:  req.AccountID,
		CategoryID: optional(&req.CategoryID),
		PaidAt:     req.PaidAt.Time,
	})
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Invoice", inv.ID, inv.Number, nil, map[string]string{"status": inv.Status, "transaction_id": txn.ID})
	trigger(c, map[string]interface{}{eventTransactionsChanged: true})
	return respondMutation(c, http.StatusOK, map[string]interface{}{"invoice": inv, "transaction": txn}, eventInvoicesChanged, "invoices.paid")
}

// CancelInvoiceHandler cancels a draft, sent or overdue invoice
func CancelInvoiceHandler(c echo.Context) error {
	inv, err := services.CancelInvoice(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Invoice", inv.ID, inv.Number, nil, map[string]string{"status": inv.Status})
	return respondMutation(c, http.StatusOK, inv, eventInvoicesChanged, "invoices.cancelled")
}

// InvoicePDFHandler renders the invoice PDF inline
func InvoicePDFHandler(c echo.Context) error {
	inv, err := services.GetInvoice(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	pdf, err := services.InvoicePDF(inv, middleware.GetLocale(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, inv.Number))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
