package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/services/importer"
	"biz_flow_app_go/templates/components"
	"biz_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	eventCloseImportModal = "closeImportModal"
)

// importEvents maps an import kind to the lists it refreshes
var importEvents = map[string]string{
	importer.KindCompanies:    eventCompaniesChanged,
	importer.KindContacts:     eventContactsChanged,
	importer.KindTestimonials: eventTestimonialsChanged,
}

func importKind(c echo.Context) (string, error) {
	kind := c.Param("kind")
	if !importer.IsValidKind(kind) {
		return "", services.ErrNotFound
	}
	return kind, nil
}

func sendWorkbook(c echo.Context, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, xlsxContentType, body)
}

// GetImportTemplateHandler serves the Excel template of an import kind
func GetImportTemplateHandler(c echo.Context) error {
	kind, err := importKind(c)
	if err != nil {
		return respondError(c, err)
	}
	buf, err := importer.GenerateTemplate(reqCtx(c), kind)
	if err != nil {
		return respondError(c, err)
	}
	return sendWorkbook(c, fmt.Sprintf("%s_import_template_%s.xlsx", kind, i18n.GetLocale(reqCtx(c))), buf.Bytes())
}

// ImportModalHandler renders the upload dialog
func ImportModalHandler(c echo.Context) error {
	kind, err := importKind(c)
	if err != nil {
		return respondError(c, err)
	}
	return render(c, http.StatusOK, partials.ImportModal(kind, middleware.GetCSRFToken(c)))
}

// ImportHandler loads an uploaded .xlsx or .zip file
func ImportHandler(c echo.Context) error {
	kind, err := importKind(c)
	if err != nil {
		return respondError(c, err)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, services.NewValidationError("file", "validation.required"))
	}
	if err := services.ValidateImportUpload(file); err != nil {
		return respondError(c, err)
	}
	src, err := file.Open()
	if err != nil {
		return respondError(c, fmt.Errorf("failed to open upload: %w", err))
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, services.MaxImportSize+1))
	if err != nil {
		return respondError(c, fmt.Errorf("failed to read upload: %w", err))
	}

	result, err := importer.Import(reqCtx(c), db.DB, orgID(c), kind, file.Filename, data)
	var missing *importer.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return importFailure(c, http.StatusUnprocessableEntity, missing.Message(reqCtx(c)), nil)
	case errors.Is(err, importer.ErrAllRowsFailed):
		return importFailure(c, http.StatusUnprocessableEntity, tr(c, "import.all_failed"), result)
	case err != nil:
		if status := errorStatus(err); status != http.StatusInternalServerError {
			return importFailure(c, status, errorMessage(c, err), nil)
		}
		log.Printf("[ERROR] Import of %s failed for organization %s: %v", kind, orgID(c), err)
		return respondError(c, err)
	}

	log.Printf("[INFO] Imported %s for organization %s: %d created, %d updated, %d failed",
		kind, orgID(c), result.Created, result.Updated, result.Failed)
	audit(c, models.AuditActionImport, "Import", "", file.Filename, nil, result)

	if !isHTMX(c) {
		return c.JSON(http.StatusOK, result)
	}
	events := map[string]interface{}{importEvents[kind]: true}
	if result.Failed == 0 {
		events[eventCloseImportModal] = true
		toast(c, "success", tr(c, "import.done", map[string]interface{}{"count": result.SuccessCount()}))
	}
	trigger(c, events)
	return render(c, http.StatusOK, partials.ImportResult(result))
}

// importFailure renders the reason an import was rejected inside the modal
func importFailure(c echo.Context, status int, message string, result *importer.Result) error {
	if !isHTMX(c) {
		body := map[string]interface{}{"error": message}
		if result != nil {
			body["result"] = result
		}
		return c.JSON(status, body)
	}
	// 200 so htmx swaps the message into the modal
	if result != nil {
		return render(c, http.StatusOK, components.Func(func(ctx context.Context, hw *components.Writer) {
			hw.Component(ctx, components.Alert("error", message))
			hw.Component(ctx, partials.ImportResult(result))
		}))
	}
	return render(c, http.StatusOK, components.Alert("error", message))
}

// ExportCompaniesHandler downloads the filtered company list in the import layout
func ExportCompaniesHandler(c echo.Context) error {
	filters := services.CompanyFilters{
		Keyword: c.QueryParam("keyword"),
		Type:    c.QueryParam("type"),
		OwnerID: c.QueryParam("owner_id"),
		City:    c.QueryParam("city"),
	}
	buf, err := importer.CompaniesWorkbook(reqCtx(c), db.DB, orgID(c), filters)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionExport, "Company", "", importer.ExportCompanies, nil, filters)
	return sendWorkbook(c, fmt.Sprintf("companies_%s.xlsx", now().Format("20060102")), buf.Bytes())
}

// ExportTransactionsHandler downloads the filtered transactions
func ExportTransactionsHandler(c echo.Context) error {
	filters, err := transactionFilters(c)
	if err != nil {
		return respondError(c, err)
	}
	buf, err := importer.TransactionsWorkbook(reqCtx(c), db.DB, orgID(c), filters)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionExport, "Transaction", "", importer.ExportTransactions, nil, filters)
	return sendWorkbook(c, fmt.Sprintf("transactions_%s.xlsx", now().Format("20060102")), buf.Bytes())
}
