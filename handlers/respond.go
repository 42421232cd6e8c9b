package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/grid"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/services/importer"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// now is replaced in tests
var now = time.Now

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func reqCtx(c echo.Context) context.Context {
	return c.Request().Context()
}

func tr(c echo.Context, key string, args ...map[string]interface{}) string {
	return i18n.T(c.Request().Context(), key, args...)
}

func orgID(c echo.Context) string {
	return middleware.CurrentOrganizationID(c)
}

func currency(c echo.Context) string {
	if org := middleware.GetCurrentOrganization(c); org != nil && org.Currency != "" {
		return org.Currency
	}
	return "EUR"
}

// render writes a templ component as the HTML response
func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

// trigger merges events into the HX-Trigger header
func trigger(c echo.Context, events map[string]interface{}) {
	if len(events) == 0 {
		return
	}
	header := c.Response().Header()
	if existing := header.Get("HX-Trigger"); existing != "" {
		var prev map[string]interface{}
		if err := json.Unmarshal([]byte(existing), &prev); err == nil {
			for k, v := range prev {
				if _, ok := events[k]; !ok {
					events[k] = v
				}
			}
		}
	}
	b, err := json.Marshal(events)
	if err != nil {
		log.Printf("[WARNING] failed to encode HX-Trigger: %v", err)
		return
	}
	header.Set("HX-Trigger", string(b))
}

func toast(c echo.Context, kind, message string) {
	trigger(c, map[string]interface{}{"showToast": map[string]string{"kind": kind, "message": message}})
}

// respondMutation answers a successful write. HTMX callers get a toast and the
// refresh event of the resource, API callers the JSON payload.
func respondMutation(c echo.Context, status int, payload interface{}, event, messageKey string) error {
	if isHTMX(c) {
		events := map[string]interface{}{}
		if event != "" {
			events[event] = true
		}
		if messageKey != "" {
			events["showToast"] = map[string]string{"kind": "success", "message": tr(c, messageKey)}
		}
		trigger(c, events)
		return c.NoContent(http.StatusOK)
	}
	if payload == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(status, payload)
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var verr *services.ValidationError
	var missing *importer.MissingColumnsError
	var cellErr *grid.CellError
	switch {
	case errors.As(err, &verr), errors.As(err, &missing), errors.As(err, &cellErr),
		errors.Is(err, importer.ErrAllRowsFailed), errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, grid.ErrInvalidCellKey), errors.Is(err, grid.ErrReadOnlyColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// errorMessage localizes errors the services package does not know about
func errorMessage(c echo.Context, err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
		return http.StatusText(he.Code)
	}
	var missing *importer.MissingColumnsError
	if errors.As(err, &missing) {
		return missing.Message(reqCtx(c))
	}
	var cellErr *grid.CellError
	if errors.As(err, &cellErr) {
		return tr(c, cellErr.Message)
	}
	switch {
	case errors.Is(err, importer.ErrAllRowsFailed):
		return tr(c, "import.all_failed")
	case errors.Is(err, services.ErrInvalidResetToken):
		return tr(c, "auth.reset_invalid")
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return tr(c, "auth.invalid_credentials")
	case errors.Is(err, services.ErrAccountLocked):
		return tr(c, "auth.account_locked")
	case errors.Is(err, services.ErrAccountInactive):
		return tr(c, "auth.account_inactive")
	}
	return services.UserMessage(reqCtx(c), err)
}

// respondError answers an error as JSON ({"error","fields"}) or, for HTMX, as
// an error partial plus a toast. Internal errors are logged, never exposed.
func respondError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	message := errorMessage(c, err)
	fields := services.FieldMessages(reqCtx(c), err)

	if isHTMX(c) {
		toast(c, "error", message)
		return render(c, status, components.FieldErrors(message, fields))
	}
	body := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context) error {
	return respondError(c, echo.NewHTTPError(http.StatusBadRequest, tr(c, "errors.bad_request")))
}

// bind decodes the request into dst, answering 400 on malformed input
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, tr(c, "errors.bad_request"))
	}
	return nil
}

// listResponse is the JSON envelope of paginated lists
type listResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return services.Pagination(page, limit)
}

// respondList answers a page as JSON, or as a table partial for HTMX
func respondList(c echo.Context, data interface{}, total int64, page, limit int, view components.TableView) error {
	totalPages := services.TotalPages(total, limit)
	if isHTMX(c) {
		view.Page = page
		view.TotalPages = totalPages
		view.Total = total
		if view.Endpoint == "" {
			view.Endpoint = c.Request().URL.Path
		}
		view.Query = c.QueryParams()
		return render(c, http.StatusOK, components.Table(view))
	}
	return c.JSON(http.StatusOK, listResponse{Data: data, Total: total, Page: page, Limit: limit, TotalPages: totalPages})
}

// queryDate parses an optional date query parameter
func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := services.ParseDate(raw)
	if err != nil {
		return nil, services.NewValidationError(name, "validation.date")
	}
	return &d, nil
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

// audit records a change made by the current user
func audit(c echo.Context, action models.AuditAction, resourceType, resourceID, resourceName string, oldValues, newValues interface{}) {
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), action, resourceType, resourceID, resourceName,
		string(action)+" "+resourceType, oldValues, newValues)
}

// Date binds "2006-01-02" or RFC 3339 values from forms, queries and JSON.
// The zero value means "not provided".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalParam(src string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := services.ParseDate(src)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalParam(s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Ptr returns nil for an empty date
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	v := d.Time
	return &v
}

// optional turns an empty form value into nil
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}

func money(c echo.Context, v float64) string {
	return services.FormatMoney(v, currency(c))
}

func deleteAction(c echo.Context, url string) components.Action {
	return components.Action{Label: tr(c, "common.delete"), Method: "delete", URL: url, Confirm: tr(c, "common.confirm_delete")}
}

// OptInt binds an optional integer. Empty input and JSON null stay unset.
type OptInt struct {
	Value *int
}

func (o *OptInt) UnmarshalParam(src string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		o.Value = nil
		return nil
	}
	v, err := strconv.Atoi(src)
	if err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o *OptInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OptFloat is the float counterpart of OptInt
type OptFloat struct {
	Value *float64
}

func (o *OptFloat) UnmarshalParam(src string) error {
	src = strings.TrimSpace(strings.ReplaceAll(src, ",", "."))
	if src == "" {
		o.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(src, 64)
	if err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
