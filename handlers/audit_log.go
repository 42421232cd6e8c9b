package handlers

import (
	"net/http"
	"time"

	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
)

// ListAuditLogsHandler returns the organization audit trail, newest first.
// ?date_to is inclusive of the whole day.
func ListAuditLogsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.AuditLogFilters{
		UserID:       c.QueryParam("user_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		SearchQuery:  c.QueryParam("keyword"),
	}
	from, err := queryDate(c, "date_from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "date_to")
	if err != nil {
		return respondError(c, err)
	}
	if from != nil {
		filters.DateFrom = *from
	}
	if to != nil {
		filters.DateTo = to.Add(24*time.Hour - time.Nanosecond)
	}

	logs, total, err := services.GetOrganizationAuditLogs(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	view := components.TableView{
		ID: "audit-table",
		Columns: []string{tr(c, "fields.date"), tr(c, "fields.user"), tr(c, "fields.action"),
			tr(c, "fields.resource"), tr(c, "fields.name"), tr(c, "fields.ip_address")},
	}
	for _, l := range logs {
		at := l.CreatedAt
		view.Rows = append(view.Rows, components.Row{
			ID:    l.ID,
			Cells: []string{at.Format("02/01/2006 15:04"), l.UserName, tr(c, "audit.actions."+string(l.Action)), l.ResourceType, l.ResourceName, l.IPAddress},
		})
	}
	return respondList(c, logs, total, page, limit, view)
}

// ResourceHistoryHandler returns the audit history of one record
func ResourceHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(db.DB, orgID(c), c.Param("type"), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	history := make([]historyEntry, 0, len(logs))
	for i := range logs {
		history = append(history, historyEntry{AuditLog: logs[i], Changes: logs[i].Changes()})
	}
	return c.JSON(http.StatusOK, history)
}

// historyEntry is an audit log with the field diff of its old and new values
type historyEntry struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes"`
}

// SecurityAlertsHandler lists the alerts raised by the failed login monitor
func SecurityAlertsHandler(c echo.Context) error {
	alerts := services.Monitor.RecentAlerts()
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, alerts)
	}
	view := components.TableView{
		ID:      "security-alerts",
		Columns: []string{tr(c, "fields.date"), tr(c, "fields.ip_address"), tr(c, "fields.email"), tr(c, "fields.level"), tr(c, "fields.reason")},
		Total:   int64(len(alerts)),
	}
	for _, a := range alerts {
		view.Rows = append(view.Rows, components.Row{
			Cells: []string{a.Timestamp.Format("02/01/2006 15:04"), a.IP, a.Email, a.Level, a.Reason},
		})
	}
	return render(c, http.StatusOK, components.Table(view))
}
