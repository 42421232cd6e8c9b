package handlers

import (
	"context"
	"net/http"
	"time"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services/dashboard"
	"biz_flow_app_go/templates/partials"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const (
	eventDashboardLayoutChanged  = "dashboardLayoutChanged"
	eventDashboardFiltersChanged = "dashboardFiltersChanged"

	// snapshotTimeout bounds the parallel computation of every widget
	snapshotTimeout = 10 * time.Second
)

func currentUserID(c echo.Context) string {
	if user := middleware.GetCurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

// dashboardGrid computes every widget of the layout and renders the grid
func dashboardGrid(c echo.Context, layouts []models.WidgetLayout) (templ.Component, error) {
	filters, err := dashboard.GetFilters(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(reqCtx(c), snapshotTimeout)
	defer cancel()
	data, err := dashboard.Snapshot(ctx, db.DB, orgID(c), *filters, layouts, now())
	if err != nil {
		return nil, err
	}
	return partials.DashboardGrid(layouts, data, currency(c)), nil
}

// respondLayout answers a layout as JSON, or as the rendered grid for HTMX
func respondLayout(c echo.Context, layouts []models.WidgetLayout) error {
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, map[string]interface{}{"columns": dashboard.GridColumns, "widgets": layouts})
	}
	grid, err := dashboardGrid(c, layouts)
	if err != nil {
		return respondError(c, err)
	}
	return render(c, http.StatusOK, grid)
}

// GetLayoutHandler returns the current user's widget layout
func GetLayoutHandler(c echo.Context) error {
	layouts, err := dashboard.GetLayout(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondLayout(c, layouts)
}

type layoutRequest struct {
	Widgets []models.WidgetLayout `json:"widgets"`
}

// SaveLayoutHandler replaces the whole layout after a drag and drop session
func SaveLayoutHandler(c echo.Context) error {
	var req layoutRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	layouts, err := dashboard.SaveLayout(db.DB, orgID(c), currentUserID(c), req.Widgets)
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		trigger(c, map[string]interface{}{eventDashboardLayoutChanged: true})
		return c.NoContent(http.StatusOK)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"columns": dashboard.GridColumns, "widgets": layouts})
}

// ResetLayoutHandler restores the default layout
func ResetLayoutHandler(c echo.Context) error {
	layouts, err := dashboard.ResetLayout(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondMutation(c, http.StatusOK, map[string]interface{}{"columns": dashboard.GridColumns, "widgets": layouts},
		eventDashboardLayoutChanged, "dashboard.layout_reset")
}

type addWidgetRequest struct {
	WidgetType string `json:"widget_type" form:"widget_type"`
	Config     string `json:"config" form:"config"`
}

// AddWidgetHandler places a new widget at the first free slot of the grid
func AddWidgetHandler(c echo.Context) error {
	var req addWidgetRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	w, err := dashboard.AddWidget(db.DB, orgID(c), currentUserID(c), req.WidgetType, req.Config)
	if err != nil {
		return respondError(c, err)
	}
	return respondMutation(c, http.StatusCreated, w, eventDashboardLayoutChanged, "dashboard.widget_added")
}

// UpdateWidgetHandler moves or resizes one widget
func UpdateWidgetHandler(c echo.Context) error {
	var patch dashboard.WidgetPatch
	if err := bind(c, &patch); err != nil {
		return respondError(c, err)
	}
	w, err := dashboard.UpdateWidget(db.DB, orgID(c), currentUserID(c), c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// RemoveWidgetHandler deletes a widget. HTMX callers swap the widget out with the empty body.
func RemoveWidgetHandler(c echo.Context) error {
	if err := dashboard.RemoveWidget(db.DB, orgID(c), currentUserID(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return c.HTML(http.StatusOK, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetFiltersHandler returns the saved global filters
func GetFiltersHandler(c echo.Context) error {
	filters, err := dashboard.GetFilters(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, filters)
}

type filtersRequest struct {
	DateFrom  Date   `json:"date_from" form:"date_from"`
	DateTo    Date   `json:"date_to" form:"date_to"`
	ProjectID string `json:"project_id" form:"project_id"`
	CompanyID string `json:"company_id" form:"company_id"`
}

// SaveFiltersHandler stores the global filters and refreshes every widget
func SaveFiltersHandler(c echo.Context) error {
	var req filtersRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	filters, err := dashboard.SaveFilters(db.DB, orgID(c), currentUserID(c), dashboard.FilterInput{
		DateFrom:  req.DateFrom.Ptr(),
		DateTo:    req.DateTo.Ptr(),
		ProjectID: optional(&req.ProjectID),
		CompanyID: optional(&req.CompanyID),
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondMutation(c, http.StatusOK, filters, eventDashboardFiltersChanged, "")
}

// WidgetDataHandler computes one widget. ?widget_id picks the config of a placed widget.
func WidgetDataHandler(c echo.Context) error {
	widgetType := c.Param("type")
	if !dashboard.IsKnownWidget(widgetType) {
		return respondError(c, echo.NewHTTPError(http.StatusNotFound, tr(c, "errors.not_found")))
	}
	config := ""
	if id := c.QueryParam("widget_id"); id != "" {
		layouts, err := dashboard.GetLayout(db.DB, orgID(c), currentUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if w, ok := lo.Find(layouts, func(w models.WidgetLayout) bool { return w.ID == id }); ok {
			config = w.Config
		}
	}
	filters, err := dashboard.GetFilters(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	data, err := dashboard.WidgetData(reqCtx(c), db.DB, orgID(c), *filters, widgetType, config, now())
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, partials.WidgetBody(widgetType, data, currency(c)))
	}
	return c.JSON(http.StatusOK, data)
}

// SnapshotHandler returns the data of every widget of the layout, keyed by widget id
func SnapshotHandler(c echo.Context) error {
	layouts, err := dashboard.GetLayout(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	filters, err := dashboard.GetFilters(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(reqCtx(c), snapshotTimeout)
	defer cancel()
	data, err := dashboard.Snapshot(ctx, db.DB, orgID(c), *filters, layouts, now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"widgets": layouts, "data": data})
}
