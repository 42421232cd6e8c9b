package pages

import (
	"context"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services/dashboard"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// DashboardView is the data of the dashboard page
type DashboardView struct {
	Filters   *models.DashboardFilter
	Projects  []components.Option
	Companies []components.Option
	CSRFToken string
	// Grid is the pre-rendered widget grid
	Grid templ.Component
}

func filterValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Dashboard renders the global filter bar, the widget picker and the widget grid.
// The grid reloads when widgets are added or the layout is reset.
func Dashboard(view DashboardView) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		t := func(key string) string { return i18n.T(ctx, key) }
		f := view.Filters
		if f == nil {
			f = &models.DashboardFilter{}
		}

		hw.Raw(`<section class="toolbar dashboard-filters">`)
		hw.Component(ctx, components.Form(components.FormView{
			ID:     "dashboard-filters",
			Action: "/api/v1/dashboard/filters",
			Method: "put",
			Fields: []components.Field{
				{Name: "date_from", Label: t("fields.date_from"), Type: "date", Value: isoDate(f.DateFrom)},
				{Name: "date_to", Label: t("fields.date_to"), Type: "date", Value: isoDate(f.DateTo)},
				{Name: "project_id", Label: t("fields.project"), Type: "select", Options: view.Projects, Value: filterValue(f.ProjectID)},
				{Name: "company_id", Label: t("fields.company"), Type: "select", Options: view.Companies, Value: filterValue(f.CompanyID)},
			},
			Submit:    t("dashboard.apply_filters"),
			CSRFToken: view.CSRFToken,
		}))

		options := make([]components.Option, 0, len(dashboard.WidgetTypes))
		for _, wt := range dashboard.WidgetTypes {
			options = append(options, components.Option{Value: wt, Label: t("widgets." + wt)})
		}
		hw.Component(ctx, components.Form(components.FormView{
			ID:        "dashboard-add-widget",
			Action:    "/api/v1/dashboard/widgets",
			Fields:    []components.Field{{Name: "widget_type", Label: t("dashboard.add_widget"), Type: "select", Options: options, Required: true}},
			Submit:    t("dashboard.add"),
			CSRFToken: view.CSRFToken,
		}))
		hw.Raw(`<button class="btn btn-link" hx-delete="/api/v1/dashboard/layout" hx-swap="none"`)
		hw.Attr("hx-confirm", t("dashboard.confirm_reset"))
		hw.Raw(`>`)
		hw.Text(t("dashboard.reset"))
		hw.Raw(`</button></section>`)

		hw.Raw(`<div id="dashboard-container" hx-get="/api/v1/dashboard/layout" hx-trigger="dashboardLayoutChanged from:body">`)
		hw.Component(ctx, view.Grid)
		hw.Raw(`</div>`)
	})
}
