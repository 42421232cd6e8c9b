package pages

import (
	"context"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

type fact struct {
	label string
	value string
}

func facts(hw *components.Writer, items []fact) {
	hw.Raw(`<dl class="facts">`)
	for _, f := range items {
		if f.value == "" {
			continue
		}
		hw.Raw(`<dt>`)
		hw.Text(f.label)
		hw.Raw(`</dt><dd>`)
		hw.Text(f.value)
		hw.Raw(`</dd>`)
	}
	hw.Raw(`</dl>`)
}

// subList renders a titled section whose table is loaded from endpoint and
// reloaded whenever event fires
func subList(ctx context.Context, hw *components.Writer, title, listID, endpoint, event string, form *components.FormView) {
	hw.Raw(`<section class="panel"><h2>`)
	hw.Text(title)
	hw.Raw(`</h2>`)
	if form != nil {
		hw.Raw(`<details class="create"><summary>`)
		hw.Text(i18n.T(ctx, "common.new"))
		hw.Raw(`</summary>`)
		hw.Component(ctx, components.Form(*form))
		hw.Raw(`</details>`)
	}
	hw.Raw(`<div`)
	hw.Attr("id", listID+"-container")
	hw.Attr("hx-get", endpoint)
	hw.Attr("hx-trigger", "load, "+event+" from:body")
	hw.Raw(`><p class="loading">`)
	hw.Text(i18n.T(ctx, "common.loading"))
	hw.Raw(`</p></div></section>`)
}

// isoDate is the value format of date inputs
func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// CompanyDetailView carries the forms a user is allowed to use on a company page
type CompanyDetailView struct {
	Company         *models.Company
	ContactForm     *components.FormView
	OpportunityForm *components.FormView
}

// CompanyDetail shows a company, its figures, contacts, opportunities and testimonials
func CompanyDetail(view CompanyDetailView) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		t := func(key string) string { return i18n.T(ctx, key) }
		co := view.Company
		facts(hw, []fact{
			{t("fields.type"), t("company_types." + co.Type)},
			{t("fields.legal_id"), co.LegalID},
			{t("fields.industry"), co.Industry},
			{t("fields.email"), co.Email},
			{t("fields.phone"), co.Phone},
			{t("fields.website"), co.Website},
			{t("fields.address"), co.Address},
			{t("fields.city"), co.City},
			{t("fields.country"), co.Country},
		})
		if co.Notes != "" {
			hw.Raw(`<p class="notes">`)
			hw.Text(co.Notes)
			hw.Raw(`</p>`)
		}

		hw.Raw(`<section class="panel"><h2>`)
		hw.Text(t("companies.stats.title"))
		hw.Raw(`</h2><div`)
		hw.Attr("hx-get", "/api/v1/commercial/companies/"+co.ID+"/stats")
		hw.Raw(` hx-trigger="load, contactsChanged from:body, opportunitiesChanged from:body"></div></section>`)

		subList(ctx, hw, t("nav.contacts"), "contacts", "/api/v1/commercial/contacts?company_id="+co.ID, "contactsChanged", view.ContactForm)
		subList(ctx, hw, t("nav.opportunities"), "opportunities", "/api/v1/commercial/opportunities?company_id="+co.ID, "opportunitiesChanged", view.OpportunityForm)
		subList(ctx, hw, t("nav.testimonials"), "testimonials", "/api/v1/commercial/testimonials?company_id="+co.ID, "testimonialsChanged", nil)
	})
}

// ProjectDetailView carries the forms a user is allowed to use on a project page
type ProjectDetailView struct {
	Project        *models.Project
	DeadlineForm   *components.FormView
	BudgetLineForm *components.FormView
	CanReport      bool
}

// ProjectDetail shows a project with its budget, deadlines and budget lines
func ProjectDetail(view ProjectDetailView) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		t := func(key string) string { return i18n.T(ctx, key) }
		p := view.Project
		client := ""
		if p.Company != nil {
			client = p.Company.Name
		}
		manager := ""
		if p.Manager != nil {
			manager = p.Manager.Name
		}
		hw.Raw(`<p>`)
		hw.Component(ctx, components.Badge(p.Status, t("project_statuses."+p.Status)))
		hw.Raw(`</p>`)
		facts(hw, []fact{
			{t("fields.code"), p.Code},
			{t("fields.company"), client},
			{t("fields.manager"), manager},
			{t("fields.start_date"), dateValue(p.StartDate)},
			{t("fields.end_date"), dateValue(p.EndDate)},
		})
		if p.Description != "" {
			// sanitized on save
			hw.Raw(`<div class="description">`, p.Description, `</div>`)
		}
		if view.CanReport {
			hw.Raw(`<p><a class="btn"`)
			hw.Attr("href", "/api/v1/projects/"+p.ID+"/report.pdf")
			hw.Raw(`>`)
			hw.Text(t("projects.download_report"))
			hw.Raw(`</a></p>`)
		}

		hw.Raw(`<section class="panel"><h2>`)
		hw.Text(t("projects.budget"))
		hw.Raw(`</h2><div`)
		hw.Attr("hx-get", "/api/v1/projects/"+p.ID+"/budget")
		hw.Raw(` hx-trigger="load, budgetLinesChanged from:body, timesheetsChanged from:body"></div></section>`)

		subList(ctx, hw, t("projects.deadlines"), "deadlines", "/api/v1/projects/"+p.ID+"/deadlines", "deadlinesChanged", view.DeadlineForm)
		subList(ctx, hw, t("projects.budget_lines"), "budget-lines", "/api/v1/projects/"+p.ID+"/budget-lines", "budgetLinesChanged", view.BudgetLineForm)
		hw.Raw(`<p><a class="btn" href="#"`)
		hw.Attr("hx-get", "/api/v1/grid/budget-lines?project_id="+p.ID)
		hw.Raw(` hx-target="#budget-lines-container">`)
		hw.Text(t("grid.open"))
		hw.Raw(`</a></p>`)
	})
}

// BudgetSummaryView renders the budget consumption of a project
func BudgetSummaryView(s *services.BudgetSummary, currency string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		t := func(key string) string { return i18n.T(ctx, key) }
		money := func(v float64) string { return services.FormatMoney(v, currency) }
		hw.Raw(`<div class="kpis">`)
		for _, k := range []fact{
			{t("fields.budget"), money(s.Budget)},
			{t("fields.spent"), money(s.Spent)},
			{t("fields.variance"), money(s.Variance)},
			{t("fields.consumption"), components.Percent(s.ConsumptionPercent)},
			{t("fields.hours"), services.FormatQuantity(s.LabourHours)},
		} {
			hw.Raw(`<div class="kpi"><span class="kpi-label">`)
			hw.Text(k.label)
			hw.Raw(`</span><strong class="kpi-value">`)
			hw.Text(k.value)
			hw.Raw(`</strong></div>`)
		}
		hw.Raw(`</div>`)
		if s.OverBudget {
			hw.Component(ctx, components.Alert("error", t("projects.over_budget")))
		}
		rows := make([]components.Row, 0, len(s.ByCategory))
		for _, c := range s.ByCategory {
			rows = append(rows, components.Row{Cells: []string{t("budget_categories." + c.Category), money(c.Planned), money(c.Actual)}})
		}
		hw.Component(ctx, components.Table(components.TableView{
			ID:      "budget-categories",
			Columns: []string{t("fields.category"), t("fields.planned_amount"), t("fields.actual_amount")},
			Rows:    rows,
		}))
	})
}
