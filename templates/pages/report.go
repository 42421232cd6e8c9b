package pages

import (
	"context"
	"strconv"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// ProjectReport is the printable status report of a project. It is rendered
// to a string and handed to the PDF generator.
func ProjectReport(p *models.Project, budget *services.BudgetSummary, deadlines []models.Deadline, currency string, now time.Time) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		t := func(key string) string { return i18n.T(ctx, key) }
		money := func(v float64) string { return services.FormatMoney(v, currency) }

		hw.Raw(`<h1>`)
		hw.Text(p.Code + " · " + p.Name)
		hw.Raw(`</h1><p class="muted">`)
		hw.Text(i18n.T(ctx, "reports.generated_on", map[string]interface{}{"date": now.Format("02/01/2006 15:04")}))
		hw.Raw(` <span class="badge">`)
		hw.Text(t("project_statuses." + p.Status))
		hw.Raw(`</span></p>`)

		client := ""
		if p.Company != nil {
			client = p.Company.Name
		}
		hw.Raw(`<table>`)
		for _, f := range []fact{
			{t("fields.company"), client},
			{t("fields.start_date"), dateValue(p.StartDate)},
			{t("fields.end_date"), dateValue(p.EndDate)},
		} {
			hw.Raw(`<tr><th>`)
			hw.Text(f.label)
			hw.Raw(`</th><td>`)
			hw.Text(f.value)
			hw.Raw(`</td></tr>`)
		}
		hw.Raw(`</table>`)

		hw.Raw(`<h2>`)
		hw.Text(t("projects.budget"))
		hw.Raw(`</h2><table><tr><th>`)
		hw.Text(t("fields.category"))
		hw.Raw(`</th><th class="num">`)
		hw.Text(t("fields.planned_amount"))
		hw.Raw(`</th><th class="num">`)
		hw.Text(t("fields.actual_amount"))
		hw.Raw(`</th></tr>`)
		for _, c := range budget.ByCategory {
			hw.Raw(`<tr><td>`)
			hw.Text(t("budget_categories." + c.Category))
			hw.Raw(`</td><td class="num">`)
			hw.Text(money(c.Planned))
			hw.Raw(`</td><td class="num">`)
			hw.Text(money(c.Actual))
			hw.Raw(`</td></tr>`)
		}
		hw.Raw(`<tr><td>`)
		hw.Text(t("reports.labour") + " (" + services.FormatQuantity(budget.LabourHours) + " h)")
		hw.Raw(`</td><td></td><td class="num">`)
		hw.Text(money(budget.LabourCost))
		hw.Raw(`</td></tr></table><p>`)
		hw.Text(t("fields.budget") + " : " + money(budget.Budget) + " · " + t("fields.spent") + " : " + money(budget.Spent) + " · ")
		if budget.OverBudget {
			hw.Raw(`<span class="over">`)
		} else {
			hw.Raw(`<span>`)
		}
		hw.Text(t("fields.variance") + " : " + money(budget.Variance) + " (" + components.Percent(budget.ConsumptionPercent) + ")")
		hw.Raw(`</span></p>`)

		hw.Raw(`<h2>`)
		hw.Text(t("projects.deadlines"))
		hw.Raw(`</h2>`)
		if len(deadlines) == 0 {
			hw.Raw(`<p class="muted">`)
			hw.Text(t("common.empty"))
			hw.Raw(`</p>`)
			return
		}
		hw.Raw(`<table><tr><th>`)
		hw.Text(t("fields.title"))
		hw.Raw(`</th><th>`)
		hw.Text(t("fields.due_date"))
		hw.Raw(`</th><th>`)
		hw.Text(t("fields.status"))
		hw.Raw(`</th><th class="num">`)
		hw.Text(t("fields.days_left"))
		hw.Raw(`</th></tr>`)
		for _, d := range deadlines {
			hw.Raw(`<tr><td>`)
			hw.Text(d.Title)
			hw.Raw(`</td><td>`)
			hw.Text(d.DueDate.Format("02/01/2006"))
			hw.Raw(`</td><td>`)
			hw.Text(t("deadline_statuses." + d.Status))
			hw.Raw(`</td><td class="num">`)
			if d.Status == models.DeadlineStatusPending {
				hw.Text(strconv.Itoa(d.DaysLeft(now)))
			}
			hw.Raw(`</td></tr>`)
		}
		hw.Raw(`</table>`)
	})
}
