package partials

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/dashboard"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// WidgetFrame positions one widget on the 12-column dashboard grid and
// loads its body from the widget data endpoint
func WidgetFrame(w models.WidgetLayout, body templ.Component) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Raw(`<article class="widget" draggable="true"`)
		hw.Attr("id", "widget-"+w.ID)
		hw.Attr("data-widget-id", w.ID)
		hw.Attr("style", fmt.Sprintf("grid-column: %d / span %d; grid-row: %d / span %d;", w.X+1, w.W, w.Y+1, w.H))
		hw.Raw(`><header><h2>`)
		hw.Text(i18n.T(ctx, "widgets."+w.WidgetType))
		hw.Raw(`</h2><button class="btn btn-link"`)
		hw.Attr("hx-delete", "/api/v1/dashboard/widgets/"+w.ID)
		hw.Attr("hx-target", "#widget-"+w.ID)
		hw.Raw(` hx-swap="outerHTML">×</button></header><div class="widget-body"`)
		hw.Attr("hx-get", "/api/v1/dashboard/widgets/"+w.WidgetType+"/data?widget_id="+w.ID)
		hw.Raw(` hx-trigger="dashboardFiltersChanged from:body">`)
		hw.Component(ctx, body)
		hw.Raw(`</div></article>`)
	})
}

// DashboardGrid renders every widget of a layout with its precomputed data
func DashboardGrid(layouts []models.WidgetLayout, data map[string]interface{}, currency string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Raw(`<div id="dashboard-grid" class="dashboard-grid"`)
		hw.Attr("style", fmt.Sprintf("grid-template-columns: repeat(%d, 1fr);", dashboard.GridColumns))
		hw.Raw(`>`)
		for _, w := range layouts {
			hw.Component(ctx, WidgetFrame(w, WidgetBody(w.WidgetType, data[w.ID], currency)))
		}
		hw.Raw(`</div>`)
	})
}

func kpi(hw *components.Writer, label, value string) {
	hw.Raw(`<div class="kpi"><span class="kpi-label">`)
	hw.Text(label)
	hw.Raw(`</span><strong class="kpi-value">`)
	hw.Text(value)
	hw.Raw(`</strong></div>`)
}

func table(ctx context.Context, hw *components.Writer, columns []string, rows [][]string) {
	rowsView := make([]components.Row, 0, len(rows))
	for _, r := range rows {
		rowsView = append(rowsView, components.Row{Cells: r})
	}
	hw.Component(ctx, components.Table(components.TableView{Columns: columns, Rows: rowsView}))
}

// WidgetBody renders the data of one widget type
func WidgetBody(widgetType string, data interface{}, currency string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		money := func(v float64) string { return services.FormatMoney(v, currency) }
		t := func(key string) string { return i18n.T(ctx, key) }

		switch d := data.(type) {
		case *dashboard.RevenueKPI:
			kpi(hw, t("widgets.revenue"), money(d.Revenue))
			if d.ChangePercent != nil {
				kpi(hw, t("widgets.change"), components.Percent(*d.ChangePercent))
			}
			kpi(hw, t("widgets.invoiced"), money(d.Invoiced))
			kpi(hw, t("widgets.outstanding"), money(d.Outstanding))
		case *dashboard.PipelineKPI:
			kpi(hw, t("widgets.open_opportunities"), strconv.FormatInt(d.OpenCount, 10))
			kpi(hw, t("widgets.open_amount"), money(d.OpenAmount))
			kpi(hw, t("widgets.weighted"), money(d.Weighted))
			kpi(hw, t("widgets.won"), money(d.WonAmount))
		case *dashboard.CashBalance:
			kpi(hw, t("widgets.total_cash"), money(d.Total))
			rows := make([][]string, 0, len(d.Accounts))
			for _, a := range d.Accounts {
				rows = append(rows, []string{a.Name, services.FormatMoney(a.Balance, a.Currency)})
			}
			table(ctx, hw, []string{t("fields.account"), t("fields.balance")}, rows)
		case []services.MonthFlow:
			hw.Component(ctx, CashflowChart(d, currency))
		case *dashboard.DeadlinesPanel:
			kpi(hw, t("widgets.overdue"), strconv.Itoa(d.Overdue))
			now := time.Now()
			rows := make([][]string, 0, len(d.Upcoming))
			for _, dl := range d.Upcoming {
				project := ""
				if dl.Project != nil {
					project = dl.Project.Name
				}
				rows = append(rows, []string{dl.Title, project, formatDate(dl.DueDate), strconv.Itoa(dl.DaysLeft(now))})
			}
			table(ctx, hw, []string{t("fields.title"), t("fields.project"), t("fields.due_date"), t("fields.days_left")}, rows)
		case []services.BudgetSummary:
			rows := make([][]string, 0, len(d))
			for _, b := range d {
				rows = append(rows, []string{b.ProjectCode + " " + b.ProjectName, money(b.Spent), money(b.Variance), components.Percent(b.ConsumptionPercent)})
			}
			table(ctx, hw, []string{t("fields.project"), t("fields.spent"), t("fields.variance"), t("fields.consumption")}, rows)
		case *dashboard.TimesheetHours:
			kpi(hw, t("widgets.hours_total"), services.FormatQuantity(d.Total))
			kpi(hw, t("widgets.hours_billable"), services.FormatQuantity(d.Billable))
			kpi(hw, t("widgets.pending_review"), strconv.FormatInt(d.PendingReview, 10))
			rows := make([][]string, 0, len(d.ByProject))
			for _, p := range d.ByProject {
				rows = append(rows, []string{p.ProjectName, services.FormatQuantity(p.Hours)})
			}
			table(ctx, hw, []string{t("fields.project"), t("fields.hours")}, rows)
		case []models.Transaction:
			rows := make([][]string, 0, len(d))
			for _, tx := range d {
				rows = append(rows, []string{formatDate(tx.Date), tx.Label, money(tx.Amount)})
			}
			table(ctx, hw, []string{t("fields.date"), t("fields.label"), t("fields.amount")}, rows)
		default:
			hw.Component(ctx, components.Alert("info", t("widgets.no_data")))
		}
	})
}

// CashflowChart draws the monthly income and expense bars as inline SVG
func CashflowChart(months []services.MonthFlow, currency string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		const height, barWidth, gap = 120.0, 14.0, 10.0
		max := 0.0
		for _, m := range months {
			if m.Income > max {
				max = m.Income
			}
			if m.Expense > max {
				max = m.Expense
			}
		}
		width := float64(len(months))*(2*barWidth+gap) + gap
		hw.Raw(fmt.Sprintf(`<svg class="chart" viewBox="0 0 %.0f %.0f" role="img">`, width, height+20))
		x := gap
		for _, m := range months {
			for i, v := range []float64{m.Income, m.Expense} {
				h := 0.0
				if max > 0 {
					h = v / max * height
				}
				class := "bar-income"
				if i == 1 {
					class = "bar-expense"
				}
				hw.Raw(fmt.Sprintf(`<rect class="%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f"><title>`, class, x+float64(i)*barWidth, height-h, barWidth, h))
				hw.Text(m.Month + " " + services.FormatMoney(v, currency))
				hw.Raw(`</title></rect>`)
			}
			hw.Raw(fmt.Sprintf(`<text x="%.1f" y="%.1f">`, x, height+15))
			hw.Text(m.Month[len(m.Month)-2:])
			hw.Raw(`</text>`)
			x += 2*barWidth + gap
		}
		hw.Raw(`</svg>`)
	})
}
