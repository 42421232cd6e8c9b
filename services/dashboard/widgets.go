package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SnapshotConcurrency bounds the widget queries running at once
const SnapshotConcurrency = 4

// Period is a half-open time range [From, To)
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Previous returns the period of the same length ending where p starts
func (p Period) Previous() Period {
	return Period{From: p.From.Add(-p.To.Sub(p.From)), To: p.From}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PeriodOf resolves the filter dates. Missing bounds default to the last
// defaultMonths calendar months up to today. DateTo is inclusive.
func PeriodOf(f models.DashboardFilter, now time.Time, defaultMonths int) Period {
	to := truncateDay(now).AddDate(0, 0, 1)
	if f.DateTo != nil {
		to = truncateDay(*f.DateTo).AddDate(0, 0, 1)
	}
	last := to.AddDate(0, 0, -1)
	from := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(defaultMonths - 1), 0)
	if f.DateFrom != nil {
		from = truncateDay(*f.DateFrom)
	}
	return Period{From: from, To: to}
}

// widgetLimit reads {"limit": n} from a widget config
func widgetLimit(config string, def int) int {
	var c struct {
		Limit int `json:"limit"`
	}
	if config == "" || json.Unmarshal([]byte(config), &c) != nil || c.Limit < 1 || c.Limit > 50 {
		return def
	}
	return c.Limit
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func changePercent(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	pct := models.RoundCents((current - previous) / previous * 100)
	return &pct
}

// RevenueKPI compares collected income with the previous period
type RevenueKPI struct {
	Period        Period   `json:"period"`
	Revenue       float64  `json:"revenue"`
	Previous      float64  `json:"previous"`
	ChangePercent *float64 `json:"change_percent"`
	Invoiced      float64  `json:"invoiced"`
	Outstanding   float64  `json:"outstanding"`
}

// PipelineKPI summarizes the open sales pipeline
type PipelineKPI struct {
	OpenCount  int64                   `json:"open_count"`
	OpenAmount float64                 `json:"open_amount"`
	Weighted   float64                 `json:"weighted"`
	WonAmount  float64                 `json:"won_amount"`
	Stages     []services.StageSummary `json:"stages"`
}

// CashBalance is the total and per-account cash position
type CashBalance struct {
	Total    float64              `json:"total"`
	Accounts []models.BankAccount `json:"accounts"`
}

// DeadlinesPanel lists upcoming deadlines and counts the overdue ones
type DeadlinesPanel struct {
	Overdue  int               `json:"overdue"`
	Upcoming []models.Deadline `json:"upcoming"`
}

// ProjectHours is the time logged on one project
type ProjectHours struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Hours       float64 `json:"hours"`
}

// TimesheetHours sums logged time in the period
type TimesheetHours struct {
	Period        Period         `json:"period"`
	Total         float64        `json:"total"`
	Billable      float64        `json:"billable"`
	PendingReview int64          `json:"pending_review"`
	ByProject     []ProjectHours `json:"by_project"`
}

func sumIncome(db *gorm.DB, organizationID, projectID string, p Period) (float64, error) {
	var total float64
	query := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("organization_id = ? AND kind = ? AND date >= ? AND date < ?", organizationID, models.TransactionKindIncome, p.From, p.To)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	err := query.Scan(&total).Error
	return models.RoundCents(total), err
}

func revenueKPI(db *gorm.DB, organizationID string, f models.DashboardFilter, now time.Time) (*RevenueKPI, error) {
	p := PeriodOf(f, now, 1)
	kpi := &RevenueKPI{Period: p}
	var err error
	if kpi.Revenue, err = sumIncome(db, organizationID, deref(f.ProjectID), p); err != nil {
		return nil, err
	}
	if kpi.Previous, err = sumIncome(db, organizationID, deref(f.ProjectID), p.Previous()); err != nil {
		return nil, err
	}
	kpi.ChangePercent = changePercent(kpi.Revenue, kpi.Previous)

	query := db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total), 0)").
		Where("organization_id = ? AND issue_date >= ? AND issue_date < ? AND status NOT IN ?",
			organizationID, p.From, p.To, []string{models.InvoiceStatusDraft, models.InvoiceStatusCancelled})
	if f.CompanyID != nil {
		query = query.Where("company_id = ?", *f.CompanyID)
	}
	if f.ProjectID != nil {
		query = query.Where("project_id = ?", *f.ProjectID)
	}
	if err := query.Scan(&kpi.Invoiced).Error; err != nil {
		return nil, err
	}
	kpi.Invoiced = models.RoundCents(kpi.Invoiced)
	if kpi.Outstanding, err = services.OutstandingTotal(db, organizationID); err != nil {
		return nil, err
	}
	return kpi, nil
}

func pipelineKPI(db *gorm.DB, organizationID string, f models.DashboardFilter) (*PipelineKPI, error) {
	stages, err := services.PipelineSummary(db, organizationID, deref(f.CompanyID))
	if err != nil {
		return nil, err
	}
	kpi := &PipelineKPI{Stages: stages}
	for _, s := range stages {
		switch s.Stage {
		case models.StageWon:
			kpi.WonAmount = s.Amount
		case models.StageLost:
		default:
			kpi.OpenCount += s.Count
			kpi.OpenAmount += s.Amount
			kpi.Weighted += s.Weighted
		}
	}
	kpi.OpenAmount = models.RoundCents(kpi.OpenAmount)
	kpi.Weighted = models.RoundCents(kpi.Weighted)
	return kpi, nil
}

func cashBalance(db *gorm.DB, organizationID string) (*CashBalance, error) {
	accounts, err := services.ListBankAccounts(db, organizationID, true)
	if err != nil {
		return nil, err
	}
	total := lo.SumBy(accounts, func(a models.BankAccount) float64 { return a.Balance })
	return &CashBalance{Total: models.RoundCents(total), Accounts: accounts}, nil
}

func deadlinesPanel(db *gorm.DB, organizationID string, f models.DashboardFilter, now time.Time, limit int) (*DeadlinesPanel, error) {
	upcoming, err := services.UpcomingDeadlines(db, organizationID, deref(f.ProjectID), now, 14*24*time.Hour, limit)
	if err != nil {
		return nil, err
	}
	overdue, err := services.OverdueDeadlines(db, organizationID, now)
	if err != nil {
		return nil, err
	}
	if f.ProjectID != nil {
		overdue = lo.Filter(overdue, func(d models.Deadline, _ int) bool { return d.ProjectID == *f.ProjectID })
	}
	return &DeadlinesPanel{Overdue: len(overdue), Upcoming: upcoming}, nil
}

func projectBudgets(db *gorm.DB, organizationID string, f models.DashboardFilter, limit int) ([]services.BudgetSummary, error) {
	query := db.Model(&models.Project{}).
		Where("organization_id = ? AND status IN ?", organizationID, []string{models.ProjectStatusActive, models.ProjectStatusOnHold})
	if f.ProjectID != nil {
		query = query.Where("id = ?", *f.ProjectID)
	}
	if f.CompanyID != nil {
		query = query.Where("company_id = ?", *f.CompanyID)
	}
	var ids []string
	if err := query.Order("name ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	summaries := make([]services.BudgetSummary, 0, len(ids))
	for _, id := range ids {
		s, err := services.GetBudgetSummary(db, organizationID, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

func timesheetHours(db *gorm.DB, organizationID string, f models.DashboardFilter, now time.Time) (*TimesheetHours, error) {
	p := PeriodOf(f, now, 1)
	query := db.Where("organization_id = ? AND date >= ? AND date < ? AND status <> ?",
		organizationID, p.From, p.To, models.TimesheetStatusRejected)
	if f.ProjectID != nil {
		query = query.Where("project_id = ?", *f.ProjectID)
	}
	var entries []models.Timesheet
	if err := query.Preload("Project").Find(&entries).Error; err != nil {
		return nil, err
	}

	out := &TimesheetHours{Period: p}
	byProject := make(map[string]*ProjectHours)
	for _, e := range entries {
		out.Total += e.Hours
		if e.Billable {
			out.Billable += e.Hours
		}
		if e.Status == models.TimesheetStatusSubmitted {
			out.PendingReview++
		}
		key := deref(e.ProjectID)
		ph, ok := byProject[key]
		if !ok {
			ph = &ProjectHours{ProjectID: key}
			if e.Project != nil {
				ph.ProjectName = e.Project.Name
			}
			byProject[key] = ph
		}
		ph.Hours += e.Hours
	}
	out.ByProject = lo.Map(lo.Values(byProject), func(ph *ProjectHours, _ int) ProjectHours { return *ph })
	sort.Slice(out.ByProject, func(i, j int) bool {
		if out.ByProject[i].Hours != out.ByProject[j].Hours {
			return out.ByProject[i].Hours > out.ByProject[j].Hours
		}
		return out.ByProject[i].ProjectName < out.ByProject[j].ProjectName
	})
	return out, nil
}

func recentTransactions(db *gorm.DB, organizationID string, f models.DashboardFilter, limit int) ([]models.Transaction, error) {
	filters := services.TransactionFilters{ProjectID: deref(f.ProjectID), From: f.DateFrom, To: f.DateTo}
	txs, _, err := services.ListTransactions(db, organizationID, filters, 1, limit)
	return txs, err
}

// WidgetData computes the payload rendered by one widget type
func WidgetData(ctx context.Context, db *gorm.DB, organizationID string, f models.DashboardFilter, widgetType, config string, now time.Time) (interface{}, error) {
	db = db.WithContext(ctx)
	switch widgetType {
	case WidgetKPIRevenue:
		return revenueKPI(db, organizationID, f, now)
	case WidgetKPIPipeline:
		return pipelineKPI(db, organizationID, f)
	case WidgetCashBalance:
		return cashBalance(db, organizationID)
	case WidgetCashflowChart:
		p := PeriodOf(f, now, 6)
		return services.CashFlow(db, organizationID, p.From, p.To.AddDate(0, 0, -1), "")
	case WidgetUpcomingDeadlines:
		return deadlinesPanel(db, organizationID, f, now, widgetLimit(config, 10))
	case WidgetProjectBudgets:
		return projectBudgets(db, organizationID, f, widgetLimit(config, 6))
	case WidgetTimesheetHours:
		return timesheetHours(db, organizationID, f, now)
	case WidgetRecentTransactions:
		return recentTransactions(db, organizationID, f, widgetLimit(config, 10))
	}
	return nil, services.NewValidationError("widget_type", "validation.widget_type")
}

// Snapshot computes the data of every widget of a layout in parallel, keyed by widget id
func Snapshot(ctx context.Context, db *gorm.DB, organizationID string, f models.DashboardFilter, layouts []models.WidgetLayout, now time.Time) (map[string]interface{}, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(SnapshotConcurrency)

	var mu sync.Mutex
	out := make(map[string]interface{}, len(layouts))
	for _, w := range layouts {
		w := w
		g.Go(func() error {
			data, err := WidgetData(gctx, db, organizationID, f, w.WidgetType, w.Config, now)
			if err != nil {
				return fmt.Errorf("widget %s: %w", w.WidgetType, err)
			}
			mu.Lock()
			out[w.ID] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
