package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB) (*models.Organization, *models.User) {
	t.Helper()
	org := &models.Organization{Name: "Dash " + uuid.New().String()[:8]}
	require.NoError(t, db.Create(org).Error)
	user := &models.User{
		Name:           "Dana",
		Email:          "dana-" + org.ID[:8] + "@acme.test",
		Password:       "x",
		OrganizationID: &org.ID,
		Role:           models.RoleAdmin,
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return org, user
}

func TestGetLayout_StoresDefault(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)

	first, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, first, len(DefaultLayout()))
	for _, w := range first {
		assert.NotEmpty(t, w.ID)
		assert.True(t, IsKnownWidget(w.WidgetType))
	}
	require.NoError(t, ValidateLayout(first))

	second, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID, "ids are stable once stored")
}

func TestSaveLayout_Validation(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)

	id := uuid.New().String()
	_, err := SaveLayout(db, org.ID, user.ID, []models.WidgetLayout{
		{ID: id, WidgetType: WidgetKPIRevenue, X: 0, Y: 0, W: 3, H: 2},
		{ID: id, WidgetType: WidgetCashBalance, X: 3, Y: 0, W: 3, H: 2},
		{WidgetType: "weather", X: 0, Y: 2, W: 3, H: 2},
		{WidgetType: WidgetCashflowChart, X: 8, Y: 2, W: 6, H: 4},
		{WidgetType: WidgetProjectBudgets, X: 0, Y: 6, W: 0, H: 4},
		{WidgetType: WidgetTimesheetHours, X: 0, Y: 10, W: 3, H: 2, Config: "{not json"},
	})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation.duplicate_widget", verr.Fields["widgets.1.id"])
	assert.Equal(t, "validation.widget_type", verr.Fields["widgets.2"])
	assert.Equal(t, "validation.widget_bounds", verr.Fields["widgets.3"])
	assert.Equal(t, "validation.widget_bounds", verr.Fields["widgets.4"])
	assert.Equal(t, "validation.widget_config", verr.Fields["widgets.5"])
}

func TestSaveLayout_LastWriteWinsAndReset(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)

	current, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	keep := current[0].ID
	unknown := uuid.New().String()

	saved, err := SaveLayout(db, org.ID, user.ID, []models.WidgetLayout{
		{WidgetType: WidgetCashflowChart, X: 0, Y: 4, W: 12, H: 4},
		{ID: keep, WidgetType: WidgetKPIRevenue, X: 0, Y: 0, W: 4, H: 2},
		{ID: "not-a-uuid", WidgetType: WidgetKPIPipeline, X: 4, Y: 0, W: 4, H: 2},
		{ID: unknown, WidgetType: WidgetCashBalance, X: 8, Y: 0, W: 4, H: 2},
	})
	require.NoError(t, err)
	require.Len(t, saved, 4)
	assert.Equal(t, keep, saved[0].ID, "sorted by row then column")
	assert.NotEqual(t, "not-a-uuid", saved[1].ID)
	assert.NotEqual(t, unknown, saved[2].ID, "ids the user never had are replaced")

	saved, err = SaveLayout(db, org.ID, user.ID, []models.WidgetLayout{
		{WidgetType: WidgetRecentTransactions, X: 0, Y: 0, W: 6, H: 4},
	})
	require.NoError(t, err)
	stored, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, saved[0].ID, stored[0].ID)

	reset, err := ResetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, reset, len(DefaultLayout()))
}

func TestSaveLayout_ForeignWidgetID(t *testing.T) {
	db := setupTestDB(t)
	org, alice := seedUser(t, db)
	bob := &models.User{Name: "Bob", Email: "bob-" + org.ID[:8] + "@acme.test", Password: "x", OrganizationID: &org.ID, Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(bob).Error)

	aliceLayout, err := GetLayout(db, org.ID, alice.ID)
	require.NoError(t, err)
	foreign := aliceLayout[0].ID

	saved, err := SaveLayout(db, org.ID, bob.ID, []models.WidgetLayout{
		{ID: foreign, WidgetType: WidgetKPIRevenue, X: 0, Y: 0, W: 3, H: 2},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.NotEqual(t, foreign, saved[0].ID)

	still, err := GetLayout(db, org.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, foreign, still[0].ID, "the other user's widget is untouched")
	assert.Len(t, still, len(aliceLayout))
}

func TestAddWidget_FirstFreeSlot(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)

	_, err := SaveLayout(db, org.ID, user.ID, []models.WidgetLayout{
		{WidgetType: WidgetUpcomingDeadlines, X: 0, Y: 0, W: 6, H: 4},
	})
	require.NoError(t, err)

	kpi, err := AddWidget(db, org.ID, user.ID, WidgetKPIRevenue, "")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 0, 3, 2}, []int{kpi.X, kpi.Y, kpi.W, kpi.H})

	chart, err := AddWidget(db, org.ID, user.ID, WidgetCashflowChart, `{"limit":5}`)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 2}, []int{chart.X, chart.Y})

	_, err = AddWidget(db, org.ID, user.ID, "weather", "")
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	layout, _ := GetLayout(db, org.ID, user.ID)
	assert.Len(t, layout, 3)
}

func TestUpdateAndRemoveWidget(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)
	_, other := seedUser(t, db)

	layout, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	target := layout[0]

	x, w := 2, 5
	moved, err := UpdateWidget(db, org.ID, user.ID, target.ID, WidgetPatch{X: &x, W: &w})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.X)
	assert.Equal(t, 5, moved.W)
	assert.Equal(t, target.H, moved.H)

	tooWide := 11
	_, err = UpdateWidget(db, org.ID, user.ID, target.ID, WidgetPatch{X: &tooWide})
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = UpdateWidget(db, org.ID, other.ID, target.ID, WidgetPatch{X: &x})
	assert.ErrorIs(t, err, services.ErrNotFound)

	require.NoError(t, RemoveWidget(db, org.ID, user.ID, target.ID))
	after, _ := GetLayout(db, org.ID, user.ID)
	assert.Len(t, after, len(layout)-1)
	assert.ErrorIs(t, RemoveWidget(db, org.ID, user.ID, target.ID), services.ErrNotFound)
}

func TestFirstFreeSlot_WrapsToNewRow(t *testing.T) {
	full := []models.WidgetLayout{{X: 0, Y: 0, W: 12, H: 2}}
	x, y := FirstFreeSlot(full, 4, 2)
	assert.Equal(t, 0, x)
	assert.Equal(t, 2, y)
}

func TestFilters(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)

	empty, err := GetFilters(db, org.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, empty.DateFrom)

	from := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	unknown := uuid.New().String()
	_, err = SaveFilters(db, org.ID, user.ID, FilterInput{DateFrom: &from, DateTo: &to, ProjectID: &unknown})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation.date_order", verr.Fields["date_to"])
	assert.Equal(t, "validation.unknown_project", verr.Fields["project_id"])

	company, err := services.CreateCompany(db, org.ID, services.CompanyInput{Name: "Globex"})
	require.NoError(t, err)
	_, err = SaveFilters(db, org.ID, user.ID, FilterInput{DateFrom: &to, DateTo: &from, CompanyID: &company.ID})
	require.NoError(t, err)

	blankID := ""
	_, err = SaveFilters(db, org.ID, user.ID, FilterInput{DateFrom: &to, CompanyID: &blankID})
	require.NoError(t, err, "saving twice updates the same row")

	stored, err := GetFilters(db, org.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DateFrom)
	assert.True(t, stored.DateFrom.Equal(to))
	assert.Nil(t, stored.DateTo)
	assert.Nil(t, stored.CompanyID)

	other := &models.Organization{Name: "Elsewhere"}
	require.NoError(t, db.Create(other).Error)
	foreign, err := GetFilters(db, other.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, foreign.DateFrom, "filters are scoped to the organization")
	assert.Equal(t, other.ID, foreign.OrganizationID)

	_, err = SaveFilters(db, other.ID, user.ID, FilterInput{DateFrom: &from})
	require.NoError(t, err)
	stored, err = GetFilters(db, org.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.DateFrom.Equal(to), "saving in another organization keeps this one")
}

func TestPeriodOf(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	p := PeriodOf(models.DashboardFilter{}, now, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), p.To)

	p = PeriodOf(models.DashboardFilter{}, now, 6)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), p.From)

	prev := Period{From: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)}.Previous()
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), prev.From)

	from := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	p = PeriodOf(models.DashboardFilter{DateFrom: &from, DateTo: &to}, now, 1)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC), p.To)
}

func TestWidgetDataAndSnapshot(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedUser(t, db)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	account, err := services.CreateBankAccount(db, org.ID, services.BankAccountInput{Name: "Main", OpeningBalance: 100})
	require.NoError(t, err)
	_, err = services.CreateTransaction(db, org.ID, services.TransactionInput{AccountID: account.ID, Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Label: "Payment", Amount: 1000})
	require.NoError(t, err)
	_, err = services.CreateTransaction(db, org.ID, services.TransactionInput{AccountID: account.ID, Date: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), Label: "Deposit", Amount: 500})
	require.NoError(t, err)
	_, err = services.CreateTransaction(db, org.ID, services.TransactionInput{AccountID: account.ID, Date: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), Label: "Rent", Amount: -200})
	require.NoError(t, err)

	company, err := services.CreateCompany(db, org.ID, services.CompanyInput{Name: "Initech"})
	require.NoError(t, err)
	_, err = services.CreateOpportunity(db, org.ID, services.OpportunityInput{CompanyID: company.ID, Title: "Rollout", Amount: 10000, Stage: models.StageProposal})
	require.NoError(t, err)

	ctx := context.Background()
	data, err := WidgetData(ctx, db, org.ID, models.DashboardFilter{}, WidgetKPIRevenue, "", now)
	require.NoError(t, err)
	revenue := data.(*RevenueKPI)
	assert.Equal(t, 1000.0, revenue.Revenue)
	assert.Equal(t, 500.0, revenue.Previous)
	require.NotNil(t, revenue.ChangePercent)
	assert.Equal(t, 100.0, *revenue.ChangePercent)

	data, err = WidgetData(ctx, db, org.ID, models.DashboardFilter{}, WidgetKPIPipeline, "", now)
	require.NoError(t, err)
	pipeline := data.(*PipelineKPI)
	assert.Equal(t, int64(1), pipeline.OpenCount)
	assert.Equal(t, 5000.0, pipeline.Weighted)

	_, err = WidgetData(ctx, db, org.ID, models.DashboardFilter{}, "weather", "", now)
	assert.Error(t, err)

	layout, err := GetLayout(db, org.ID, user.ID)
	require.NoError(t, err)
	snapshot, err := Snapshot(ctx, db, org.ID, models.DashboardFilter{}, layout, now)
	require.NoError(t, err)
	require.Len(t, snapshot, len(layout))

	for _, w := range layout {
		switch w.WidgetType {
		case WidgetCashBalance:
			assert.Equal(t, 1400.0, snapshot[w.ID].(*CashBalance).Total)
		case WidgetCashflowChart:
			flows := snapshot[w.ID].([]services.MonthFlow)
			require.Len(t, flows, 6)
			assert.Equal(t, "2026-03", flows[5].Month)
			assert.Equal(t, 800.0, flows[5].Net)
		case WidgetRecentTransactions:
			assert.Len(t, snapshot[w.ID].([]models.Transaction), 3)
		}
	}
}
