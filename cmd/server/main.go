package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/handlers"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/services/jobs"
	"biz_flow_app_go/services/secret"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := i18n.Load(); err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}
	i18n.SetDefault(cfg.DefaultLocale)

	if err := secret.Configure(cfg.DataEncryptionKey); err != nil {
		log.Fatalf("Invalid DATA_ENCRYPTION_KEY: %v", err)
	}
	if !secret.Enabled() && cfg.IsProduction() {
		log.Println("[WARNING] DATA_ENCRYPTION_KEY is not set, bank account IBANs are stored in clear")
	}

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.SeedOrganizationFromEnv(db.DB); err != nil {
		log.Printf("[WARNING] Failed to seed organization: %v", err)
	}

	services.InitializeStorage(cfg)
	middleware.InitAssetVersions("static")
	handlers.InitSearchService()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			"X-CSRF-Token", "HX-Request", "HX-Target", "HX-Trigger", "HX-Current-URL",
		},
		ExposeHeaders: []string{"HX-Trigger", "HX-Redirect"},
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         hstsMaxAge(cfg),
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	e.Use(echomiddleware.BodyLimit("25M"))
	e.Use(middleware.CSPNonce(cfg))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	e.Use(middleware.Locale(cfg))
	e.Use(middleware.CSRF(cfg))
	e.Use(middleware.AuditContext())

	// Static files
	e.Static("/static", "static")
	if !cfg.StorageConfigured() {
		e.Static("/uploads", cfg.UploadDir)
	}

	resetLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 5,
		Window:   15 * time.Minute,
	})

	// Public routes (no authentication required)
	e.GET("/healthz", handlers.HealthHandler)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	})
	e.GET("/login", handlers.LoginHandler)
	e.POST("/login", handlers.LoginPostHandler, middleware.LoginRateLimiter.Middleware())
	e.GET("/forgot-password", handlers.ForgotPasswordHandler)
	e.POST("/forgot-password", handlers.ForgotPasswordPostHandler, resetLimiter.Middleware())
	e.GET("/reset-password", handlers.ResetPasswordHandler)
	e.POST("/reset-password", handlers.ResetPasswordPostHandler, resetLimiter.Middleware())
	e.POST("/api/v1/auth/token", handlers.IssueTokenHandler, middleware.TokenRateLimiter.Middleware())

	// Protected routes (authentication + organization required)
	protected := e.Group("")
	protected.Use(middleware.RequireAuth())
	protected.Use(middleware.RequireOrganization())
	registerPages(protected)
	registerAPI(protected.Group("/api/v1", middleware.APIRateLimiter.Middleware()))

	// Background jobs
	scheduler := jobs.StartScheduler(db.DB, cfg)

	// Start server
	go func() {
		log.Printf("[INFO] Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[INFO] Shutting down server")
	<-scheduler.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] Server shutdown failed: %v", err)
	}
}

func hstsMaxAge(cfg *config.Config) int {
	if cfg.IsProduction() {
		return 31536000
	}
	return 0
}

// registerPages mounts the HTML pages. Each page checks the read permission of its resource.
func registerPages(g *echo.Group) {
	perm := middleware.RequirePermission

	g.POST("/logout", handlers.LogoutHandler)
	g.GET("/dashboard", handlers.DashboardPageHandler, perm("dashboard:read"))

	g.GET("/companies", handlers.CompaniesPageHandler, perm("companies:read"))
	g.GET("/companies/:id", handlers.CompanyDetailPageHandler, perm("companies:read"))
	g.GET("/opportunities", handlers.OpportunitiesPageHandler, perm("opportunities:read"))
	g.GET("/testimonials", handlers.TestimonialsPageHandler, perm("testimonials:read"))

	g.GET("/projects", handlers.ProjectsPageHandler, perm("projects:read"))
	g.GET("/projects/:id", handlers.ProjectDetailPageHandler, perm("projects:read"))

	g.GET("/employees", handlers.EmployeesPageHandler, perm("employees:read"))
	g.GET("/timesheets", handlers.TimesheetsPageHandler, perm("timesheets:read"))

	g.GET("/treasury", handlers.TreasuryPageHandler, perm("treasury:read"))
	g.GET("/invoices", handlers.InvoicesPageHandler, perm("invoices:read"))

	g.GET("/admin/users", handlers.UsersPageHandler, perm("users:read"))
	g.GET("/admin/roles", handlers.RolesPageHandler, perm("roles:read"))
	g.GET("/admin/audit-logs", handlers.AuditLogsPageHandler, perm("audit:read"))
}

// registerAPI mounts the JSON/HTMX endpoints under /api/v1
func registerAPI(api *echo.Group) {
	perm := middleware.RequirePermission

	// Current user
	api.GET("/me", handlers.MeHandler)
	api.PUT("/me/password", handlers.ChangePasswordHandler)
	api.GET("/search", handlers.SearchHandler)

	// Notifications
	api.GET("/notifications", handlers.GetNotificationsHandler)
	api.GET("/notifications/count", handlers.NotificationCountHandler)
	api.PUT("/notifications/read-all", handlers.MarkAllNotificationsReadHandler)
	api.PUT("/notifications/:id/read", handlers.MarkNotificationReadHandler)

	// Users and roles
	api.GET("/users", handlers.ListUsersHandler, perm("users:read"))
	api.GET("/users/:id", handlers.GetUserHandler, perm("users:read"))
	api.POST("/users", handlers.CreateUserHandler, perm("users:write"))
	api.PUT("/users/:id", handlers.UpdateUserHandler, perm("users:write"))
	api.PUT("/users/:id/active", handlers.SetUserActiveHandler, perm("users:write"))
	api.DELETE("/users/:id", handlers.DeleteUserHandler, perm("users:delete"))

	api.GET("/roles", handlers.ListRolesHandler, perm("roles:read"))
	api.GET("/roles/:id", handlers.GetRoleHandler, perm("roles:read"))
	api.POST("/roles", handlers.CreateRoleHandler, perm("roles:write"))
	api.PUT("/roles/:id", handlers.UpdateRoleHandler, perm("roles:write"))
	api.DELETE("/roles/:id", handlers.DeleteRoleHandler, perm("roles:delete"))

	// Commercial
	commercial := api.Group("/commercial")
	commercial.GET("/companies", handlers.ListCompaniesHandler, perm("companies:read"))
	commercial.GET("/companies/:id", handlers.GetCompanyHandler, perm("companies:read"))
	commercial.GET("/companies/:id/stats", handlers.CompanyStatsHandler, perm("companies:read"))
	commercial.POST("/companies", handlers.CreateCompanyHandler, perm("companies:write"))
	commercial.PUT("/companies/:id", handlers.UpdateCompanyHandler, perm("companies:write"))
	commercial.DELETE("/companies/:id", handlers.DeleteCompanyHandler, perm("companies:delete"))

	commercial.GET("/contacts", handlers.ListContactsHandler, perm("contacts:read"))
	commercial.GET("/contacts/:id", handlers.GetContactHandler, perm("contacts:read"))
	commercial.POST("/contacts", handlers.CreateContactHandler, perm("contacts:write"))
	commercial.PUT("/contacts/:id", handlers.UpdateContactHandler, perm("contacts:write"))
	commercial.PUT("/contacts/:id/primary", handlers.SetPrimaryContactHandler, perm("contacts:write"))
	commercial.DELETE("/contacts/:id", handlers.DeleteContactHandler, perm("contacts:delete"))

	commercial.GET("/opportunities", handlers.ListOpportunitiesHandler, perm("opportunities:read"))
	commercial.GET("/opportunities/pipeline", handlers.PipelineHandler, perm("opportunities:read"))
	commercial.GET("/opportunities/:id", handlers.GetOpportunityHandler, perm("opportunities:read"))
	commercial.POST("/opportunities", handlers.CreateOpportunityHandler, perm("opportunities:write"))
	commercial.PUT("/opportunities/:id", handlers.UpdateOpportunityHandler, perm("opportunities:write"))
	commercial.PUT("/opportunities/:id/stage", handlers.MoveStageHandler, perm("opportunities:write"))
	commercial.DELETE("/opportunities/:id", handlers.DeleteOpportunityHandler, perm("opportunities:delete"))

	commercial.GET("/testimonials", handlers.ListTestimonialsHandler, perm("testimonials:read"))
	commercial.GET("/testimonials/:id", handlers.GetTestimonialHandler, perm("testimonials:read"))
	commercial.POST("/testimonials", handlers.CreateTestimonialHandler, perm("testimonials:write"))
	commercial.PUT("/testimonials/:id", handlers.UpdateTestimonialHandler, perm("testimonials:write"))
	commercial.PUT("/testimonials/:id/publish", handlers.PublishTestimonialHandler, perm("testimonials:approve"))
	commercial.POST("/testimonials/:id/media", handlers.UploadTestimonialMediaHandler, perm("testimonials:write"))
	commercial.DELETE("/testimonials/:id", handlers.DeleteTestimonialHandler, perm("testimonials:delete"))

	// Projects, deadlines and budgets
	api.GET("/projects", handlers.ListProjectsHandler, perm("projects:read"))
	api.GET("/projects/:id", handlers.GetProjectHandler, perm("projects:read"))
	api.POST("/projects", handlers.CreateProjectHandler, perm("projects:write"))
	api.PUT("/projects/:id", handlers.UpdateProjectHandler, perm("projects:write"))
	api.DELETE("/projects/:id", handlers.DeleteProjectHandler, perm("projects:delete"))
	api.GET("/projects/:id/budget", handlers.ProjectBudgetHandler, perm("budgets:read"))
	api.GET("/projects/:id/report.pdf", handlers.ProjectReportHandler, perm("projects:read"))

	api.GET("/projects/:id/deadlines", handlers.ListProjectDeadlinesHandler, perm("deadlines:read"))
	api.POST("/projects/:id/deadlines", handlers.CreateDeadlineHandler, perm("deadlines:write"))
	api.GET("/deadlines/upcoming", handlers.UpcomingDeadlinesHandler, perm("deadlines:read"))
	api.PUT("/deadlines/:id", handlers.UpdateDeadlineHandler, perm("deadlines:write"))
	api.PUT("/deadlines/:id/done", handlers.MarkDeadlineDoneHandler, perm("deadlines:write"))
	api.DELETE("/deadlines/:id", handlers.DeleteDeadlineHandler, perm("deadlines:delete"))

	api.GET("/projects/:id/budget-lines", handlers.ListBudgetLinesHandler, perm("budgets:read"))
	api.POST("/projects/:id/budget-lines", handlers.CreateBudgetLineHandler, perm("budgets:write"))
	api.PUT("/budget-lines/:id", handlers.UpdateBudgetLineHandler, perm("budgets:write"))
	api.DELETE("/budget-lines/:id", handlers.DeleteBudgetLineHandler, perm("budgets:delete"))

	// HR
	api.GET("/employees", handlers.ListEmployeesHandler, perm("employees:read"))
	api.GET("/employees/:id", handlers.GetEmployeeHandler, perm("employees:read"))
	api.POST("/employees", handlers.CreateEmployeeHandler, perm("employees:write"))
	api.PUT("/employees/:id", handlers.UpdateEmployeeHandler, perm("employees:write"))
	api.PUT("/employees/:id/active", handlers.SetEmployeeActiveHandler, perm("employees:write"))
	api.DELETE("/employees/:id", handlers.DeleteEmployeeHandler, perm("employees:delete"))

	api.GET("/timesheets", handlers.ListTimesheetsHandler, perm("timesheets:read"))
	api.GET("/timesheets/summary", handlers.TimesheetSummaryHandler, perm("timesheets:read"))
	api.GET("/timesheets/:id", handlers.GetTimesheetHandler, perm("timesheets:read"))
	api.POST("/timesheets", handlers.CreateTimesheetHandler, perm("timesheets:write"))
	api.PUT("/timesheets/:id", handlers.UpdateTimesheetHandler, perm("timesheets:write"))
	api.DELETE("/timesheets/:id", handlers.DeleteTimesheetHandler, perm("timesheets:delete"))
	api.PUT("/timesheets/:id/submit", handlers.SubmitTimesheetHandler, perm("timesheets:write"))
	api.PUT("/timesheets/:id/approve", handlers.ApproveTimesheetHandler, perm("timesheets:approve"))
	api.PUT("/timesheets/:id/reject", handlers.RejectTimesheetHandler, perm("timesheets:approve"))

	// Treasury and invoicing
	treasury := api.Group("/treasury")
	treasury.GET("/accounts", handlers.ListBankAccountsHandler, perm("treasury:read"))
	treasury.GET("/accounts/:id", handlers.GetBankAccountHandler, perm("treasury:read"))
	treasury.POST("/accounts", handlers.CreateBankAccountHandler, perm("treasury:write"))
	treasury.PUT("/accounts/:id", handlers.UpdateBankAccountHandler, perm("treasury:write"))
	treasury.DELETE("/accounts/:id", handlers.DeleteBankAccountHandler, perm("treasury:delete"))

	treasury.GET("/categories", handlers.ListCategoriesHandler, perm("treasury:read"))
	treasury.POST("/categories", handlers.CreateCategoryHandler, perm("treasury:write"))
	treasury.PUT("/categories/:id", handlers.UpdateCategoryHandler, perm("treasury:write"))
	treasury.DELETE("/categories/:id", handlers.DeleteCategoryHandler, perm("treasury:delete"))

	treasury.GET("/transactions", handlers.ListTransactionsHandler, perm("treasury:read"))
	treasury.GET("/transactions/:id", handlers.GetTransactionHandler, perm("treasury:read"))
	treasury.POST("/transactions", handlers.CreateTransactionHandler, perm("treasury:write"))
	treasury.PUT("/transactions/:id", handlers.UpdateTransactionHandler, perm("treasury:write"))
	treasury.PUT("/transactions/:id/reconcile", handlers.ReconcileTransactionHandler, perm("treasury:approve"))
	treasury.DELETE("/transactions/:id", handlers.DeleteTransactionHandler, perm("treasury:delete"))

	treasury.GET("/cashflow", handlers.CashFlowHandler, perm("treasury:read"))
	treasury.GET("/forecast", handlers.ForecastHandler, perm("treasury:read"))

	treasury.GET("/invoices", handlers.ListInvoicesHandler, perm("invoices:read"))
	treasury.GET("/invoices/:id", handlers.GetInvoiceHandler, perm("invoices:read"))
	treasury.GET("/invoices/:id/pdf", handlers.InvoicePDFHandler, perm("invoices:read"))
	treasury.POST("/invoices", handlers.CreateInvoiceHandler, perm("invoices:write"))
	treasury.PUT("/invoices/:id", handlers.UpdateInvoiceHandler, perm("invoices:write"))
	treasury.PUT("/invoices/:id/send", handlers.SendInvoiceHandler, perm("invoices:write"))
	treasury.PUT("/invoices/:id/pay", handlers.PayInvoiceHandler, perm("invoices:approve"))
	treasury.PUT("/invoices/:id/cancel", handlers.CancelInvoiceHandler, perm("invoices:approve"))
	treasury.DELETE("/invoices/:id", handlers.DeleteInvoiceHandler, perm("invoices:delete"))

	// Dashboard
	dash := api.Group("/dashboard", perm("dashboard:read"))
	dash.GET("/layout", handlers.GetLayoutHandler)
	dash.PUT("/layout", handlers.SaveLayoutHandler)
	dash.DELETE("/layout", handlers.ResetLayoutHandler)
	dash.POST("/widgets", handlers.AddWidgetHandler)
	dash.PATCH("/widgets/:id", handlers.UpdateWidgetHandler)
	dash.DELETE("/widgets/:id", handlers.RemoveWidgetHandler)
	dash.GET("/widgets/:type/data", handlers.WidgetDataHandler)
	dash.GET("/filters", handlers.GetFiltersHandler)
	dash.PUT("/filters", handlers.SaveFiltersHandler)
	dash.GET("/snapshot", handlers.SnapshotHandler)

	// Spreadsheet grid. Write permission is checked per resource by the handlers.
	api.GET("/grid/:resource", handlers.GridHandler)
	api.POST("/grid/:resource/cell", handlers.UpdateGridCellHandler)
	api.POST("/grid/:resource/paste", handlers.PasteGridHandler)

	// Imports and exports
	api.GET("/imports/:kind/template", handlers.GetImportTemplateHandler, perm("imports:read"))
	api.GET("/imports/:kind/modal", handlers.ImportModalHandler, perm("imports:write"))
	api.POST("/imports/:kind", handlers.ImportHandler, perm("imports:write"))
	api.GET("/exports/companies", handlers.ExportCompaniesHandler, perm("companies:read"))
	api.GET("/exports/transactions", handlers.ExportTransactionsHandler, perm("treasury:read"))

	// Audit
	api.GET("/audit-logs", handlers.ListAuditLogsHandler, perm("audit:read"))
	api.GET("/audit-logs/security-alerts", handlers.SecurityAlertsHandler, perm("audit:read"))
	api.GET("/audit-logs/:type/:id", handlers.ResourceHistoryHandler, perm("audit:read"))
}
