package handlers

import (
	"context"
	"net/http"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/dashboard"
	"biz_flow_app_go/services/importer"
	"biz_flow_app_go/templates/components"
	"biz_flow_app_go/templates/pages"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// optionLimit caps the records offered in a select
const optionLimit = 500

// renderPage wraps a page body in the authenticated layout
func renderPage(c echo.Context, titleKey, active string, body templ.Component) error {
	return render(c, http.StatusOK, pages.Layout(pages.PageMeta{
		Title:        tr(c, titleKey),
		CSRFToken:    middleware.GetCSRFToken(c),
		User:         middleware.GetCurrentUser(c),
		Organization: middleware.GetCurrentOrganization(c),
		Active:       active,
	}, body))
}

func can(c echo.Context, permission string) bool {
	user := middleware.GetCurrentUser(c)
	return user != nil && user.Can(permission)
}

// formIf returns the form only when the user may submit it
func formIf(c echo.Context, permission string, form components.FormView) *components.FormView {
	if !can(c, permission) {
		return nil
	}
	form.CSRFToken = middleware.GetCSRFToken(c)
	return &form
}

// panel is a block loaded from an endpoint and refreshed on events
func panel(id, title, endpoint, trigger string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Raw(`<section class="panel"><h2>`)
		hw.Text(title)
		hw.Raw(`</h2><div`)
		hw.Attr("id", id)
		hw.Attr("hx-get", endpoint)
		hw.Attr("hx-trigger", trigger)
		hw.Raw(`></div></section>`)
	})
}

func enumOptions(c echo.Context, prefix string, values []string) []components.Option {
	return lo.Map(values, func(v string, _ int) components.Option {
		return components.Option{Value: v, Label: tr(c, prefix+v)}
	})
}

func companyOptions(c echo.Context) []components.Option {
	companies, _, err := services.ListCompanies(db.DB, orgID(c), services.CompanyFilters{}, 1, optionLimit)
	if err != nil {
		return nil
	}
	return lo.Map(companies, func(co models.Company, _ int) components.Option {
		return components.Option{Value: co.ID, Label: co.Name}
	})
}

func projectOptions(c echo.Context) []components.Option {
	projects, _, err := services.ListProjects(db.DB, orgID(c), services.ProjectFilters{}, 1, optionLimit)
	if err != nil {
		return nil
	}
	return lo.Map(projects, func(p models.Project, _ int) components.Option {
		return components.Option{Value: p.ID, Label: p.Code + " " + p.Name}
	})
}

func userOptions(c echo.Context) []components.Option {
	users, _, err := services.ListUsers(db.DB, orgID(c), services.UserFilters{}, 1, optionLimit)
	if err != nil {
		return nil
	}
	return lo.Map(users, func(u models.User, _ int) components.Option {
		return components.Option{Value: u.ID, Label: u.Name}
	})
}

func employeeOptions(c echo.Context) []components.Option {
	active := true
	employees, _, err := services.ListEmployees(db.DB, orgID(c), services.EmployeeFilters{Active: &active}, 1, optionLimit)
	if err != nil {
		return nil
	}
	return lo.Map(employees, func(e models.Employee, _ int) components.Option {
		return components.Option{Value: e.ID, Label: e.FullName()}
	})
}

func accountOptions(c echo.Context) []components.Option {
	accounts, err := services.ListBankAccounts(db.DB, orgID(c), true)
	if err != nil {
		return nil
	}
	return lo.Map(accounts, func(a models.BankAccount, _ int) components.Option {
		return components.Option{Value: a.ID, Label: a.Name}
	})
}

func categoryOptions(c echo.Context) []components.Option {
	categories, err := services.ListCategories(db.DB, orgID(c), "")
	if err != nil {
		return nil
	}
	return lo.Map(categories, func(cat models.TransactionCategory, _ int) components.Option {
		return components.Option{Value: cat.ID, Label: cat.Name + " (" + tr(c, "transaction_kinds."+cat.Kind) + ")"}
	})
}

func roleOptions(c echo.Context) []components.Option {
	roles, err := services.ListRoles(db.DB, orgID(c))
	if err != nil {
		return nil
	}
	return lo.Map(roles, func(r models.Role, _ int) components.Option {
		return components.Option{Value: r.Name, Label: r.Name}
	})
}

var companyTypes = []string{models.CompanyTypeClient, models.CompanyTypeProspect, models.CompanyTypeSupplier, models.CompanyTypePartner}

var projectStatuses = []string{models.ProjectStatusPlanned, models.ProjectStatusActive, models.ProjectStatusOnHold,
	models.ProjectStatusCompleted, models.ProjectStatusCancelled}

var transactionKinds = []string{models.TransactionKindIncome, models.TransactionKindExpense}

// DashboardPageHandler renders the configurable dashboard
func DashboardPageHandler(c echo.Context) error {
	layouts, err := dashboard.GetLayout(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	filters, err := dashboard.GetFilters(db.DB, orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	grid, err := dashboardGrid(c, layouts)
	if err != nil {
		return respondError(c, err)
	}
	return renderPage(c, "nav.dashboard", "dashboard", pages.Dashboard(pages.DashboardView{
		Filters:   filters,
		Projects:  projectOptions(c),
		Companies: companyOptions(c),
		CSRFToken: middleware.GetCSRFToken(c),
		Grid:      grid,
	}))
}

func companyForm(c echo.Context) components.FormView {
	return components.FormView{
		ID:     "company-form",
		Action: "/api/v1/commercial/companies",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "type", Label: tr(c, "fields.type"), Type: "select", Options: enumOptions(c, "company_types.", companyTypes), Value: models.CompanyTypeProspect, Required: true},
			{Name: "legal_id", Label: tr(c, "fields.legal_id")},
			{Name: "industry", Label: tr(c, "fields.industry")},
			{Name: "email", Label: tr(c, "fields.email"), Type: "email"},
			{Name: "phone", Label: tr(c, "fields.phone"), Type: "tel"},
			{Name: "website", Label: tr(c, "fields.website"), Type: "url"},
			{Name: "address", Label: tr(c, "fields.address")},
			{Name: "city", Label: tr(c, "fields.city")},
			{Name: "country", Label: tr(c, "fields.country")},
			{Name: "owner_id", Label: tr(c, "fields.owner"), Type: "select", Options: userOptions(c)},
			{Name: "notes", Label: tr(c, "fields.notes"), Type: "textarea"},
		},
		RefreshEvent: eventCompaniesChanged,
	}
}

// importButton opens the import dialog of another kind than the page's own
func importButton(c echo.Context, kind string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		if !can(c, "imports:write") {
			return
		}
		hw.Raw(`<a class="btn" href="#" hx-target="#modal"`)
		hw.Attr("hx-get", "/api/v1/imports/"+kind+"/modal")
		hw.Raw(`>`)
		hw.Text(tr(c, "import.kinds."+kind))
		hw.Raw(`</a>`)
	})
}

func importKindIf(c echo.Context, kind string) string {
	if !can(c, "imports:write") {
		return ""
	}
	return kind
}

// CompaniesPageHandler renders the company list
func CompaniesPageHandler(c echo.Context) error {
	export := ""
	if can(c, "companies:read") {
		export = importer.ExportCompanies
	}
	return renderPage(c, "nav.companies", "companies", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "companies",
		ListEndpoint: "/api/v1/commercial/companies",
		RefreshEvent: eventCompaniesChanged,
		Searchable:   true,
		Form:         formIf(c, "companies:write", companyForm(c)),
		ImportKind:   importKindIf(c, importer.KindCompanies),
		ExportKind:   export,
		Extra:        importButton(c, importer.KindContacts),
	}))
}

func contactForm(c echo.Context, companyID string) components.FormView {
	return components.FormView{
		ID:     "contact-form",
		Action: "/api/v1/commercial/contacts",
		Fields: []components.Field{
			{Name: "company_id", Type: "hidden", Value: companyID},
			{Name: "first_name", Label: tr(c, "fields.first_name"), Required: true},
			{Name: "last_name", Label: tr(c, "fields.last_name"), Required: true},
			{Name: "email", Label: tr(c, "fields.email"), Type: "email"},
			{Name: "phone", Label: tr(c, "fields.phone"), Type: "tel"},
			{Name: "job_title", Label: tr(c, "fields.job_title")},
			{Name: "is_primary", Label: tr(c, "fields.is_primary"), Type: "checkbox"},
		},
		RefreshEvent: eventContactsChanged,
	}
}

func opportunityForm(c echo.Context, companyID string) components.FormView {
	fields := []components.Field{
		{Name: "title", Label: tr(c, "fields.title"), Required: true},
		{Name: "amount", Label: tr(c, "fields.amount"), Type: "number", Step: "0.01"},
		{Name: "stage", Label: tr(c, "fields.stage"), Type: "select", Options: enumOptions(c, "stages.", models.PipelineStages), Value: models.StageLead, Required: true},
		{Name: "probability", Label: tr(c, "fields.probability"), Type: "number", Step: "1"},
		{Name: "expected_close_date", Label: tr(c, "fields.expected_close_date"), Type: "date"},
		{Name: "owner_id", Label: tr(c, "fields.owner"), Type: "select", Options: userOptions(c)},
		{Name: "notes", Label: tr(c, "fields.notes"), Type: "textarea"},
	}
	if companyID != "" {
		fields = append([]components.Field{{Name: "company_id", Type: "hidden", Value: companyID}}, fields...)
	} else {
		fields = append([]components.Field{{Name: "company_id", Label: tr(c, "fields.company"), Type: "select", Options: companyOptions(c), Required: true}}, fields...)
	}
	return components.FormView{
		ID:           "opportunity-form",
		Action:       "/api/v1/commercial/opportunities",
		Fields:       fields,
		RefreshEvent: eventOpportunitiesChanged,
	}
}

// CompanyDetailPageHandler shows one company with its contacts, deals and testimonials
func CompanyDetailPageHandler(c echo.Context) error {
	company, err := services.GetCompany(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return render(c, http.StatusOK, pages.Layout(pages.PageMeta{
		Title:        company.Name,
		CSRFToken:    middleware.GetCSRFToken(c),
		User:         middleware.GetCurrentUser(c),
		Organization: middleware.GetCurrentOrganization(c),
		Active:       "companies",
	}, pages.CompanyDetail(pages.CompanyDetailView{
		Company:         company,
		ContactForm:     formIf(c, "contacts:write", contactForm(c, company.ID)),
		OpportunityForm: formIf(c, "opportunities:write", opportunityForm(c, company.ID)),
	})))
}

// OpportunitiesPageHandler renders the deal list and the pipeline summary
func OpportunitiesPageHandler(c echo.Context) error {
	return renderPage(c, "nav.opportunities", "opportunities", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "opportunities",
		ListEndpoint: "/api/v1/commercial/opportunities",
		RefreshEvent: eventOpportunitiesChanged,
		Searchable:   true,
		Form:         formIf(c, "opportunities:write", opportunityForm(c, "")),
		Extra: panel("pipeline", tr(c, "opportunities.pipeline"), "/api/v1/commercial/opportunities/pipeline",
			"load, "+eventOpportunitiesChanged+" from:body"),
	}))
}

// TestimonialsPageHandler renders the testimonial list
func TestimonialsPageHandler(c echo.Context) error {
	form := components.FormView{
		ID:     "testimonial-form",
		Action: "/api/v1/commercial/testimonials",
		Fields: []components.Field{
			{Name: "company_id", Label: tr(c, "fields.company"), Type: "select", Options: companyOptions(c), Required: true},
			{Name: "contact_name", Label: tr(c, "fields.contact_name"), Required: true},
			{Name: "contact_title", Label: tr(c, "fields.contact_title")},
			{Name: "content", Label: tr(c, "fields.content"), Type: "textarea", Required: true},
			{Name: "rating", Label: tr(c, "fields.rating"), Type: "number", Step: "1"},
			{Name: "is_published", Label: tr(c, "fields.published"), Type: "checkbox"},
			{Name: "media", Label: tr(c, "fields.media"), Type: "file"},
		},
		RefreshEvent: eventTestimonialsChanged,
		Multipart:    true,
	}
	return renderPage(c, "nav.testimonials", "testimonials", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "testimonials",
		ListEndpoint: "/api/v1/commercial/testimonials",
		RefreshEvent: eventTestimonialsChanged,
		Form:         formIf(c, "testimonials:write", form),
		ImportKind:   importKindIf(c, importer.KindTestimonials),
	}))
}

// ProjectsPageHandler renders the project list
func ProjectsPageHandler(c echo.Context) error {
	form := components.FormView{
		ID:     "project-form",
		Action: "/api/v1/projects",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "code", Label: tr(c, "fields.code")},
			{Name: "status", Label: tr(c, "fields.status"), Type: "select", Options: enumOptions(c, "project_statuses.", projectStatuses), Value: models.ProjectStatusPlanned, Required: true},
			{Name: "company_id", Label: tr(c, "fields.company"), Type: "select", Options: companyOptions(c)},
			{Name: "manager_id", Label: tr(c, "fields.manager"), Type: "select", Options: userOptions(c)},
			{Name: "start_date", Label: tr(c, "fields.start_date"), Type: "date"},
			{Name: "end_date", Label: tr(c, "fields.end_date"), Type: "date"},
			{Name: "budget", Label: tr(c, "fields.budget"), Type: "number", Step: "0.01"},
			{Name: "description", Label: tr(c, "fields.description"), Type: "textarea"},
		},
		RefreshEvent: eventProjectsChanged,
	}
	return renderPage(c, "nav.projects", "projects", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "projects",
		ListEndpoint: "/api/v1/projects",
		RefreshEvent: eventProjectsChanged,
		Searchable:   true,
		Form:         formIf(c, "projects:write", form),
		Extra: panel("upcoming-deadlines", tr(c, "deadlines.upcoming"), "/api/v1/deadlines/upcoming",
			"load, "+eventDeadlinesChanged+" from:body"),
	}))
}

// ProjectDetailPageHandler shows one project with its budget, deadlines and report
func ProjectDetailPageHandler(c echo.Context) error {
	project, err := services.GetProject(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	deadlineForm := components.FormView{
		ID:     "deadline-form",
		Action: "/api/v1/projects/" + project.ID + "/deadlines",
		Fields: []components.Field{
			{Name: "title", Label: tr(c, "fields.title"), Required: true},
			{Name: "due_date", Label: tr(c, "fields.due_date"), Type: "date", Required: true},
			{Name: "assignee_id", Label: tr(c, "fields.assignee"), Type: "select", Options: userOptions(c)},
			{Name: "description", Label: tr(c, "fields.description"), Type: "textarea"},
		},
		RefreshEvent: eventDeadlinesChanged,
	}
	budgetForm := components.FormView{
		ID:     "budget-line-form",
		Action: "/api/v1/projects/" + project.ID + "/budget-lines",
		Fields: []components.Field{
			{Name: "category", Label: tr(c, "fields.category"), Type: "select", Options: enumOptions(c, "budget_categories.", models.BudgetCategories), Value: models.BudgetCategoryOther, Required: true},
			{Name: "label", Label: tr(c, "fields.label"), Required: true},
			{Name: "planned_amount", Label: tr(c, "fields.planned_amount"), Type: "number", Step: "0.01"},
			{Name: "actual_amount", Label: tr(c, "fields.actual_amount"), Type: "number", Step: "0.01"},
		},
		RefreshEvent: eventBudgetLinesChanged,
	}
	return render(c, http.StatusOK, pages.Layout(pages.PageMeta{
		Title:        project.Code + " " + project.Name,
		CSRFToken:    middleware.GetCSRFToken(c),
		User:         middleware.GetCurrentUser(c),
		Organization: middleware.GetCurrentOrganization(c),
		Active:       "projects",
	}, pages.ProjectDetail(pages.ProjectDetailView{
		Project:        project,
		DeadlineForm:   formIf(c, "deadlines:write", deadlineForm),
		BudgetLineForm: formIf(c, "budgets:write", budgetForm),
		CanReport:      can(c, "projects:read"),
	})))
}

// EmployeesPageHandler renders the employee list
func EmployeesPageHandler(c echo.Context) error {
	form := components.FormView{
		ID:     "employee-form",
		Action: "/api/v1/employees",
		Fields: []components.Field{
			{Name: "first_name", Label: tr(c, "fields.first_name"), Required: true},
			{Name: "last_name", Label: tr(c, "fields.last_name"), Required: true},
			{Name: "email", Label: tr(c, "fields.email"), Type: "email"},
			{Name: "phone", Label: tr(c, "fields.phone"), Type: "tel"},
			{Name: "job_title", Label: tr(c, "fields.job_title")},
			{Name: "department", Label: tr(c, "fields.department")},
			{Name: "hire_date", Label: tr(c, "fields.hire_date"), Type: "date"},
			{Name: "hourly_cost", Label: tr(c, "fields.hourly_cost"), Type: "number", Step: "0.01"},
			{Name: "user_id", Label: tr(c, "fields.user"), Type: "select", Options: userOptions(c)},
		},
		RefreshEvent: eventEmployeesChanged,
	}
	return renderPage(c, "nav.employees", "employees", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "employees",
		ListEndpoint: "/api/v1/employees",
		RefreshEvent: eventEmployeesChanged,
		Searchable:   true,
		Form:         formIf(c, "employees:write", form),
	}))
}

// TimesheetsPageHandler renders time entries, the weekly summary and the spreadsheet view
func TimesheetsPageHandler(c echo.Context) error {
	fields := []components.Field{
		{Name: "date", Label: tr(c, "fields.date"), Type: "date", Value: isoDay(now()), Required: true},
		{Name: "hours", Label: tr(c, "fields.hours"), Type: "number", Step: "0.25", Required: true},
		{Name: "project_id", Label: tr(c, "fields.project"), Type: "select", Options: projectOptions(c)},
		{Name: "description", Label: tr(c, "fields.description"), Type: "textarea"},
		{Name: "billable", Label: tr(c, "fields.billable"), Type: "checkbox", Value: "true"},
	}
	if can(c, "timesheets:approve") {
		fields = append([]components.Field{{Name: "employee_id", Label: tr(c, "fields.employee"), Type: "select", Options: employeeOptions(c)}}, fields...)
	}
	grid := ""
	if can(c, "timesheets:write") {
		grid = "timesheets"
	}
	return renderPage(c, "nav.timesheets", "timesheets", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "timesheets",
		ListEndpoint: "/api/v1/timesheets",
		RefreshEvent: eventTimesheetsChanged,
		Form: formIf(c, "timesheets:write", components.FormView{
			ID:           "timesheet-form",
			Action:       "/api/v1/timesheets",
			Fields:       fields,
			RefreshEvent: eventTimesheetsChanged,
		}),
		GridResource: grid,
		Extra: panel("timesheet-summary", tr(c, "timesheets.weekly_summary"), "/api/v1/timesheets/summary",
			"load, "+eventTimesheetsChanged+" from:body"),
	}))
}

// treasuryPanels renders the accounts, categories, cash flow and forecast blocks
func treasuryPanels(c echo.Context) templ.Component {
	accountForm := formIf(c, "treasury:write", components.FormView{
		ID:     "account-form",
		Action: "/api/v1/treasury/accounts",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "bank_name", Label: tr(c, "fields.bank_name")},
			{Name: "iban", Label: tr(c, "fields.iban")},
			{Name: "currency", Label: tr(c, "fields.currency"), Value: currency(c)},
			{Name: "opening_balance", Label: tr(c, "fields.opening_balance"), Type: "number", Step: "0.01"},
		},
		RefreshEvent: eventAccountsChanged,
	})
	categoryForm := formIf(c, "treasury:write", components.FormView{
		ID:     "category-form",
		Action: "/api/v1/treasury/categories",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "kind", Label: tr(c, "fields.kind"), Type: "select", Options: enumOptions(c, "transaction_kinds.", transactionKinds), Required: true},
			{Name: "color", Label: tr(c, "fields.color"), Type: "color"},
		},
		RefreshEvent: eventCategoriesChanged,
	})
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Component(ctx, panel("cashflow", tr(c, "treasury.cashflow"), "/api/v1/treasury/cashflow",
			"load, "+eventTransactionsChanged+" from:body"))
		hw.Component(ctx, panel("forecast", tr(c, "treasury.forecast"), "/api/v1/treasury/forecast",
			"load, "+eventTransactionsChanged+" from:body, "+eventInvoicesChanged+" from:body"))
		hw.Raw(`<div class="columns">`)
		hw.Component(ctx, pages.ResourcePage(pages.ResourcePageView{
			ListID:       "accounts",
			ListEndpoint: "/api/v1/treasury/accounts",
			RefreshEvent: eventAccountsChanged,
			Form:         accountForm,
		}))
		hw.Component(ctx, pages.ResourcePage(pages.ResourcePageView{
			ListID:       "categories",
			ListEndpoint: "/api/v1/treasury/categories",
			RefreshEvent: eventCategoriesChanged,
			Form:         categoryForm,
		}))
		hw.Raw(`</div>`)
	})
}

// TreasuryPageHandler renders bank accounts, transactions, cash flow and forecast
func TreasuryPageHandler(c echo.Context) error {
	grid := ""
	if can(c, "treasury:write") {
		grid = "transactions"
	}
	form := components.FormView{
		ID:     "transaction-form",
		Action: "/api/v1/treasury/transactions",
		Fields: []components.Field{
			{Name: "account_id", Label: tr(c, "fields.account"), Type: "select", Options: accountOptions(c), Required: true},
			{Name: "date", Label: tr(c, "fields.date"), Type: "date", Value: isoDay(now()), Required: true},
			{Name: "label", Label: tr(c, "fields.label"), Required: true},
			{Name: "kind", Label: tr(c, "fields.kind"), Type: "select", Options: enumOptions(c, "transaction_kinds.", transactionKinds), Required: true},
			{Name: "amount", Label: tr(c, "fields.amount"), Type: "number", Step: "0.01", Required: true},
			{Name: "category_id", Label: tr(c, "fields.category"), Type: "select", Options: categoryOptions(c)},
			{Name: "project_id", Label: tr(c, "fields.project"), Type: "select", Options: projectOptions(c)},
			{Name: "reference", Label: tr(c, "fields.reference")},
		},
		RefreshEvent: eventTransactionsChanged,
	}
	return renderPage(c, "nav.treasury", "treasury", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "transactions",
		ListEndpoint: "/api/v1/treasury/transactions",
		RefreshEvent: eventTransactionsChanged,
		Searchable:   true,
		Form:         formIf(c, "treasury:write", form),
		ExportKind:   importer.ExportTransactions,
		GridResource: grid,
		Extra:        treasuryPanels(c),
	}))
}

// invoiceLineRows is the number of blank line inputs of the invoice form
const invoiceLineRows = 5

// InvoicesPageHandler renders the invoice list
func InvoicesPageHandler(c echo.Context) error {
	fields := []components.Field{
		{Name: "company_id", Label: tr(c, "fields.company"), Type: "select", Options: companyOptions(c), Required: true},
		{Name: "project_id", Label: tr(c, "fields.project"), Type: "select", Options: projectOptions(c)},
		{Name: "issue_date", Label: tr(c, "fields.issue_date"), Type: "date", Value: isoDay(now()), Required: true},
		{Name: "due_date", Label: tr(c, "fields.due_date"), Type: "date", Value: isoDay(now().AddDate(0, 0, 30)), Required: true},
		{Name: "currency", Label: tr(c, "fields.currency"), Value: currency(c)},
		{Name: "tax_rate", Label: tr(c, "fields.tax_rate"), Type: "number", Step: "0.01"},
	}
	for i := 0; i < invoiceLineRows; i++ {
		fields = append(fields,
			components.Field{Name: "line_description", Label: tr(c, "fields.line_description")},
			components.Field{Name: "line_quantity", Label: tr(c, "fields.quantity"), Type: "number", Step: "0.01", Value: "1"},
			components.Field{Name: "line_unit_price", Label: tr(c, "fields.unit_price"), Type: "number", Step: "0.01", Value: "0"},
		)
	}
	fields = append(fields, components.Field{Name: "notes", Label: tr(c, "fields.notes"), Type: "textarea"})

	return renderPage(c, "nav.invoices", "invoices", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "invoices",
		ListEndpoint: "/api/v1/treasury/invoices",
		RefreshEvent: eventInvoicesChanged,
		Searchable:   true,
		Form: formIf(c, "invoices:write", components.FormView{
			ID:           "invoice-form",
			Action:       "/api/v1/treasury/invoices",
			Fields:       fields,
			RefreshEvent: eventInvoicesChanged,
		}),
	}))
}

// UsersPageHandler renders the user administration list
func UsersPageHandler(c echo.Context) error {
	form := components.FormView{
		ID:     "user-form",
		Action: "/api/v1/users",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "email", Label: tr(c, "fields.email"), Type: "email", Required: true},
			{Name: "password", Label: tr(c, "fields.password"), Type: "password", Required: true},
			{Name: "role", Label: tr(c, "fields.role"), Type: "select", Options: roleOptions(c), Value: models.RoleEmployee, Required: true},
			{Name: "language", Label: tr(c, "fields.language"), Type: "select", Options: []components.Option{{Value: "fr", Label: "Français"}, {Value: "en", Label: "English"}}},
			{Name: "employee_id", Label: tr(c, "fields.employee"), Type: "select", Options: employeeOptions(c)},
		},
		RefreshEvent: eventUsersChanged,
	}
	return renderPage(c, "nav.users", "users", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "users",
		ListEndpoint: "/api/v1/users",
		RefreshEvent: eventUsersChanged,
		Searchable:   true,
		Form:         formIf(c, "users:write", form),
	}))
}

// RolesPageHandler renders the role list with the permission picker
func RolesPageHandler(c echo.Context) error {
	var permissions []components.Option
	for _, res := range models.PermissionResources {
		for _, action := range models.PermissionActions {
			p := res + ":" + action
			if models.IsValidPermission(p) {
				permissions = append(permissions, components.Option{Value: p, Label: tr(c, "nav."+res) + " / " + tr(c, "permissions."+action)})
			}
		}
	}
	form := components.FormView{
		ID:     "role-form",
		Action: "/api/v1/roles",
		Fields: []components.Field{
			{Name: "name", Label: tr(c, "fields.name"), Required: true},
			{Name: "description", Label: tr(c, "fields.description")},
			{Name: "permissions", Label: tr(c, "fields.permissions"), Type: "multiselect", Options: permissions},
		},
		RefreshEvent: eventRolesChanged,
	}
	return renderPage(c, "nav.roles", "roles", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "roles",
		ListEndpoint: "/api/v1/roles",
		RefreshEvent: eventRolesChanged,
		Form:         formIf(c, "roles:write", form),
	}))
}

// AuditLogsPageHandler renders the audit trail and the security alerts
func AuditLogsPageHandler(c echo.Context) error {
	return renderPage(c, "nav.audit", "audit", pages.ResourcePage(pages.ResourcePageView{
		ListID:       "audit",
		ListEndpoint: "/api/v1/audit-logs",
		Searchable:   true,
		Extra:        panel("security-alerts", tr(c, "audit.security_alerts"), "/api/v1/audit-logs/security-alerts", "load, every 60s"),
	}))
}
