package handlers

import (
	"net/http"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

const (
	eventCompaniesChanged = "companiesChanged"
	eventContactsChanged  = "contactsChanged"
)

type companyRequest struct {
	Name     string `json:"name" form:"name"`
	LegalID  string `json:"legal_id" form:"legal_id"`
	Type     string `json:"type" form:"type"`
	Industry string `json:"industry" form:"industry"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	Website  string `json:"website" form:"website"`
	Address  string `json:"address" form:"address"`
	City     string `json:"city" form:"city"`
	Country  string `json:"country" form:"country"`
	Notes    string `json:"notes" form:"notes"`
	OwnerID  string `json:"owner_id" form:"owner_id"`
}

func (r companyRequest) input() services.CompanyInput {
	owner := r.OwnerID
	return services.CompanyInput{
		Name: r.Name, LegalID: r.LegalID, Type: r.Type, Industry: r.Industry,
		Email: r.Email, Phone: r.Phone, Website: r.Website, Address: r.Address,
		City: r.City, Country: r.Country, Notes: r.Notes, OwnerID: &owner,
	}
}

// ListCompaniesHandler lists companies with keyword, type and city filters
func ListCompaniesHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.CompanyFilters{
		Keyword: c.QueryParam("keyword"),
		Type:    c.QueryParam("type"),
		OwnerID: c.QueryParam("owner_id"),
		City:    c.QueryParam("city"),
	}
	companies, total, err := services.ListCompanies(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "companies-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.type"), tr(c, "fields.city"), tr(c, "fields.email"), tr(c, "fields.phone")},
	}
	for _, co := range companies {
		row := components.Row{
			ID:    co.ID,
			Link:  "/companies/" + co.ID,
			Cells: []string{co.Name, tr(c, "company_types."+co.Type), co.City, co.Email, co.Phone},
		}
		if user != nil && user.Can("companies:delete") {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/commercial/companies/"+co.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, companies, total, page, limit, view)
}

// GetCompanyHandler returns a company with its contacts
func GetCompanyHandler(c echo.Context) error {
	company, err := services.GetCompany(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, company)
}

// CreateCompanyHandler creates a company
func CreateCompanyHandler(c echo.Context) error {
	var req companyRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	company, err := services.CreateCompany(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Company", company.ID, company.Name, nil, company)
	return respondMutation(c, http.StatusCreated, company, eventCompaniesChanged, "companies.created")
}

// UpdateCompanyHandler replaces the editable fields of a company
func UpdateCompanyHandler(c echo.Context) error {
	var req companyRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetCompany(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	company, err := services.UpdateCompany(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Company", company.ID, company.Name, before, company)
	return respondMutation(c, http.StatusOK, company, eventCompaniesChanged, "common.saved")
}

// DeleteCompanyHandler soft-deletes a company
func DeleteCompanyHandler(c echo.Context) error {
	company, err := services.GetCompany(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteCompany(db.DB, orgID(c), company.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Company", company.ID, company.Name, company, nil)
	return respondMutation(c, http.StatusOK, nil, eventCompaniesChanged, "common.deleted")
}

// CompanyStatsHandler returns contacts, pipeline, project and invoicing figures of a company
func CompanyStatsHandler(c echo.Context) error {
	stats, err := services.GetCompanyStats(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, companyStatsView(c, stats))
	}
	return c.JSON(http.StatusOK, stats)
}

func companyStatsView(c echo.Context, s *services.CompanyStats) templ.Component {
	return components.Table(components.TableView{
		ID:      "company-stats",
		Columns: []string{tr(c, "companies.stats.metric"), tr(c, "companies.stats.value")},
		Rows: []components.Row{
			{Cells: []string{tr(c, "companies.stats.contacts"), count(s.Contacts)}},
			{Cells: []string{tr(c, "companies.stats.open_opportunities"), count(s.OpenOpportunities)}},
			{Cells: []string{tr(c, "companies.stats.pipeline"), money(c, s.PipelineValue)}},
			{Cells: []string{tr(c, "companies.stats.weighted"), money(c, s.WeightedPipeline)}},
			{Cells: []string{tr(c, "companies.stats.won"), money(c, s.WonValue)}},
			{Cells: []string{tr(c, "companies.stats.projects"), count(s.Projects)}},
			{Cells: []string{tr(c, "companies.stats.active_projects"), count(s.ActiveProjects)}},
			{Cells: []string{tr(c, "companies.stats.invoiced"), money(c, s.InvoicedTotal)}},
			{Cells: []string{tr(c, "companies.stats.outstanding"), money(c, s.OutstandingTotal)}},
		},
	})
}

type contactRequest struct {
	CompanyID string `json:"company_id" form:"company_id"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	JobTitle  string `json:"job_title" form:"job_title"`
	IsPrimary bool   `json:"is_primary" form:"is_primary"`
}

func (r contactRequest) input() services.ContactInput {
	return services.ContactInput{
		CompanyID: r.CompanyID, FirstName: r.FirstName, LastName: r.LastName,
		Email: r.Email, Phone: r.Phone, JobTitle: r.JobTitle, IsPrimary: r.IsPrimary,
	}
}

// ListContactsHandler lists contacts, optionally of one company
func ListContactsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	contacts, total, err := services.ListContacts(db.DB, orgID(c), c.QueryParam("company_id"), c.QueryParam("keyword"), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "contacts-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.job_title"), tr(c, "fields.email"), tr(c, "fields.phone"), tr(c, "fields.primary")},
	}
	for _, ct := range contacts {
		primary := ""
		if ct.IsPrimary {
			primary = "★"
		}
		row := components.Row{ID: ct.ID, Cells: []string{ct.FullName(), ct.JobTitle, ct.Email, ct.Phone, primary}}
		if user != nil && user.Can("contacts:write") && !ct.IsPrimary {
			row.Actions = append(row.Actions, components.Action{Label: tr(c, "contacts.make_primary"), Method: "put", URL: "/api/v1/commercial/contacts/" + ct.ID + "/primary"})
		}
		if user != nil && user.Can("contacts:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/commercial/contacts/"+ct.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, contacts, total, page, limit, view)
}

// GetContactHandler returns one contact
func GetContactHandler(c echo.Context) error {
	contact, err := services.GetContact(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contact)
}

// CreateContactHandler adds a contact to a company
func CreateContactHandler(c echo.Context) error {
	var req contactRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	contact, err := services.CreateContact(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Contact", contact.ID, contact.FullName(), nil, contact)
	return respondMutation(c, http.StatusCreated, contact, eventContactsChanged, "contacts.created")
}

// UpdateContactHandler replaces the editable fields of a contact
func UpdateContactHandler(c echo.Context) error {
	var req contactRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetContact(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if req.CompanyID == "" {
		req.CompanyID = before.CompanyID
	}
	contact, err := services.UpdateContact(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Contact", contact.ID, contact.FullName(), before, contact)
	return respondMutation(c, http.StatusOK, contact, eventContactsChanged, "common.saved")
}

// SetPrimaryContactHandler makes a contact the primary one of its company
func SetPrimaryContactHandler(c echo.Context) error {
	if err := services.SetPrimaryContact(db.DB, orgID(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	contact, err := services.GetContact(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respondMutation(c, http.StatusOK, contact, eventContactsChanged, "common.saved")
}

// DeleteContactHandler removes a contact
func DeleteContactHandler(c echo.Context) error {
	contact, err := services.GetContact(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteContact(db.DB, orgID(c), contact.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Contact", contact.ID, contact.FullName(), contact, nil)
	return respondMutation(c, http.StatusOK, nil, eventContactsChanged, "common.deleted")
}
