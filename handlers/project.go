package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"
	"biz_flow_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

const (
	eventProjectsChanged    = "projectsChanged"
	eventDeadlinesChanged   = "deadlinesChanged"
	eventBudgetLinesChanged = "budgetLinesChanged"
)

type projectRequest struct {
	Code        string  `json:"code" form:"code"`
	Name        string  `json:"name" form:"name"`
	Description string  `json:"description" form:"description"`
	Status      string  `json:"status" form:"status"`
	StartDate   Date    `json:"start_date" form:"start_date"`
	EndDate     Date    `json:"end_date" form:"end_date"`
	Budget      float64 `json:"budget" form:"budget"`
	CompanyID   string  `json:"company_id" form:"company_id"`
	ManagerID   string  `json:"manager_id" form:"manager_id"`
}

func (r projectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		StartDate:   r.StartDate.Ptr(),
		EndDate:     r.EndDate.Ptr(),
		Budget:      r.Budget,
		CompanyID:   optional(&r.CompanyID),
		ManagerID:   optional(&r.ManagerID),
	}
}

// ListProjectsHandler lists projects filtered by status, company, manager or keyword
func ListProjectsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.ProjectFilters{
		Keyword:   c.QueryParam("keyword"),
		Status:    c.QueryParam("status"),
		CompanyID: c.QueryParam("company_id"),
		ManagerID: c.QueryParam("manager_id"),
	}
	projects, total, err := services.ListProjects(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "projects-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.code"), tr(c, "fields.company"), tr(c, "fields.status"),
			tr(c, "fields.start_date"), tr(c, "fields.end_date"), tr(c, "fields.budget")},
	}
	for _, p := range projects {
		company := ""
		if p.Company != nil {
			company = p.Company.Name
		}
		row := components.Row{
			ID:   p.ID,
			Link: "/projects/" + p.ID,
			Cells: []string{p.Name, p.Code, company, tr(c, "project_statuses."+p.Status),
				formatDate(p.StartDate), formatDate(p.EndDate), money(c, p.Budget)},
		}
		if user != nil && user.Can("projects:delete") {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/projects/"+p.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, projects, total, page, limit, view)
}

// GetProjectHandler returns a project with its deadlines and budget lines
func GetProjectHandler(c echo.Context) error {
	project, err := services.GetProject(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// CreateProjectHandler creates a project. An empty code gets the next PRJ-YYYY-NNNN.
func CreateProjectHandler(c echo.Context) error {
	var req projectRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	project, err := services.CreateProject(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Project", project.ID, project.Code, nil, project)
	return respondMutation(c, http.StatusCreated, project, eventProjectsChanged, "projects.created")
}

// UpdateProjectHandler replaces the editable fields of a project
func UpdateProjectHandler(c echo.Context) error {
	var req projectRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetProject(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	project, err := services.UpdateProject(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Project", project.ID, project.Code, before, project)
	return respondMutation(c, http.StatusOK, project, eventProjectsChanged, "common.saved")
}

// DeleteProjectHandler removes a project with its deadlines and budget lines
func DeleteProjectHandler(c echo.Context) error {
	project, err := services.GetProject(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteProject(db.DB, orgID(c), project.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Project", project.ID, project.Code, project, nil)
	return respondMutation(c, http.StatusOK, nil, eventProjectsChanged, "common.deleted")
}

// ProjectBudgetHandler returns planned, actual and labour figures of a project
func ProjectBudgetHandler(c echo.Context) error {
	summary, err := services.GetBudgetSummary(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, pages.BudgetSummaryView(summary, currency(c)))
	}
	return c.JSON(http.StatusOK, summary)
}

// ProjectReportHandler prints the project status report to PDF and keeps a copy in storage
func ProjectReportHandler(c echo.Context) error {
	project, err := services.GetProject(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	summary, err := services.GetBudgetSummary(db.DB, orgID(c), project.ID)
	if err != nil {
		return respondError(c, err)
	}
	deadlines, err := services.ListProjectDeadlines(db.DB, orgID(c), project.ID)
	if err != nil {
		return respondError(c, err)
	}

	var body bytes.Buffer
	if err := pages.ProjectReport(project, summary, deadlines, currency(c), now()).Render(reqCtx(c), &body); err != nil {
		return respondError(c, err)
	}
	title := project.Code + " " + project.Name
	pdf, key, err := services.GenerateProjectReport(reqCtx(c), getConfig(c), orgID(c), project.Code, title, body.String())
	if err != nil {
		return respondError(c, err)
	}
	log.Printf("[INFO] project report %s stored at %s", project.Code, key)
	audit(c, models.AuditActionExport, "Project", project.ID, project.Code, nil, map[string]string{"report_key": key})

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-report.pdf"`, project.Code))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

type deadlineRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	DueDate     Date   `json:"due_date" form:"due_date"`
	AssigneeID  string `json:"assignee_id" form:"assignee_id"`
}

func (r deadlineRequest) input() services.DeadlineInput {
	return services.DeadlineInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Time,
		AssigneeID:  optional(&r.AssigneeID),
	}
}

func deadlinesView(c echo.Context, id string, deadlines []models.Deadline) components.TableView {
	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: id,
		Columns: []string{tr(c, "fields.title"), tr(c, "fields.project"), tr(c, "fields.due_date"),
			tr(c, "fields.status"), tr(c, "fields.days_left"), tr(c, "fields.assignee")},
	}
	at := now()
	for _, d := range deadlines {
		project, assignee, left := "", "", ""
		if d.Project != nil {
			project = d.Project.Code
		}
		if d.Assignee != nil {
			assignee = d.Assignee.Name
		}
		status := tr(c, "deadline_statuses."+d.Status)
		if d.IsOverdue(at) {
			status = tr(c, "deadlines.overdue")
		}
		if d.Status == models.DeadlineStatusPending {
			left = strconv.Itoa(d.DaysLeft(at))
		}
		due := d.DueDate
		row := components.Row{ID: d.ID, Cells: []string{d.Title, project, formatDate(&due), status, left, assignee}}
		if user != nil && user.Can("deadlines:write") && d.Status != models.DeadlineStatusDone {
			row.Actions = append(row.Actions, components.Action{Label: tr(c, "deadlines.mark_done"), Method: "put", URL: "/api/v1/deadlines/" + d.ID + "/done"})
		}
		if user != nil && user.Can("deadlines:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/deadlines/"+d.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// ListProjectDeadlinesHandler lists the deadlines of a project by due date
func ListProjectDeadlinesHandler(c echo.Context) error {
	deadlines, err := services.ListProjectDeadlines(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, deadlines, int64(len(deadlines)), 1, len(deadlines)+1, deadlinesView(c, "deadlines-table", deadlines))
}

// UpcomingDeadlinesHandler lists pending deadlines due within ?days (default 14)
func UpcomingDeadlinesHandler(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))
	if days <= 0 || days > 365 {
		days = 14
	}
	_, limit := pageParams(c)
	deadlines, err := services.UpcomingDeadlines(db.DB, orgID(c), c.QueryParam("project_id"), now(), time.Duration(days)*24*time.Hour, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, deadlines, int64(len(deadlines)), 1, limit, deadlinesView(c, "upcoming-deadlines-table", deadlines))
}

// CreateDeadlineHandler adds a deadline to a project
func CreateDeadlineHandler(c echo.Context) error {
	var req deadlineRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	deadline, err := services.CreateDeadline(db.DB, orgID(c), c.Param("id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Deadline", deadline.ID, deadline.Title, nil, deadline)
	return respondMutation(c, http.StatusCreated, deadline, eventDeadlinesChanged, "deadlines.created")
}

// UpdateDeadlineHandler replaces the editable fields of a deadline
func UpdateDeadlineHandler(c echo.Context) error {
	var req deadlineRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetDeadline(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	deadline, err := services.UpdateDeadline(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Deadline", deadline.ID, deadline.Title, before, deadline)
	return respondMutation(c, http.StatusOK, deadline, eventDeadlinesChanged, "common.saved")
}

// MarkDeadlineDoneHandler completes a deadline
func MarkDeadlineDoneHandler(c echo.Context) error {
	deadline, err := services.MarkDeadlineDone(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Deadline", deadline.ID, deadline.Title, nil, map[string]string{"status": deadline.Status})
	return respondMutation(c, http.StatusOK, deadline, eventDeadlinesChanged, "deadlines.done")
}

// DeleteDeadlineHandler removes a deadline
func DeleteDeadlineHandler(c echo.Context) error {
	deadline, err := services.GetDeadline(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteDeadline(db.DB, orgID(c), deadline.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Deadline", deadline.ID, deadline.Title, deadline, nil)
	return respondMutation(c, http.StatusOK, nil, eventDeadlinesChanged, "common.deleted")
}

type budgetLineRequest struct {
	Category      string  `json:"category" form:"category"`
	Label         string  `json:"label" form:"label"`
	PlannedAmount float64 `json:"planned_amount" form:"planned_amount"`
	ActualAmount  float64 `json:"actual_amount" form:"actual_amount"`
}

func (r budgetLineRequest) input() services.BudgetLineInput {
	return services.BudgetLineInput{Category: r.Category, Label: r.Label, PlannedAmount: r.PlannedAmount, ActualAmount: r.ActualAmount}
}

// ListBudgetLinesHandler lists the budget lines of a project
func ListBudgetLinesHandler(c echo.Context) error {
	lines, err := services.ListBudgetLines(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "budget-lines-table",
		Columns: []string{tr(c, "fields.category"), tr(c, "fields.label"), tr(c, "fields.planned_amount"), tr(c, "fields.actual_amount")},
	}
	for _, l := range lines {
		row := components.Row{ID: l.ID, Cells: []string{tr(c, "budget_categories."+l.Category), l.Label, money(c, l.PlannedAmount), money(c, l.ActualAmount)}}
		if user != nil && user.Can("budgets:delete") {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/budget-lines/"+l.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, lines, int64(len(lines)), 1, len(lines)+1, view)
}

// CreateBudgetLineHandler adds a budget line to a project
func CreateBudgetLineHandler(c echo.Context) error {
	var req budgetLineRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	line, err := services.CreateBudgetLine(db.DB, orgID(c), c.Param("id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "BudgetLine", line.ID, line.Label, nil, line)
	return respondMutation(c, http.StatusCreated, line, eventBudgetLinesChanged, "budget_lines.created")
}

// UpdateBudgetLineHandler replaces a budget line
func UpdateBudgetLineHandler(c echo.Context) error {
	var req budgetLineRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetBudgetLine(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	line, err := services.UpdateBudgetLine(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "BudgetLine", line.ID, line.Label, before, line)
	return respondMutation(c, http.StatusOK, line, eventBudgetLinesChanged, "common.saved")
}

// DeleteBudgetLineHandler removes a budget line
func DeleteBudgetLineHandler(c echo.Context) error {
	line, err := services.GetBudgetLine(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteBudgetLine(db.DB, orgID(c), line.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "BudgetLine", line.ID, line.Label, line, nil)
	return respondMutation(c, http.StatusOK, nil, eventBudgetLinesChanged, "common.deleted")
}
