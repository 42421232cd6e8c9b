package handlers

import (
	"net/http"
	"strconv"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
)

const (
	eventEmployeesChanged  = "employeesChanged"
	eventTimesheetsChanged = "timesheetsChanged"
)

type employeeRequest struct {
	FirstName  string  `json:"first_name" form:"first_name"`
	LastName   string  `json:"last_name" form:"last_name"`
	Email      string  `json:"email" form:"email"`
	Phone      string  `json:"phone" form:"phone"`
	JobTitle   string  `json:"job_title" form:"job_title"`
	Department string  `json:"department" form:"department"`
	HireDate   Date    `json:"hire_date" form:"hire_date"`
	HourlyCost float64 `json:"hourly_cost" form:"hourly_cost"`
	UserID     string  `json:"user_id" form:"user_id"`
}

func (r employeeRequest) input() services.EmployeeInput {
	return services.EmployeeInput{
		FirstName: r.FirstName, LastName: r.LastName, Email: r.Email, Phone: r.Phone,
		JobTitle: r.JobTitle, Department: r.Department, HireDate: r.HireDate.Ptr(),
		HourlyCost: r.HourlyCost, UserID: optional(&r.UserID),
	}
}

// ListEmployeesHandler lists employees filtered by department, keyword or active flag
func ListEmployeesHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.EmployeeFilters{
		Keyword:    c.QueryParam("keyword"),
		Department: c.QueryParam("department"),
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c)
		}
		filters.Active = &active
	}
	employees, total, err := services.ListEmployees(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "employees-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.job_title"), tr(c, "fields.department"),
			tr(c, "fields.email"), tr(c, "fields.hourly_cost"), tr(c, "fields.status")},
	}
	for _, e := range employees {
		status := tr(c, "common.active")
		if !e.IsActive {
			status = tr(c, "common.inactive")
		}
		row := components.Row{ID: e.ID, Cells: []string{e.FullName(), e.JobTitle, e.Department, e.Email, money(c, e.HourlyCost), status}}
		if user != nil && user.Can("employees:write") {
			label, active := tr(c, "employees.deactivate"), "false"
			if !e.IsActive {
				label, active = tr(c, "employees.activate"), "true"
			}
			row.Actions = append(row.Actions, components.Action{Label: label, Method: "put", URL: "/api/v1/employees/" + e.ID + "/active?active=" + active})
		}
		if user != nil && user.Can("employees:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/employees/"+e.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, employees, total, page, limit, view)
}

// GetEmployeeHandler returns one employee
func GetEmployeeHandler(c echo.Context) error {
	employee, err := services.GetEmployee(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, employee)
}

// CreateEmployeeHandler creates an employee, optionally linked to a user account
func CreateEmployeeHandler(c echo.Context) error {
	var req employeeRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	employee, err := services.CreateEmployee(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Employee", employee.ID, employee.FullName(), nil, employee)
	return respondMutation(c, http.StatusCreated, employee, eventEmployeesChanged, "employees.created")
}

// UpdateEmployeeHandler replaces the editable fields of an employee
func UpdateEmployeeHandler(c echo.Context) error {
	var req employeeRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetEmployee(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	employee, err := services.UpdateEmployee(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Employee", employee.ID, employee.FullName(), before, employee)
	return respondMutation(c, http.StatusOK, employee, eventEmployeesChanged, "common.saved")
}

// SetEmployeeActiveHandler toggles the active flag of an employee
func SetEmployeeActiveHandler(c echo.Context) error {
	active, err := strconv.ParseBool(c.QueryParam("active"))
	if err != nil {
		return badRequest(c)
	}
	employee, err := services.SetEmployeeActive(db.DB, orgID(c), c.Param("id"), active)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Employee", employee.ID, employee.FullName(), nil, map[string]bool{"is_active": active})
	return respondMutation(c, http.StatusOK, employee, eventEmployeesChanged, "common.saved")
}

// DeleteEmployeeHandler removes an employee and unlinks its user
func DeleteEmployeeHandler(c echo.Context) error {
	employee, err := services.GetEmployee(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteEmployee(db.DB, orgID(c), employee.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Employee", employee.ID, employee.FullName(), employee, nil)
	return respondMutation(c, http.StatusOK, nil, eventEmployeesChanged, "common.deleted")
}

type timesheetRequest struct {
	EmployeeID  string  `json:"employee_id" form:"employee_id"`
	ProjectID   string  `json:"project_id" form:"project_id"`
	Date        Date    `json:"date" form:"date"`
	Hours       float64 `json:"hours" form:"hours"`
	Description string  `json:"description" form:"description"`
	Billable    *bool   `json:"billable" form:"billable"`
}

func (r timesheetRequest) input() services.TimesheetInput {
	return services.TimesheetInput{
		EmployeeID:  r.EmployeeID,
		ProjectID:   optional(&r.ProjectID),
		Date:        r.Date.Time,
		Hours:       r.Hours,
		Description: r.Description,
		Billable:    r.Billable,
	}
}

// ownEmployeeID restricts users without timesheets:approve to their own entries.
// It returns "" for reviewers.
func ownEmployeeID(c echo.Context) (string, error) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return "", services.ErrForbidden
	}
	if user.Can("timesheets:approve") {
		return "", nil
	}
	employee, err := services.EmployeeForUser(db.DB, user)
	if err != nil {
		return "", services.ErrForbidden
	}
	return employee.ID, nil
}

// loadOwnTimesheet fetches a timesheet the current user may act on
func loadOwnTimesheet(c echo.Context) (*models.Timesheet, error) {
	own, err := ownEmployeeID(c)
	if err != nil {
		return nil, err
	}
	ts, err := services.GetTimesheet(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if own != "" && ts.EmployeeID != own {
		return nil, services.ErrNotFound
	}
	return ts, nil
}

// ListTimesheetsHandler lists time entries filtered by employee, project, status and period
func ListTimesheetsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	own, err := ownEmployeeID(c)
	if err != nil {
		return respondError(c, err)
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, err)
	}
	filters := services.TimesheetFilters{
		EmployeeID: c.QueryParam("employee_id"),
		ProjectID:  c.QueryParam("project_id"),
		Status:     c.QueryParam("status"),
		From:       from,
		To:         to,
	}
	if own != "" {
		filters.EmployeeID = own
	}
	entries, total, err := services.ListTimesheets(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "timesheets-table",
		Columns: []string{tr(c, "fields.date"), tr(c, "fields.employee"), tr(c, "fields.project"),
			tr(c, "fields.hours"), tr(c, "fields.description"), tr(c, "fields.status")},
	}
	for _, ts := range entries {
		employee, project := "", ""
		if ts.Employee != nil {
			employee = ts.Employee.FullName()
		}
		if ts.Project != nil {
			project = ts.Project.Code
		}
		date := ts.Date
		row := components.Row{ID: ts.ID, Cells: []string{formatDate(&date), employee, project,
			services.FormatQuantity(ts.Hours), ts.Description, tr(c, "timesheet_statuses."+ts.Status)}}
		base := "/api/v1/timesheets/" + ts.ID
		if ts.IsEditable() {
			row.Actions = append(row.Actions, components.Action{Label: tr(c, "timesheets.submit"), Method: "put", URL: base + "/submit"})
		}
		if ts.Status == models.TimesheetStatusSubmitted && user != nil && user.Can("timesheets:approve") {
			row.Actions = append(row.Actions,
				components.Action{Label: tr(c, "timesheets.approve"), Method: "put", URL: base + "/approve"},
				components.Action{Label: tr(c, "timesheets.reject"), Method: "put", URL: base + "/reject", Confirm: tr(c, "timesheets.confirm_reject")},
			)
		}
		if ts.IsEditable() && user != nil && user.Can("timesheets:write") {
			row.Actions = append(row.Actions, deleteAction(c, base))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, entries, total, page, limit, view)
}

// GetTimesheetHandler returns one time entry
func GetTimesheetHandler(c echo.Context) error {
	ts, err := loadOwnTimesheet(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ts)
}

// CreateTimesheetHandler logs time. Without an employee_id the current user's employee is used.
func CreateTimesheetHandler(c echo.Context) error {
	var req timesheetRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	own, err := ownEmployeeID(c)
	if err != nil {
		return respondError(c, err)
	}
	if own != "" {
		req.EmployeeID = own
	} else if req.EmployeeID == "" {
		if employee, err := services.EmployeeForUser(db.DB, middleware.GetCurrentUser(c)); err == nil {
			req.EmployeeID = employee.ID
		}
	}
	ts, err := services.CreateTimesheet(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), nil, ts)
	return respondMutation(c, http.StatusCreated, ts, eventTimesheetsChanged, "timesheets.created")
}

// UpdateTimesheetHandler edits a draft or rejected entry
func UpdateTimesheetHandler(c echo.Context) error {
	var req timesheetRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := loadOwnTimesheet(c)
	if err != nil {
		return respondError(c, err)
	}
	if req.EmployeeID == "" {
		req.EmployeeID = before.EmployeeID
	}
	ts, err := services.UpdateTimesheet(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), before, ts)
	return respondMutation(c, http.StatusOK, ts, eventTimesheetsChanged, "common.saved")
}

// DeleteTimesheetHandler removes a draft or rejected entry
func DeleteTimesheetHandler(c echo.Context) error {
	ts, err := loadOwnTimesheet(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteTimesheet(db.DB, orgID(c), ts.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), ts, nil)
	return respondMutation(c, http.StatusOK, nil, eventTimesheetsChanged, "common.deleted")
}

// SubmitTimesheetHandler sends an entry for review
func SubmitTimesheetHandler(c echo.Context) error {
	own, err := loadOwnTimesheet(c)
	if err != nil {
		return respondError(c, err)
	}
	ts, err := services.SubmitTimesheet(db.DB, orgID(c), own.ID)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), nil, map[string]string{"status": ts.Status})
	return respondMutation(c, http.StatusOK, ts, eventTimesheetsChanged, "timesheets.submitted")
}

// ApproveTimesheetHandler approves a submitted entry; the current user is the reviewer
func ApproveTimesheetHandler(c echo.Context) error {
	ts, err := services.ApproveTimesheet(db.DB, orgID(c), c.Param("id"), middleware.GetCurrentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), nil, map[string]string{"status": ts.Status})
	return respondMutation(c, http.StatusOK, ts, eventTimesheetsChanged, "timesheets.approved")
}

type rejectRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// RejectTimesheetHandler sends a submitted entry back to its employee
func RejectTimesheetHandler(c echo.Context) error {
	var req rejectRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ts, err := services.RejectTimesheet(db.DB, orgID(c), c.Param("id"), middleware.GetCurrentUser(c).ID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Timesheet", ts.ID, ts.Date.Format("2006-01-02"), nil,
		map[string]string{"status": ts.Status, "reason": ts.RejectReason})
	return respondMutation(c, http.StatusOK, ts, eventTimesheetsChanged, "timesheets.rejected")
}

// TimesheetSummaryHandler returns the hours per employee and weekday of the week holding ?date
func TimesheetSummaryHandler(c echo.Context) error {
	anchor, err := queryDate(c, "date")
	if err != nil {
		return respondError(c, err)
	}
	at := now()
	if anchor != nil {
		at = *anchor
	}
	own, err := ownEmployeeID(c)
	if err != nil {
		return respondError(c, err)
	}
	employeeID := c.QueryParam("employee_id")
	if own != "" {
		employeeID = own
	}
	weeks, err := services.WeeklySummary(db.DB, orgID(c), employeeID, at)
	if err != nil {
		return respondError(c, err)
	}
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, map[string]interface{}{"week_start": services.WeekStart(at).Format("2006-01-02"), "employees": weeks})
	}

	start := services.WeekStart(at)
	columns := []string{tr(c, "fields.employee")}
	for i := 0; i < 7; i++ {
		columns = append(columns, start.AddDate(0, 0, i).Format("02/01"))
	}
	columns = append(columns, tr(c, "fields.total"), tr(c, "timesheets.billable"), tr(c, "timesheets.approved_hours"))
	view := components.TableView{ID: "timesheet-summary", Columns: columns}
	for _, w := range weeks {
		cells := []string{w.EmployeeName}
		for _, h := range w.Days {
			cells = append(cells, services.FormatQuantity(h))
		}
		cells = append(cells, services.FormatQuantity(w.Total), services.FormatQuantity(w.BillableHours), services.FormatQuantity(w.Approved))
		view.Rows = append(view.Rows, components.Row{ID: w.EmployeeID, Cells: cells})
	}
	return render(c, http.StatusOK, components.Table(view))
}
