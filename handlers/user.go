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

const eventUsersChanged = "usersChanged"

// ListUsersHandler returns the organization's users (search, role and active filters)
func ListUsersHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.UserFilters{
		Search: c.QueryParam("keyword"),
		Role:   c.QueryParam("role"),
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c)
		}
		filters.Active = &active
	}

	users, total, err := services.ListUsers(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	current := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "users-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.email"), tr(c, "fields.role"), tr(c, "fields.status")},
	}
	for _, u := range users {
		status := tr(c, "common.active")
		if !u.IsActive {
			status = tr(c, "common.inactive")
		}
		row := components.Row{ID: u.ID, Cells: []string{u.Name, u.Email, u.Role, status}}
		if current != nil && current.ID != u.ID && current.Can("users:write") {
			label, active := tr(c, "users.deactivate"), "false"
			if !u.IsActive {
				label, active = tr(c, "users.activate"), "true"
			}
			row.Actions = append(row.Actions, components.Action{Label: label, Method: "put", URL: "/api/v1/users/" + u.ID + "/active?active=" + active})
		}
		if current != nil && current.ID != u.ID && current.Can("users:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/users/"+u.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, users, total, page, limit, view)
}

// GetUserHandler returns one user of the organization
func GetUserHandler(c echo.Context) error {
	user, err := services.GetUser(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Name       string `json:"name" form:"name"`
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	Role       string `json:"role" form:"role"`
	Language   string `json:"language" form:"language"`
	EmployeeID string `json:"employee_id" form:"employee_id"`
}

// CreateUserHandler creates a user and sends the welcome email
func CreateUserHandler(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := services.CreateUser(db.DB, orgID(c), services.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Language:   req.Language,
		EmployeeID: optional(&req.EmployeeID),
	})
	if err != nil {
		return respondError(c, err)
	}

	cfg := getConfig(c)
	orgName := ""
	if org := middleware.GetCurrentOrganization(c); org != nil {
		orgName = org.Name
	}
	lang := user.Language
	if lang == "" {
		lang = middleware.GetLocale(c)
	}
	services.SendEmailAsync(cfg, services.BuildWelcomeEmail(user.Email, services.WelcomeEmailData{
		UserName:         user.Name,
		OrganizationName: orgName,
		LoginURL:         cfg.AppURL + "/login",
	}, lang))

	audit(c, models.AuditActionCreate, "User", user.ID, user.Name, nil, user)
	return respondMutation(c, http.StatusCreated, user, eventUsersChanged, "users.created")
}

// bindUserUpdate reads a partial update. Form posts only change the fields they carry.
func bindUserUpdate(c echo.Context) (services.UpdateUserInput, error) {
	var in services.UpdateUserInput
	if c.Request().Header.Get(echo.HeaderContentType) == echo.MIMEApplicationJSON {
		return in, bind(c, &in)
	}
	form, err := c.FormParams()
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, tr(c, "errors.bad_request"))
	}
	pick := func(key string) *string {
		if values, ok := form[key]; ok && len(values) > 0 {
			v := values[0]
			return &v
		}
		return nil
	}
	in.Name = pick("name")
	in.Email = pick("email")
	in.Role = pick("role")
	in.Language = pick("language")
	in.EmployeeID = pick("employee_id")
	if raw := pick("is_active"); raw != nil {
		active := *raw == "true"
		in.IsActive = &active
	}
	return in, nil
}

// UpdateUserHandler updates a user. Users can edit themselves; editing others needs users:write.
func UpdateUserHandler(c echo.Context) error {
	id := c.Param("id")
	if !middleware.CanModifyUser(c, id) {
		return respondError(c, services.ErrForbidden)
	}
	in, err := bindUserUpdate(c)
	if err != nil {
		return respondError(c, err)
	}

	actor := middleware.GetCurrentUser(c)
	before, err := services.GetUser(db.DB, orgID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	user, err := services.UpdateUser(db.DB, actor, orgID(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	if in.Language != nil && actor.ID == user.ID && *in.Language != "" {
		middleware.SetLanguageCookie(c, *in.Language)
	}

	audit(c, models.AuditActionUpdate, "User", user.ID, user.Name, before, user)
	return respondMutation(c, http.StatusOK, user, eventUsersChanged, "common.saved")
}

// SetUserActiveHandler toggles the active flag from the users table
func SetUserActiveHandler(c echo.Context) error {
	active, err := strconv.ParseBool(c.QueryParam("active"))
	if err != nil {
		return badRequest(c)
	}
	user, err := services.SetUserActive(db.DB, middleware.GetCurrentUser(c), orgID(c), c.Param("id"), active)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "User", user.ID, user.Name, nil, map[string]bool{"is_active": active})
	return respondMutation(c, http.StatusOK, user, eventUsersChanged, "common.saved")
}

// DeleteUserHandler soft-deletes a user (never oneself)
func DeleteUserHandler(c echo.Context) error {
	id := c.Param("id")
	user, err := services.GetUser(db.DB, orgID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteUser(db.DB, middleware.GetCurrentUser(c), orgID(c), id); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "User", user.ID, user.Name, user, nil)
	return respondMutation(c, http.StatusOK, nil, eventUsersChanged, "common.deleted")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

// ChangePasswordHandler lets a user change their own password; other sessions are revoked
func ChangePasswordHandler(c echo.Context) error {
	current := middleware.GetCurrentUser(c)
	if current == nil || current.ID != c.Param("id") {
		return respondError(c, services.ErrForbidden)
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	keep := ""
	if session := middleware.GetCurrentSession(c); session != nil {
		keep = session.Token
	}
	if err := services.ChangePassword(db.DB, current, req.CurrentPassword, req.NewPassword, keep); err != nil {
		return respondError(c, err)
	}
	services.LogSecurityEvent(db.DB, "PASSWORD_CHANGED", current.ID, "Password changed by its owner")
	return respondMutation(c, http.StatusOK, map[string]string{"status": "ok"}, "", "users.password_changed")
}
