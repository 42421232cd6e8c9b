package handlers

import (
	"net/http"
	"strings"

	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const eventRolesChanged = "rolesChanged"

type roleRequest struct {
	Name        string   `json:"name" form:"name"`
	Description string   `json:"description" form:"description"`
	Permissions []string `json:"permissions" form:"permissions"`
}

// input accepts permissions as a list or as one comma/space separated field
func (r roleRequest) input() services.RoleInput {
	perms := lo.FlatMap(r.Permissions, func(p string, _ int) []string {
		return strings.FieldsFunc(p, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\r' })
	})
	return services.RoleInput{Name: r.Name, Description: r.Description, Permissions: perms}
}

// ListRolesHandler lists the organization's roles
func ListRolesHandler(c echo.Context) error {
	roles, err := services.ListRoles(db.DB, orgID(c))
	if err != nil {
		return respondError(c, err)
	}
	view := components.TableView{
		ID:      "roles-table",
		Columns: []string{tr(c, "fields.name"), tr(c, "fields.description"), tr(c, "fields.permissions")},
	}
	for _, r := range roles {
		row := components.Row{ID: r.ID, Cells: []string{r.Name, r.Description, strings.Join(r.Permissions, ", ")}}
		if !r.IsSystem {
			row.Actions = []components.Action{deleteAction(c, "/api/v1/roles/"+r.ID)}
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, roles, int64(len(roles)), 1, len(roles)+1, view)
}

// GetRoleHandler returns one role
func GetRoleHandler(c echo.Context) error {
	role, err := services.GetRole(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// CreateRoleHandler adds a custom role
func CreateRoleHandler(c echo.Context) error {
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	role, err := services.CreateRole(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Role", role.ID, role.Name, nil, role)
	return respondMutation(c, http.StatusCreated, role, eventRolesChanged, "roles.created")
}

// UpdateRoleHandler replaces the permissions of a role
func UpdateRoleHandler(c echo.Context) error {
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetRole(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	role, err := services.UpdateRole(db.DB, orgID(c), c.Param("id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Role", role.ID, role.Name, before, role)
	return respondMutation(c, http.StatusOK, role, eventRolesChanged, "common.saved")
}

// DeleteRoleHandler removes a custom role nobody holds
func DeleteRoleHandler(c echo.Context) error {
	role, err := services.GetRole(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteRole(db.DB, orgID(c), role.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Role", role.ID, role.Name, role, nil)
	return respondMutation(c, http.StatusOK, nil, eventRolesChanged, "common.deleted")
}
