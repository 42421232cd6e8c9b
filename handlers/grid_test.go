package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/grid"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateGridCellHandler(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)
	line := &models.BudgetLine{
		OrganizationID: org.ID,
		ProjectID:      uuid.New().String(),
		Category:       models.BudgetCategoryLabour,
		Label:          "Design",
		PlannedAmount:  1000,
	}
	require.NoError(t, database.Create(line).Error)

	post := func(user *models.User, resource, body string, htmx bool) (int, string, string) {
		_, c, rec := setupEcho(http.MethodPost, "/api/v1/grid/"+resource+"/cell", strings.NewReader(body))
		c.SetParamNames("resource")
		c.SetParamValues(resource)
		withUser(c, user, org)
		if htmx {
			asHTMX(c)
		}
		require.NoError(t, UpdateGridCellHandler(c))
		return rec.Code, rec.Body.String(), rec.Header().Get("HX-Trigger")
	}

	t.Run("Stores a normalized number", func(t *testing.T) {
		status, body, _ := post(admin, "budget-lines", `{"cell":"0-3","id":"`+line.ID+`","value":"1 250,5"}`, false)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"cell":"0-3","value":"1250.5"}`, body)

		var stored models.BudgetLine
		require.NoError(t, database.First(&stored, "id = ?", line.ID).Error)
		assert.Equal(t, 1250.5, stored.PlannedAmount)
	})

	t.Run("Rejects a negative amount", func(t *testing.T) {
		status, body, _ := post(admin, "budget-lines", `{"cell":"0-3","id":"`+line.ID+`","value":"-5"}`, false)
		assert.Equal(t, http.StatusUnprocessableEntity, status)

		var resp map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, "0-3", resp["cell"])
		assert.NotEmpty(t, resp["error"])

		var stored models.BudgetLine
		require.NoError(t, database.First(&stored, "id = ?", line.ID).Error)
		assert.Equal(t, 1250.5, stored.PlannedAmount)
	})

	t.Run("Enter activates the cell below", func(t *testing.T) {
		status, _, header := post(admin, "budget-lines", `{"cell":"0-2","id":"`+line.ID+`","value":"Design phase","key":"Enter","rows":3}`, true)
		require.Equal(t, http.StatusOK, status)

		var events map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(header), &events))
		assert.Equal(t, map[string]interface{}{"cell": "1-2"}, events[eventGridActivate])
		assert.Equal(t, true, events[eventBudgetLinesChanged])
	})

	t.Run("Invalid cell key", func(t *testing.T) {
		status, _, _ := post(admin, "budget-lines", `{"cell":"B4","id":"`+line.ID+`","value":"1"}`, false)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("Column out of range", func(t *testing.T) {
		status, body, _ := post(admin, "budget-lines", `{"cell":"0-9","id":"`+line.ID+`","value":"1"}`, false)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body, `"cell"`)
	})

	t.Run("Read-only column", func(t *testing.T) {
		status, body, _ := post(admin, "budget-lines", `{"cell":"0-0","id":"`+line.ID+`","value":"other"}`, false)
		assert.Equal(t, http.StatusUnprocessableEntity, status)

		var resp struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, "This column cannot be edited", resp.Fields["cell"])

		var stored models.BudgetLine
		require.NoError(t, database.First(&stored, "id = ?", line.ID).Error)
		assert.Equal(t, line.ID, stored.ID)
	})

	t.Run("Unknown resource", func(t *testing.T) {
		status, _, _ := post(admin, "invoices", `{"cell":"0-1","id":"x","value":"1"}`, false)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("Missing permission", func(t *testing.T) {
		viewer := &models.User{ID: uuid.New().String(), OrganizationID: &org.ID, Role: models.RoleEmployee, Permissions: []string{"budgets:read"}}
		status, _, _ := post(viewer, "budget-lines", `{"cell":"0-3","id":"`+line.ID+`","value":"10"}`, false)
		assert.Equal(t, http.StatusForbidden, status)
	})
}

func TestGridCellError_StableMessage(t *testing.T) {
	setupTestDB(t)
	_, c, _ := setupEcho(http.MethodPost, "/api/v1/grid/budget-lines/cell", nil)

	verr := &services.ValidationError{}
	verr.Add("label", "validation.required")
	verr.Add("category", "validation.budget_category")

	for i := 0; i < 20; i++ {
		assert.Equal(t, "Unknown budget category; Required", gridCellError(c, verr).Error())
	}
}

func TestErrorStatus_GridErrors(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(grid.ErrInvalidCellKey))
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(fmt.Errorf("column id: %w", grid.ErrReadOnlyColumn)))
}
