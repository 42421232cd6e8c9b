package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services/dashboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layoutBody struct {
	Columns int                   `json:"columns"`
	Widgets []models.WidgetLayout `json:"widgets"`
}

func TestGetLayoutHandler_DefaultLayout(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)

	_, c, rec := setupEcho(http.MethodGet, "/api/v1/dashboard/layout", nil)
	withUser(c, admin, org)

	require.NoError(t, GetLayoutHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body layoutBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, dashboard.GridColumns, body.Columns)
	assert.Len(t, body.Widgets, len(dashboard.DefaultLayout()))
	for _, w := range body.Widgets {
		assert.NotEmpty(t, w.ID)
	}
}

func TestUpdateWidgetHandler(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)
	layouts, err := dashboard.GetLayout(database, org.ID, admin.ID)
	require.NoError(t, err)
	widget := layouts[0]

	patch := func(body string) (int, *models.WidgetLayout) {
		_, c, rec := setupEcho(http.MethodPatch, "/api/v1/dashboard/widgets/"+widget.ID, strings.NewReader(body))
		c.SetParamNames("id")
		c.SetParamValues(widget.ID)
		withUser(c, admin, org)
		require.NoError(t, UpdateWidgetHandler(c))
		if rec.Code != http.StatusOK {
			return rec.Code, nil
		}
		var w models.WidgetLayout
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
		return rec.Code, &w
	}

	t.Run("Move", func(t *testing.T) {
		status, w := patch(`{"x":4,"y":10}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, 4, w.X)
		assert.Equal(t, 10, w.Y)
		assert.Equal(t, widget.W, w.W)
	})

	t.Run("Out of the grid", func(t *testing.T) {
		status, _ := patch(`{"x":11,"w":3}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("Someone else's widget", func(t *testing.T) {
		other, otherAdmin := seedOrganization(t, database)
		_, c, rec := setupEcho(http.MethodPatch, "/api/v1/dashboard/widgets/"+widget.ID, strings.NewReader(`{"x":0}`))
		c.SetParamNames("id")
		c.SetParamValues(widget.ID)
		withUser(c, otherAdmin, other)

		require.NoError(t, UpdateWidgetHandler(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSaveLayoutHandler_RejectsUnknownWidget(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)

	_, c, rec := setupEcho(http.MethodPut, "/api/v1/dashboard/layout",
		strings.NewReader(`{"widgets":[{"widget_type":"weather","x":0,"y":0,"w":2,"h":2}]}`))
	withUser(c, admin, org)

	require.NoError(t, SaveLayoutHandler(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
