package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchBody struct {
	Query   string `json:"query"`
	Count   int    `json:"count"`
	Results []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"results"`
}

func TestSearchHandler(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)
	other, _ := seedOrganization(t, database)
	require.NoError(t, database.Create(&models.Company{OrganizationID: org.ID, Name: "Globex Corporation", Type: models.CompanyTypeClient}).Error)
	require.NoError(t, database.Create(&models.Company{OrganizationID: other.ID, Name: "Globex Rival", Type: models.CompanyTypeClient}).Error)

	search := func(user *models.User, query string) searchBody {
		_, c, rec := setupEcho(http.MethodGet, "/api/v1/search?q="+query, nil)
		withUser(c, user, org)
		require.NoError(t, SearchHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var body searchBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	t.Run("Finds companies of the organization only", func(t *testing.T) {
		body := search(admin, "globex")
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "Globex Corporation", body.Results[0].Title)
	})

	t.Run("Empty query", func(t *testing.T) {
		body := search(admin, "")
		assert.Equal(t, 0, body.Count)
	})

	t.Run("Skips resources the user cannot read", func(t *testing.T) {
		employee := &models.User{ID: admin.ID, OrganizationID: &org.ID, Role: models.RoleEmployee, Permissions: []string{"timesheets:read"}}
		body := search(employee, "globex")
		assert.Equal(t, 0, body.Count)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/v1/search?q=globex", nil)
		require.NoError(t, SearchHandler(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
