package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompanyHandler(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)

	t.Run("Success", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/v1/commercial/companies",
			strings.NewReader(`{"name":"Globex","type":"client","email":"Sales@Globex.test","city":"Lyon"}`))
		withUser(c, admin, org)

		require.NoError(t, CreateCompanyHandler(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var company models.Company
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &company))
		assert.Equal(t, "Globex", company.Name)
		assert.Equal(t, models.CompanyTypeClient, company.Type)
		assert.Equal(t, "sales@globex.test", company.Email)
		assert.Equal(t, org.ID, company.OrganizationID)
	})

	t.Run("Missing name", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/v1/commercial/companies", strings.NewReader(`{"city":"Lyon"}`))
		withUser(c, admin, org)

		require.NoError(t, CreateCompanyHandler(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Fields, "name")
	})

	t.Run("HTMX triggers refresh and toast", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/v1/commercial/companies", strings.NewReader(`{"name":"Initech"}`))
		withUser(c, admin, org)
		asHTMX(c)

		require.NoError(t, CreateCompanyHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var events map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &events))
		assert.Equal(t, true, events[eventCompaniesChanged])
		assert.Contains(t, events, "showToast")
	})
}

func TestListCompaniesHandler_ScopedToOrganization(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)
	other, _ := seedOrganization(t, database)

	require.NoError(t, database.Create(&models.Company{OrganizationID: org.ID, Name: "Mine", Type: models.CompanyTypeClient}).Error)
	require.NoError(t, database.Create(&models.Company{OrganizationID: other.ID, Name: "Theirs", Type: models.CompanyTypeClient}).Error)

	_, c, rec := setupEcho(http.MethodGet, "/api/v1/commercial/companies", nil)
	withUser(c, admin, org)

	require.NoError(t, ListCompaniesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data  []models.Company `json:"data"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Mine", body.Data[0].Name)
}

func TestDeleteCompanyHandler(t *testing.T) {
	database := setupTestDB(t)
	org, admin := seedOrganization(t, database)
	company := &models.Company{OrganizationID: org.ID, Name: "Doomed", Type: models.CompanyTypeProspect}
	require.NoError(t, database.Create(company).Error)

	t.Run("Success", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodDelete, "/api/v1/commercial/companies/"+company.ID, nil)
		c.SetParamNames("id")
		c.SetParamValues(company.ID)
		withUser(c, admin, org)

		require.NoError(t, DeleteCompanyHandler(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		var count int64
		database.Model(&models.Company{}).Where("id = ?", company.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Not found", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodDelete, "/api/v1/commercial/companies/missing", nil)
		c.SetParamNames("id")
		c.SetParamValues("missing")
		withUser(c, admin, org)

		require.NoError(t, DeleteCompanyHandler(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
