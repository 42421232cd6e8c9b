package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrganizationWithAdmin(t *testing.T) {
	db := setupTestDB(t)

	org, admin, err := CreateOrganizationWithAdmin(db, CreateOrganizationInput{
		Name:          "Globex Consulting",
		Currency:      "eur",
		AdminName:     "Grace",
		AdminEmail:    "grace@globex.test",
		AdminPassword: "Correct-Horse-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "globex-consulting", org.Slug)
	assert.Equal(t, "EUR", org.Currency)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	roles, _ := ListRoles(db, org.ID)
	assert.Len(t, roles, 5)

	cats, err := ListCategories(db, org.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func TestCreateOrganizationWithAdmin_RollsBack(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := CreateOrganizationWithAdmin(db, CreateOrganizationInput{
		Name:          "Broken Inc",
		AdminName:     "X",
		AdminEmail:    "x@broken.test",
		AdminPassword: "weak",
	})
	require.Error(t, err)

	var count int64
	db.Model(&models.Organization{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUpdateOrganization(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	updated, err := UpdateOrganization(db, org.ID, OrganizationSettings{Name: "Acme SAS", IBAN: "fr76 3000 6000", FiscalYearStartMonth: 7})
	require.NoError(t, err)
	assert.Equal(t, "FR7630006000", updated.IBAN)
	assert.Equal(t, 7, updated.FiscalYearStartMonth)

	_, err = UpdateOrganization(db, org.ID, OrganizationSettings{Name: "Acme", FiscalYearStartMonth: 13})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
