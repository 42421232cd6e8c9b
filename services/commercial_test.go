package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)


func TestCompanyCRUD(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	other, _ := seedOrg(t, db)

	company, err := CreateCompany(db, org.ID, CompanyInput{Name: "  Globex ", Type: "client", Email: "Hello@Globex.test", Notes: "<p>VIP</p><script>x</script>"})
	require.NoError(t, err)
	assert.Equal(t, "Globex", company.Name)
	assert.Equal(t, models.CompanyTypeClient, company.Type)
	assert.Equal(t, "hello@globex.test", company.Email)
	assert.Equal(t, "<p>VIP</p>", company.Notes)

	_, err = CreateCompany(db, org.ID, CompanyInput{Name: "", Type: "alien"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "type")

	_, err = CreateCompany(db, other.ID, CompanyInput{Name: "Globex Other"})
	require.NoError(t, err)

	list, total, err := ListCompanies(db, org.ID, CompanyFilters{Keyword: "glob"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, company.ID, list[0].ID)

	_, total, _ = ListCompanies(db, org.ID, CompanyFilters{Type: "prospect"}, 1, 20)
	assert.Equal(t, int64(0), total)

	found, err := FindCompanyByName(db, org.ID, "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, company.ID, found.ID)

	updated, err := UpdateCompany(db, org.ID, company.ID, CompanyInput{Name: "Globex Corp", Type: "PARTNER"})
	require.NoError(t, err)
	assert.Equal(t, models.CompanyTypePartner, updated.Type)

	_, err = GetCompany(db, other.ID, company.ID)
	assert.ErrorIs(t, err, ErrNotFound, "tenants are isolated")

	require.NoError(t, DeleteCompany(db, org.ID, company.ID))
	_, err = GetCompany(db, org.ID, company.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContacts_PrimaryIsExclusive(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, err := CreateCompany(db, org.ID, CompanyInput{Name: "Initech"})
	require.NoError(t, err)

	first, err := CreateContact(db, org.ID, ContactInput{CompanyID: company.ID, FirstName: "Peter", LastName: "Gibbons", IsPrimary: true})
	require.NoError(t, err)
	second, err := CreateContact(db, org.ID, ContactInput{CompanyID: company.ID, FirstName: "Samir", LastName: "N", IsPrimary: true})
	require.NoError(t, err)

	reloaded, _ := GetContact(db, org.ID, first.ID)
	assert.False(t, reloaded.IsPrimary)

	require.NoError(t, SetPrimaryContact(db, org.ID, first.ID))
	reloaded, _ = GetContact(db, org.ID, second.ID)
	assert.False(t, reloaded.IsPrimary)
	reloaded, _ = GetContact(db, org.ID, first.ID)
	assert.True(t, reloaded.IsPrimary)

	full, err := GetCompany(db, org.ID, company.ID)
	require.NoError(t, err)
	require.Len(t, full.Contacts, 2)
	assert.Equal(t, first.ID, full.Contacts[0].ID, "primary contact listed first")

	_, err = CreateContact(db, org.ID, ContactInput{CompanyID: "missing", FirstName: "A", LastName: "B"})
	assert.Error(t, err)

	updated, err := UpdateContact(db, org.ID, second.ID, ContactInput{FirstName: "Samir", LastName: "Nagheenanajar", Email: "samir@initech.test"})
	require.NoError(t, err)
	assert.Equal(t, company.ID, updated.CompanyID)

	contacts, total, err := ListContacts(db, org.ID, company.ID, "nagh", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Samir Nagheenanajar", contacts[0].FullName())

	require.NoError(t, DeleteContact(db, org.ID, second.ID))
	_, err = GetContact(db, org.ID, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCompanyStats(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Hooli"})
	_, _ = CreateContact(db, org.ID, ContactInput{CompanyID: company.ID, FirstName: "Gavin", LastName: "Belson"})

	_, err := CreateOpportunity(db, org.ID, OpportunityInput{CompanyID: company.ID, Title: "Platform", Amount: 10000, Stage: models.StageProposal})
	require.NoError(t, err)
	_, err = CreateOpportunity(db, org.ID, OpportunityInput{CompanyID: company.ID, Title: "Box", Amount: 5000, Stage: models.StageWon})
	require.NoError(t, err)

	stats, err := GetCompanyStats(db, org.ID, company.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Contacts)
	assert.Equal(t, int64(1), stats.OpenOpportunities)
	assert.Equal(t, 10000.0, stats.PipelineValue)
	assert.Equal(t, 5000.0, stats.WeightedPipeline)
	assert.Equal(t, 5000.0, stats.WonValue)
}
