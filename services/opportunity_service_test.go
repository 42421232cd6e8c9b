package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpportunity_StageProbability(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Umbrella"})

	opp, err := CreateOpportunity(db, org.ID, OpportunityInput{CompanyID: company.ID, Title: "Lab fit-out", Amount: 20000})
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, opp.Stage)
	assert.Equal(t, 10, opp.Probability)
	assert.Equal(t, "EUR", opp.Currency)
	assert.Nil(t, opp.ClosedAt)

	custom := 40
	opp, err = MoveStage(db, org.ID, opp.ID, "proposal", &custom)
	require.NoError(t, err)
	assert.Equal(t, 40, opp.Probability)
	assert.Equal(t, 8000.0, opp.WeightedAmount())

	opp, err = MoveStage(db, org.ID, opp.ID, models.StageWon, &custom)
	require.NoError(t, err)
	assert.Equal(t, 100, opp.Probability, "WON forces 100")
	assert.NotNil(t, opp.ClosedAt)

	opp, err = MoveStage(db, org.ID, opp.ID, models.StageLost, nil)
	require.NoError(t, err)
	reloaded, _ := GetOpportunity(db, org.ID, opp.ID)
	assert.Equal(t, 0, reloaded.Probability, "LOST forces 0")

	opp, err = MoveStage(db, org.ID, opp.ID, models.StageNegotiation, nil)
	require.NoError(t, err)
	assert.Equal(t, 75, opp.Probability)
	assert.Nil(t, opp.ClosedAt, "reopening clears the close date")

	_, err = MoveStage(db, org.ID, opp.ID, "SIGNED", nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOpportunity_CreateLostKeepsZero(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Cyberdyne"})

	opp, err := CreateOpportunity(db, org.ID, OpportunityInput{CompanyID: company.ID, Title: "Skynet", Amount: 1, Stage: models.StageLost})
	require.NoError(t, err)
	reloaded, _ := GetOpportunity(db, org.ID, opp.ID)
	assert.Equal(t, 0, reloaded.Probability)
}

func TestOpportunity_Validation(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	bad := 150

	_, err := CreateOpportunity(db, org.ID, OpportunityInput{Title: "", Amount: -5, Probability: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "company_id")
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "probability")

	// A contact from another company is rejected
	a, _ := CreateCompany(db, org.ID, CompanyInput{Name: "A"})
	b, _ := CreateCompany(db, org.ID, CompanyInput{Name: "B"})
	contact, _ := CreateContact(db, org.ID, ContactInput{CompanyID: b.ID, FirstName: "X", LastName: "Y"})
	_, err = CreateOpportunity(db, org.ID, OpportunityInput{CompanyID: a.ID, ContactID: &contact.ID, Title: "Deal"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "contact_id")
}

func TestPipelineSummary(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Soylent"})

	for _, in := range []OpportunityInput{
		{Title: "A", Amount: 1000, Stage: models.StageLead},
		{Title: "B", Amount: 3000, Stage: models.StageLead},
		{Title: "C", Amount: 2000, Stage: models.StageNegotiation},
	} {
		in.CompanyID = company.ID
		_, err := CreateOpportunity(db, org.ID, in)
		require.NoError(t, err)
	}

	summary, err := PipelineSummary(db, org.ID, "")
	require.NoError(t, err)
	require.Len(t, summary, len(models.PipelineStages))

	assert.Equal(t, models.StageLead, summary[0].Stage)
	assert.Equal(t, int64(2), summary[0].Count)
	assert.Equal(t, 4000.0, summary[0].Amount)
	assert.Equal(t, 400.0, summary[0].Weighted)

	assert.Equal(t, int64(0), summary[1].Count, "empty stages are present")
	assert.Equal(t, 1500.0, summary[3].Weighted)

	opps, total, err := ListOpportunities(db, org.ID, OpportunityFilters{Stage: "lead"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, opps, 2)
}
