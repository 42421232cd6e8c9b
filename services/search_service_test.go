package services

import (
	"context"
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSearchQuery(t *testing.T) {
	assert.Equal(t, "acme corp", sanitizeSearchQuery("  acme   corp "))
	assert.Equal(t, "50", sanitizeSearchQuery("50%"))
	assert.Equal(t, "", sanitizeSearchQuery("a"))
	assert.Equal(t, "", sanitizeSearchQuery("%_"))
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, "<mark>Acme</mark> &amp; Co", highlight("Acme & Co", "acme"))
	assert.Equal(t, "no match", highlight("no match", "zz"))
	assert.Equal(t, "&lt;b&gt; <mark>x</mark>", highlight("<b> x", "x"))
}

func TestSearch(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)

	acme, err := CreateCompany(db, org.ID, CompanyInput{Name: "Acme Industries", City: "Lyon"})
	require.NoError(t, err)
	_, err = CreateCompany(db, org.ID, CompanyInput{Name: "Globex", City: "Acmeville"})
	require.NoError(t, err)
	_, err = CreateContact(db, org.ID, ContactInput{CompanyID: acme.ID, FirstName: "Wile", LastName: "Acmeson"})
	require.NoError(t, err)
	_, err = CreateProject(db, org.ID, ProjectInput{Name: "Acme rollout"})
	require.NoError(t, err)

	other, _ := seedOrg(t, db)
	_, err = CreateCompany(db, other.ID, CompanyInput{Name: "Acme Foreign"})
	require.NoError(t, err)

	svc := NewSearchService(db)

	t.Run("admin sees every type, best rank first", func(t *testing.T) {
		results, err := svc.Search(context.Background(), admin, "acme", 20)
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.Equal(t, 2.0, results[0].Rank)
		types := map[string]bool{}
		for _, r := range results {
			types[r.Type] = true
			assert.NotEqual(t, "Acme Foreign", r.Title)
		}
		assert.True(t, types[SearchTypeCompany])
		assert.True(t, types[SearchTypeContact])
		assert.True(t, types[SearchTypeProject])
	})

	t.Run("permissions filter resources", func(t *testing.T) {
		limited := &models.User{OrganizationID: admin.OrganizationID, Permissions: []string{"projects:read"}}
		results, err := svc.Search(context.Background(), limited, "acme", 20)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, SearchTypeProject, results[0].Type)
	})

	t.Run("short query", func(t *testing.T) {
		results, err := svc.Search(context.Background(), admin, "a", 20)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
