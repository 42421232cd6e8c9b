package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedOrganizationFromEnv(t *testing.T) {
	t.Run("Creates organization and admin when env vars are set", func(t *testing.T) {
		db := setupTestDB(t)
		t.Setenv("SEED_ORG_NAME", "Seed Corp")
		t.Setenv("SEED_ADMIN_EMAIL", "boss@seed.test")
		t.Setenv("SEED_ADMIN_PASSWORD", "Sup3r-Secret-Pass!")
		t.Setenv("SEED_ADMIN_NAME", "Boss")

		require.NoError(t, SeedOrganizationFromEnv(db))

		var org models.Organization
		require.NoError(t, db.Where("name = ?", "Seed Corp").First(&org).Error)

		var user models.User
		require.NoError(t, db.Where("email = ?", "boss@seed.test").First(&user).Error)
		assert.Equal(t, "Boss", user.Name)
		assert.Equal(t, models.RoleAdmin, user.Role)
		require.NotNil(t, user.OrganizationID)
		assert.Equal(t, org.ID, *user.OrganizationID)
	})

	t.Run("Skips when env vars are missing", func(t *testing.T) {
		db := setupTestDB(t)
		t.Setenv("SEED_ORG_NAME", "")
		t.Setenv("SEED_ADMIN_EMAIL", "")
		t.Setenv("SEED_ADMIN_PASSWORD", "")

		require.NoError(t, SeedOrganizationFromEnv(db))

		var count int64
		db.Model(&models.Organization{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Skips when an organization already exists", func(t *testing.T) {
		db := setupTestDB(t)
		seedOrg(t, db)
		t.Setenv("SEED_ORG_NAME", "Second Corp")
		t.Setenv("SEED_ADMIN_EMAIL", "other@seed.test")
		t.Setenv("SEED_ADMIN_PASSWORD", "Sup3r-Secret-Pass!")

		require.NoError(t, SeedOrganizationFromEnv(db))

		var count int64
		db.Model(&models.User{}).Where("email = ?", "other@seed.test").Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
