package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services/i18n"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with every model migrated
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// seedOrg creates an organization with its system roles and an admin user
func seedOrg(t *testing.T, db *gorm.DB) (*models.Organization, *models.User) {
	t.Helper()
	org := &models.Organization{Name: "Acme " + uuid.New().String()[:8]}
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, SeedSystemRoles(db, org.ID))

	hash, err := HashPassword("Sup3r-Secret-Pass!")
	require.NoError(t, err)
	admin := &models.User{
		Name:           "Alice Admin",
		Email:          "admin-" + org.ID[:8] + "@acme.test",
		Password:       hash,
		OrganizationID: &org.ID,
		Role:           models.RoleAdmin,
		IsActive:       true,
	}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, LoadPermissions(db, admin))
	return org, admin
}

func testCtx() context.Context {
	_ = i18n.Load()
	return i18n.WithLocale(context.Background(), "en")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
