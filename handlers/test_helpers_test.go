package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory name isolates tests while letting async audit writes see the schema
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))
	require.NoError(t, i18n.Load())

	db.DB = testDB
	searchService = nil
	return testDB
}

// seedOrganization creates a tenant and its admin through the service layer
func seedOrganization(t *testing.T, database *gorm.DB) (*models.Organization, *models.User) {
	t.Helper()
	org, admin, err := services.CreateOrganizationWithAdmin(database, services.CreateOrganizationInput{
		Name:          "Acme " + uuid.New().String()[:8],
		Currency:      "EUR",
		AdminName:     "Alice Admin",
		AdminEmail:    "admin-" + uuid.New().String()[:8] + "@acme.test",
		AdminPassword: "Sup3r-Secret-Pass!",
		Language:      "en",
	})
	require.NoError(t, err)
	require.NoError(t, services.LoadPermissions(database, admin))
	return org, admin
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(i18n.WithLocale(req.Context(), "en"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set("config", &config.Config{
		Environment: "test",
	})

	return e, c, rec
}

// withUser puts the authenticated user and its organization on the context
func withUser(c echo.Context, user *models.User, org *models.Organization) {
	c.Set("user", user)
	c.Set("organization", org)
}

func asHTMX(c echo.Context) {
	c.Request().Header.Set("HX-Request", "true")
}
