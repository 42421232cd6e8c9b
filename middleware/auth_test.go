package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-jwt-secret-with-enough-entropy!"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require.NoError(t, i18n.Load())
	dsn := fmt.Sprintf("file:mw_%s?mode=memory&cache=shared", uuid.New().String())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// Set the global DB variable used by middleware
	db.DB = testDB
	return testDB
}

func seedUser(t *testing.T, testDB *gorm.DB, role string) (*models.Organization, *models.User) {
	t.Helper()
	org := &models.Organization{Name: "Acme"}
	require.NoError(t, testDB.Create(org).Error)
	require.NoError(t, services.SeedSystemRoles(testDB, org.ID))

	user := &models.User{
		Name:           "Test User",
		Email:          uuid.New().String()[:8] + "@example.com",
		Password:       "x",
		OrganizationID: &org.ID,
		IsActive:       true,
		Role:           role,
	}
	require.NoError(t, testDB.Create(user).Error)
	return org, user
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequireAuth_Session(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()
	org, user := seedUser(t, testDB, models.RoleAdmin)

	session, err := services.CreateSession(testDB, user.ID, org.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	t.Run("ValidSession", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequireAuth()(okHandler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		current := GetCurrentUser(c)
		require.NotNil(t, current)
		assert.Equal(t, user.ID, current.ID)
		assert.True(t, current.Can("companies:write"))
		require.NotNil(t, GetCurrentOrganization(c))
		assert.Equal(t, org.ID, GetCurrentOrganization(c).ID)
		assert.NotNil(t, GetCurrentSession(c))
	})

	t.Run("NoCookieRedirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequireAuth()(okHandler)(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("HTMXGetsHXRedirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequireAuth()(okHandler)(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	})

	t.Run("APIGets401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := RequireAuth()(okHandler)(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("InvalidSessionClearsCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequireAuth()(okHandler)(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookieName+"=;")
	})

	t.Run("InactiveUser", func(t *testing.T) {
		require.NoError(t, testDB.Model(user).Update("is_active", false).Error)
		defer testDB.Model(user).Update("is_active", true)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RequireAuth()(okHandler)(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Nil(t, GetCurrentUser(c))
	})
}

func TestRequireAuth_Bearer(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()
	cfg := &config.Config{JWTSecret: testJWTSecret}
	_, user := seedUser(t, testDB, models.RoleSales)

	token, _, err := services.IssueAPIToken(cfg.JWTSecret, user, time.Hour)
	require.NoError(t, err)

	call := func(header string) (echo.Context, error) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set("config", cfg)
		return c, RequireAuth()(okHandler)(c)
	}

	c, err := call("Bearer " + token)
	require.NoError(t, err)
	require.NotNil(t, GetCurrentUser(c))
	assert.Equal(t, user.ID, GetCurrentUser(c).ID)
	assert.Nil(t, GetCurrentSession(c))
	assert.True(t, GetCurrentUser(c).Can("opportunities:write"))

	_, err = call("Bearer not-a-token")
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	other, _, err := services.IssueAPIToken("another-secret", user, time.Hour)
	require.NoError(t, err)
	_, err = call("Bearer " + other)
	require.ErrorAs(t, err, &httpErr)
}

func TestRequirePermission(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name        string
		permissions []string
		want        int
	}{
		{"exact", []string{"companies:write"}, http.StatusOK},
		{"wildcard action", []string{"companies:*"}, http.StatusOK},
		{"wildcard resource", []string{"*:write"}, http.StatusOK},
		{"missing", []string{"companies:read"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/commercial/companies", nil), httptest.NewRecorder())
			c.Set(ContextKeyUser, &models.User{ID: "u1", Permissions: tc.permissions})

			err := RequirePermission("companies:write")(okHandler)(c)
			if tc.want == http.StatusOK {
				assert.NoError(t, err)
				return
			}
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.want, httpErr.Code)
		})
	}
}

func TestRequireOrganization(t *testing.T) {
	e := echo.New()

	t.Run("NoOrganizationAPI", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), httptest.NewRecorder())
		c.Set(ContextKeyUser, &models.User{ID: "u1"})

		err := RequireOrganization()(okHandler)(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})

	t.Run("WithOrganization", func(t *testing.T) {
		orgID := "org-1"
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), httptest.NewRecorder())
		c.Set(ContextKeyUser, &models.User{ID: "u1", OrganizationID: &orgID})
		c.Set(ContextKeyOrganization, &models.Organization{ID: orgID})

		assert.NoError(t, RequireOrganization()(okHandler)(c))
	})
}

func TestGetOrgScopedQuery(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()
	org, user := seedUser(t, testDB, models.RoleAdmin)
	otherOrg, _ := seedUser(t, testDB, models.RoleAdmin)

	require.NoError(t, testDB.Create(&models.Company{OrganizationID: org.ID, Name: "Mine"}).Error)
	require.NoError(t, testDB.Create(&models.Company{OrganizationID: otherOrg.ID, Name: "Theirs"}).Error)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(ContextKeyUser, user)

	var companies []models.Company
	require.NoError(t, GetOrgScopedQuery(c, testDB).Find(&companies).Error)
	require.Len(t, companies, 1)
	assert.Equal(t, "Mine", companies[0].Name)

	anonymous := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	companies = nil
	require.NoError(t, GetOrgScopedQuery(anonymous, testDB).Find(&companies).Error)
	assert.Empty(t, companies)
}

func TestCanModifyUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.False(t, CanModifyUser(c, "u1"))

	c.Set(ContextKeyUser, &models.User{ID: "u1", Permissions: []string{"*:read"}})
	assert.True(t, CanModifyUser(c, "u1"))
	assert.False(t, CanModifyUser(c, "u2"))

	c.Set(ContextKeyUser, &models.User{ID: "u1", Permissions: []string{"*:*"}})
	assert.True(t, CanModifyUser(c, "u2"))
}
