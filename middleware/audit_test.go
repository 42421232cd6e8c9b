package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditContext(t *testing.T) {
	e := echo.New()

	t.Run("FullContext", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", "test-agent")
		c := e.NewContext(req, httptest.NewRecorder())

		orgID := "org-456"
		c.Set(ContextKeyUser, &models.User{ID: "user-123", Name: "Test User", Role: "admin", OrganizationID: &orgID})

		require.NoError(t, AuditContext()(okHandler)(c))

		auditCtx := GetAuditContext(c)
		assert.Equal(t, "user-123", auditCtx.UserID)
		assert.Equal(t, "Test User", auditCtx.UserName)
		assert.Equal(t, "admin", auditCtx.UserRole)
		assert.Equal(t, "org-456", auditCtx.OrganizationID)
		assert.Equal(t, "test-agent", auditCtx.UserAgent)
	})

	t.Run("NoAuth", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		require.NoError(t, AuditContext()(okHandler)(c))

		auditCtx := GetAuditContext(c)
		assert.Empty(t, auditCtx.UserID)
		assert.Empty(t, auditCtx.OrganizationID)
		assert.NotEmpty(t, auditCtx.IPAddress)
	})
}

func TestGetAuditContext(t *testing.T) {
	e := echo.New()

	t.Run("Exists", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		expected := services.AuditContext{UserID: "123"}
		c.Set(ContextKeyAuditContext, expected)

		assert.Equal(t, expected, GetAuditContext(c))
	})

	t.Run("BuiltOnDemand", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(ContextKeyUser, &models.User{ID: "u9", Name: "Late"})

		ctx := GetAuditContext(c)
		assert.Equal(t, "u9", ctx.UserID)
		assert.Equal(t, "Late", ctx.UserName)
	})
}
