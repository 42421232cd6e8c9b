package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"biz_flow_app_go/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCSRFToken(t *testing.T) {
	e := echo.New()

	c := e.NewContext(nil, nil)
	assert.Equal(t, "", GetCSRFToken(c))

	c.Set("csrf", "test-csrf-token")
	assert.Equal(t, "test-csrf-token", GetCSRFToken(c))

	c.Set("csrf", 123)
	assert.Equal(t, "", GetCSRFToken(c))
}

func TestCSRF(t *testing.T) {
	e := echo.New()
	mw := CSRF(&config.Config{})

	t.Run("FormPostWithoutTokenRejected", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), httptest.NewRecorder())
		err := mw(okHandler)(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, httpErr.Code)
	})

	t.Run("BearerSkipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/commercial/companies", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
		c := e.NewContext(req, httptest.NewRecorder())
		assert.NoError(t, mw(okHandler)(c))
	})

	t.Run("GetIssuesToken", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), rec)
		require.NoError(t, mw(okHandler)(c))
		assert.NotEmpty(t, GetCSRFToken(c))
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "_csrf=")
	})
}
