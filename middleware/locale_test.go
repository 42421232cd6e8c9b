package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services/i18n"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLocale(t *testing.T, req *http.Request, setup func(c echo.Context)) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	require.NoError(t, i18n.Load())
	cfg := &config.Config{Environment: "development", DefaultLocale: "fr"}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, Locale(cfg)(okHandler)(c))
	return c, rec
}

func TestLocale(t *testing.T) {
	t.Run("QueryParamSetsCookie", func(t *testing.T) {
		c, rec := runLocale(t, httptest.NewRequest(http.MethodGet, "/?lang=en", nil), nil)
		assert.Equal(t, "en", c.Get("locale"))
		assert.Equal(t, "en", i18n.GetLocale(c.Request().Context()))

		found := false
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == "lang" {
				assert.Equal(t, "en", cookie.Value)
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("UnsupportedQueryParamIgnored", func(t *testing.T) {
		c, rec := runLocale(t, httptest.NewRequest(http.MethodGet, "/?lang=xx", nil), nil)
		assert.Equal(t, "fr", c.Get("locale"))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "lang", Value: "en"})
		c, _ := runLocale(t, req, nil)
		assert.Equal(t, "en", c.Get("locale"))
	})

	t.Run("UserPreference", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
		c, _ := runLocale(t, req, func(c echo.Context) {
			c.Set(ContextKeyUser, &models.User{ID: "u1", Language: "en"})
		})
		assert.Equal(t, "en", c.Get("locale"))
	})

	t.Run("Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "de-DE,en;q=0.8")
		c, _ := runLocale(t, req, nil)
		assert.Equal(t, "en", c.Get("locale"))
	})

	t.Run("Default", func(t *testing.T) {
		c, _ := runLocale(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		assert.Equal(t, "fr", c.Get("locale"))
	})
}

func TestFromAcceptLanguage(t *testing.T) {
	require.NoError(t, i18n.Load())
	assert.Equal(t, "en", fromAcceptLanguage("en-US,en;q=0.9"))
	assert.Equal(t, "fr", fromAcceptLanguage("es, fr-CA;q=0.5"))
	assert.Equal(t, "", fromAcceptLanguage("es"))
	assert.Equal(t, "", fromAcceptLanguage(""))
}

func TestGetLocale(t *testing.T) {
	require.NoError(t, i18n.Load())
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, i18n.Default(), GetLocale(c))
	c.Set("locale", "en")
	assert.Equal(t, "en", GetLocale(c))
}
