package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"biz_flow_app_go/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce()
	require.NoError(t, err)
	b, err := GenerateNonce()
	require.NoError(t, err)

	assert.Len(t, a, 22)
	assert.NotEqual(t, a, b)
}

func TestCSPNonce(t *testing.T) {
	run := func(cfg *config.Config) (echo.Context, *httptest.ResponseRecorder) {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)
		err := CSPNonce(cfg)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
		require.NoError(t, err)
		return c, rec
	}

	t.Run("Nonce shared by contexts and header", func(t *testing.T) {
		c, rec := run(&config.Config{})

		nonce, _ := c.Get(string(NonceKey)).(string)
		require.NotEmpty(t, nonce)
		assert.Equal(t, nonce, GetNonce(c.Request().Context()))

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "'nonce-"+nonce+"'")
		assert.Contains(t, csp, "connect-src 'self'")
		assert.Contains(t, csp, "media-src 'self' data:;")
		assert.NotContains(t, csp, "unsafe-eval")
	})

	t.Run("Storage public URL allowed for media", func(t *testing.T) {
		_, rec := run(&config.Config{S3PublicURL: "https://media.bizflow.test/"})

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "img-src 'self' data: https://media.bizflow.test;")
		assert.Contains(t, csp, "media-src 'self' data: https://media.bizflow.test;")
	})
}

func TestGetNonce(t *testing.T) {
	assert.Equal(t, "n-1", GetNonce(context.WithValue(context.Background(), NonceKey, "n-1")))
	assert.Equal(t, "", GetNonce(context.Background()))
}
