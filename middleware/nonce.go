package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"biz_flow_app_go/config"

	"github.com/labstack/echo/v4"
)

type contextKey string

const NonceKey contextKey = "csp_nonce"

// scriptCDN serves htmx
const scriptCDN = "https://unpkg.com"

// GenerateNonce returns 128 random bits, URL-safe encoded
func GenerateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// contentPolicy builds the Content-Security-Policy of one response. Testimonial
// media may be served from the object storage public URL.
func contentPolicy(nonce, mediaOrigin string) string {
	media := "'self' data:"
	if mediaOrigin != "" {
		media += " " + mediaOrigin
	}
	directives := []string{
		"default-src 'self'",
		fmt.Sprintf("script-src 'self' 'nonce-%s' %s", nonce, scriptCDN),
		"style-src 'self' 'unsafe-inline'",
		"img-src " + media,
		"media-src " + media,
		"connect-src 'self'",
		"frame-ancestors 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

// CSPNonce issues a nonce per request, stores it on the echo and request
// contexts for the templates, and sends the matching policy
func CSPNonce(cfg *config.Config) echo.MiddlewareFunc {
	mediaOrigin := strings.TrimRight(cfg.S3PublicURL, "/")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			nonce, err := GenerateNonce()
			if err != nil {
				return fmt.Errorf("failed to generate nonce: %w", err)
			}

			c.Set(string(NonceKey), nonce)
			c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), NonceKey, nonce)))
			c.Response().Header().Set("Content-Security-Policy", contentPolicy(nonce, mediaOrigin))
			return next(c)
		}
	}
}

// GetNonce returns the nonce of the request carried by ctx
func GetNonce(ctx context.Context) string {
	nonce, _ := ctx.Value(NonceKey).(string)
	return nonce
}
