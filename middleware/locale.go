package middleware

import (
	"net/http"
	"strings"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/services/i18n"

	"github.com/labstack/echo/v4"
)

const localeCookieName = "lang"

// Locale middleware handles language detection and persistence.
// Priority:
// 1. Query param "lang" (sets cookie)
// 2. Cookie "lang"
// 3. Preferred language of the signed-in user
// 4. Accept-Language header
// 5. Default from config
func Locale(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := c.QueryParam("lang")
			if lang != "" && i18n.IsSupported(lang) {
				SetLanguageCookie(c, lang)
			} else {
				lang = ""
				if cookie, err := c.Cookie(localeCookieName); err == nil && i18n.IsSupported(cookie.Value) {
					lang = cookie.Value
				}
			}

			if lang == "" {
				if user := GetCurrentUser(c); user != nil && i18n.IsSupported(user.Language) {
					lang = user.Language
				}
			}

			if lang == "" {
				lang = fromAcceptLanguage(c.Request().Header.Get("Accept-Language"))
			}

			if lang == "" {
				lang = cfg.DefaultLocale
				if !i18n.IsSupported(lang) {
					lang = i18n.Default()
				}
			}

			c.Set("locale", lang)
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// fromAcceptLanguage picks the first supported language of the header, in order
func fromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if tag != "" && i18n.IsSupported(tag) {
			return tag
		}
	}
	return ""
}

// SetLanguageCookie sets the language cookie
func SetLanguageCookie(c echo.Context, lang string) {
	cfg, ok := c.Get("config").(*config.Config)

	cookie := new(http.Cookie)
	cookie.Name = localeCookieName
	cookie.Value = lang
	cookie.Expires = time.Now().Add(24 * 365 * time.Hour) // 1 year
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode

	if ok && cfg.IsProduction() {
		cookie.Secure = true
	}

	c.SetCookie(cookie)
}

// GetLocale returns the current locale from context
func GetLocale(c echo.Context) string {
	if lang, ok := c.Get("locale").(string); ok && lang != "" {
		return lang
	}
	return i18n.Default()
}
