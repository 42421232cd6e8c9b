package middleware

import (
	"net/http"
	"strings"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "biz_flow_session"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyOrganization is the context key for the user's organization
	ContextKeyOrganization = "organization"
	// ContextKeySession is the context key for the session (absent for bearer tokens)
	ContextKeySession = "session"
)

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// unauthorized sends browsers to the login page and API clients a 401
func unauthorized(c echo.Context) error {
	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusUnauthorized)
	}
	if isAPI(c) || bearerToken(c) != "" {
		return echo.NewHTTPError(http.StatusUnauthorized, i18n.T(c.Request().Context(), "errors.unauthorized"))
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireAuth is middleware that requires authentication, either by session
// cookie or by an "Authorization: Bearer" API token
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := bearerToken(c); token != "" {
				return authenticateBearer(c, token, next)
			}

			cookie, err := c.Cookie(SessionCookieName)
			if err != nil {
				return unauthorized(c)
			}

			session, err := services.ValidateSession(db.DB, cookie.Value)
			if err != nil {
				clearSessionCookie(c)
				return unauthorized(c)
			}

			if !session.User.IsActive {
				clearSessionCookie(c)
				return unauthorized(c)
			}

			user := &session.User
			if err := services.LoadPermissions(db.DB, user); err != nil {
				return err
			}

			c.Set(ContextKeyUser, user)
			if user.Organization != nil {
				c.Set(ContextKeyOrganization, user.Organization)
			}
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

func authenticateBearer(c echo.Context, token string, next echo.HandlerFunc) error {
	cfg, _ := c.Get("config").(*config.Config)
	if cfg == nil || cfg.JWTSecret == "" {
		return unauthorized(c)
	}

	claims, err := services.ParseAPIToken(cfg.JWTSecret, token)
	if err != nil {
		return unauthorized(c)
	}

	var user models.User
	if err := db.DB.Preload("Organization").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return unauthorized(c)
	}
	if !user.IsActive {
		return unauthorized(c)
	}
	// tokens issued before an organization switch are rejected
	if user.OrganizationID != nil && *user.OrganizationID != claims.OrganizationID {
		return unauthorized(c)
	}
	if err := services.LoadPermissions(db.DB, &user); err != nil {
		return err
	}

	c.Set(ContextKeyUser, &user)
	if user.Organization != nil {
		c.Set(ContextKeyOrganization, user.Organization)
	}
	return next(c)
}

// RequirePermission is middleware that requires the user's role to grant a permission
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return unauthorized(c)
			}

			if !user.Can(permission) {
				return echo.NewHTTPError(http.StatusForbidden, i18n.T(c.Request().Context(), "errors.forbidden"))
			}

			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentOrganization retrieves the current organization from context
func GetCurrentOrganization(c echo.Context) *models.Organization {
	org, ok := c.Get(ContextKeyOrganization).(*models.Organization)
	if !ok {
		return nil
	}
	return org
}

// GetCurrentSession retrieves the cookie session, nil for bearer-authenticated requests
func GetCurrentSession(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// clearSessionCookie clears the session cookie
func clearSessionCookie(c echo.Context) {
	var isProduction bool
	if cfg, ok := c.Get("config").(*config.Config); ok {
		isProduction = cfg.IsProduction()
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}

// ClearSessionCookie is used by the logout handler
func ClearSessionCookie(c echo.Context) {
	clearSessionCookie(c)
}

// RequireOrganization ensures the user belongs to an organization
func RequireOrganization() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)

			if user == nil {
				return unauthorized(c)
			}

			if !user.HasOrganization() || GetCurrentOrganization(c) == nil {
				if isAPI(c) {
					return echo.NewHTTPError(http.StatusForbidden, i18n.T(c.Request().Context(), "errors.no_organization"))
				}
				if isHTMX(c) {
					c.Response().Header().Set("HX-Redirect", "/login")
					return c.NoContent(http.StatusSeeOther)
				}
				return c.Redirect(http.StatusSeeOther, "/login")
			}

			return next(c)
		}
	}
}

// CurrentOrganizationID returns the tenant of the request, empty when unauthenticated
func CurrentOrganizationID(c echo.Context) string {
	user := GetCurrentUser(c)
	if user == nil || user.OrganizationID == nil {
		return ""
	}
	return *user.OrganizationID
}

// GetOrgScopedQuery returns a GORM query scoped to the current user's organization
func GetOrgScopedQuery(c echo.Context, db *gorm.DB) *gorm.DB {
	orgID := CurrentOrganizationID(c)
	if orgID == "" {
		// Return query that matches nothing
		return db.Where("1 = 0")
	}

	return db.Where("organization_id = ?", orgID)
}

// CanModifyUser checks if the current user can modify another user's data
func CanModifyUser(c echo.Context, targetUserID string) bool {
	currentUser := GetCurrentUser(c)
	if currentUser == nil {
		return false
	}
	if currentUser.Can("users:write") {
		return true
	}
	// Users can modify their own profile
	return currentUser.ID == targetUserID
}
