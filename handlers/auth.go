package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"
	"biz_flow_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// LoginHandler renders the login page
func LoginHandler(c echo.Context) error {
	if middleware.GetCurrentUser(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return render(c, http.StatusOK, pages.Login(tr(c, "auth.login_title")+" | BizFlow", middleware.GetCSRFToken(c), ""))
}

// loginFailed answers a rejected login without revealing which check failed
func loginFailed(c echo.Context, err error) error {
	message := errorMessage(c, err)
	if isHTMX(c) {
		return render(c, http.StatusOK, components.Alert("error", message))
	}
	return render(c, http.StatusUnauthorized, pages.Login(tr(c, "auth.login_title")+" | BizFlow", middleware.GetCSRFToken(c), message))
}

// LoginPostHandler handles the login form submission
func LoginPostHandler(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return loginFailed(c, services.ErrInvalidCredentials)
	}

	user, err := services.Authenticate(db.DB, email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			services.Monitor.TrackFailedLogin(c.RealIP(), email)
		}
		if errorStatus(err) >= http.StatusInternalServerError {
			return respondError(c, err)
		}
		return loginFailed(c, err)
	}
	services.Monitor.ResetIP(c.RealIP())

	if !user.HasOrganization() {
		return loginFailed(c, services.ErrAccountInactive)
	}

	session, err := services.CreateSession(db.DB, user.ID, *user.OrganizationID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return respondError(c, err)
	}

	cfg := getConfig(c)
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(services.DefaultSessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	auditCtx := services.AuditContext{
		UserID:         user.ID,
		UserName:       user.Name,
		UserRole:       user.Role,
		OrganizationID: *user.OrganizationID,
		IPAddress:      c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	}
	services.LogAuditEvent(db.DB, auditCtx, models.AuditActionLogin, "User", user.ID, user.Name, "User logged in", nil, nil)

	if user.Language != "" {
		middleware.SetLanguageCookie(c, user.Language)
	}

	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/dashboard")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// LogoutHandler deletes the session and clears the cookie
func LogoutHandler(c echo.Context) error {
	if session := middleware.GetCurrentSession(c); session != nil {
		if err := services.DeleteSession(db.DB, session.Token); err != nil {
			return respondError(c, err)
		}
	}
	if user := middleware.GetCurrentUser(c); user != nil {
		audit(c, models.AuditActionLogout, "User", user.ID, user.Name, nil, nil)
	}
	middleware.ClearSessionCookie(c)

	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

type tokenRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// IssueTokenHandler exchanges credentials for an API bearer token
func IssueTokenHandler(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	user, err := services.Authenticate(db.DB, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			services.Monitor.TrackFailedLogin(c.RealIP(), req.Email)
		}
		return respondError(c, err)
	}
	if !user.HasOrganization() {
		return respondError(c, services.ErrAccountInactive)
	}

	cfg := getConfig(c)
	token, expiresAt, err := services.IssueAPIToken(cfg.JWTSecret, user, cfg.JWTTTL)
	if err != nil {
		return respondError(c, err)
	}
	services.LogSecurityEvent(db.DB, "API_TOKEN_ISSUED", user.ID, "Bearer token issued")

	return c.JSON(http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: user})
}

// MeHandler returns the authenticated user with their resolved permissions
func MeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return respondError(c, echo.NewHTTPError(http.StatusUnauthorized, tr(c, "errors.unauthorized")))
	}
	return c.JSON(http.StatusOK, user)
}

// ForgotPasswordHandler renders the reset request form
func ForgotPasswordHandler(c echo.Context) error {
	return render(c, http.StatusOK, pages.ForgotPassword(tr(c, "auth.forgot_password")+" | BizFlow", middleware.GetCSRFToken(c)))
}

// ForgotPasswordPostHandler always answers the same message so accounts cannot be enumerated
func ForgotPasswordPostHandler(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	if email != "" {
		if err := services.RequestPasswordReset(db.DB, getConfig(c), email, middleware.GetLocale(c), now()); err != nil {
			return respondError(c, err)
		}
	}
	return render(c, http.StatusOK, components.Alert("success", tr(c, "auth.reset_sent")))
}

// ResetPasswordHandler renders the new password form for a valid token
func ResetPasswordHandler(c echo.Context) error {
	token := c.QueryParam("token")
	message := ""
	if _, err := services.ValidateResetToken(db.DB, token, now()); err != nil {
		message = tr(c, "auth.reset_invalid")
	}
	return render(c, http.StatusOK, pages.ResetPassword(tr(c, "auth.reset_title")+" | BizFlow", middleware.GetCSRFToken(c), token, message))
}

// ResetPasswordPostHandler sets the new password and sends the user to the login page
func ResetPasswordPostHandler(c echo.Context) error {
	password := c.FormValue("password")
	if password != c.FormValue("password_confirm") {
		return respondError(c, services.NewValidationError("password_confirm", "validation.password_mismatch"))
	}
	if err := services.ResetPassword(db.DB, c.FormValue("token"), password, now()); err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
