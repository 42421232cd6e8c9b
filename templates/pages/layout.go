package pages

import (
	"context"

	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// PageMeta is what every full page needs besides its body
type PageMeta struct {
	Title        string
	CSRFToken    string
	User         *models.User
	Organization *models.Organization
	// Active is the nav entry to highlight
	Active string
}

type navItem struct {
	key        string
	href       string
	permission string
}

var navItems = []navItem{
	{"dashboard", "/dashboard", "dashboard:read"},
	{"companies", "/companies", "companies:read"},
	{"opportunities", "/opportunities", "opportunities:read"},
	{"testimonials", "/testimonials", "testimonials:read"},
	{"projects", "/projects", "projects:read"},
	{"employees", "/employees", "employees:read"},
	{"timesheets", "/timesheets", "timesheets:read"},
	{"treasury", "/treasury", "treasury:read"},
	{"invoices", "/invoices", "invoices:read"},
	{"users", "/admin/users", "users:read"},
	{"roles", "/admin/roles", "roles:read"},
	{"audit", "/admin/audit-logs", "audit:read"},
}

func head(ctx context.Context, hw *components.Writer, title string) {
	nonce := middleware.GetNonce(ctx)
	hw.Raw(`<!DOCTYPE html><html`)
	hw.Attr("lang", i18n.GetLocale(ctx))
	hw.Raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
	hw.Text(title)
	hw.Raw(`</title><link rel="stylesheet"`)
	hw.Attr("href", middleware.AssetURL("css/app.css"))
	hw.Raw(`><script src="https://unpkg.com/htmx.org@2.0.4"`)
	hw.Attr("nonce", nonce)
	hw.Raw(`></script><script defer`)
	hw.Attr("src", middleware.AssetURL("js/app.js"))
	hw.Attr("nonce", nonce)
	hw.Raw(`></script></head>`)
}

// Layout wraps an authenticated page with navigation
func Layout(meta PageMeta, body templ.Component) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		head(ctx, hw, meta.Title)
		hw.Raw(`<body`)
		hw.Attr("hx-headers", components.JSON(map[string]string{"X-CSRF-Token": meta.CSRFToken}))
		hw.Raw(`><header class="topbar"><a class="brand" href="/dashboard">`)
		if meta.Organization != nil {
			hw.Text(meta.Organization.Name)
		} else {
			hw.Text("BizFlow")
		}
		hw.Raw(`</a><nav class="nav">`)
		for _, item := range navItems {
			if meta.User == nil || !meta.User.Can(item.permission) {
				continue
			}
			hw.Raw(`<a`)
			hw.Attr("href", item.href)
			if item.key == meta.Active {
				hw.Raw(` class="active" aria-current="page"`)
			}
			hw.Raw(`>`)
			hw.Text(i18n.T(ctx, "nav."+item.key))
			hw.Raw(`</a>`)
		}
		hw.Raw(`</nav><div class="userbox">`)
		if meta.User != nil {
			hw.Raw(`<div class="global-search"><input type="search" name="q" hx-get="/api/v1/search" hx-trigger="input changed delay:300ms, search" hx-target="#search-results"`)
			hw.Attr("placeholder", i18n.T(ctx, "search.placeholder"))
			hw.Raw(`><div id="search-results"></div></div>`)
			hw.Raw(`<span id="notification-count" hx-get="/api/v1/notifications/count" hx-trigger="load, every 60s, notificationsChanged from:body" hx-swap="innerHTML"></span><span>`)
			hw.Text(meta.User.Name)
			hw.Raw(`</span><form method="post" action="/logout"><input type="hidden" name="_csrf"`)
			hw.Attr("value", meta.CSRFToken)
			hw.Raw(`><button type="submit" class="btn btn-link">`)
			hw.Text(i18n.T(ctx, "nav.logout"))
			hw.Raw(`</button></form>`)
		}
		hw.Raw(`</div></header><main class="content"><h1>`)
		hw.Text(meta.Title)
		hw.Raw(`</h1>`)
		hw.Component(ctx, body)
		hw.Raw(`</main><div id="toasts" aria-live="polite"></div><div id="modal"></div></body></html>`)
	})
}

// Login renders the sign-in page
func Login(title, csrfToken, errorMessage string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		head(ctx, hw, title)
		hw.Raw(`<body class="login"><main class="login-card"><h1>`)
		hw.Text(i18n.T(ctx, "auth.login_title"))
		hw.Raw(`</h1><div id="login-errors">`)
		if errorMessage != "" {
			hw.Component(ctx, components.Alert("error", errorMessage))
		}
		hw.Raw(`</div><form method="post" action="/login" hx-post="/login" hx-target="#login-errors"><input type="hidden" name="_csrf"`)
		hw.Attr("value", csrfToken)
		hw.Raw(`><label class="field"><span>`)
		hw.Text(i18n.T(ctx, "fields.email"))
		hw.Raw(`</span><input type="email" name="email" required autofocus></label><label class="field"><span>`)
		hw.Text(i18n.T(ctx, "fields.password"))
		hw.Raw(`</span><input type="password" name="password" required></label><button type="submit" class="btn btn-primary">`)
		hw.Text(i18n.T(ctx, "auth.login"))
		hw.Raw(`</button></form><p><a href="/forgot-password">`)
		hw.Text(i18n.T(ctx, "auth.forgot_password"))
		hw.Raw(`</a></p></main></body></html>`)
	})
}

// ForgotPassword asks for the email receiving the reset link
func ForgotPassword(title, csrfToken string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		head(ctx, hw, title)
		hw.Raw(`<body class="login"><main class="login-card"><h1>`)
		hw.Text(i18n.T(ctx, "auth.forgot_password"))
		hw.Raw(`</h1><p>`)
		hw.Text(i18n.T(ctx, "auth.forgot_help"))
		hw.Raw(`</p><div id="forgot-result"></div><form method="post" action="/forgot-password" hx-post="/forgot-password" hx-target="#forgot-result"><input type="hidden" name="_csrf"`)
		hw.Attr("value", csrfToken)
		hw.Raw(`><label class="field"><span>`)
		hw.Text(i18n.T(ctx, "fields.email"))
		hw.Raw(`</span><input type="email" name="email" required autofocus></label><button type="submit" class="btn btn-primary">`)
		hw.Text(i18n.T(ctx, "auth.send_reset_link"))
		hw.Raw(`</button></form><p><a href="/login">`)
		hw.Text(i18n.T(ctx, "auth.back_to_login"))
		hw.Raw(`</a></p></main></body></html>`)
	})
}

// ResetPassword lets the owner of a reset token choose a new password
func ResetPassword(title, csrfToken, token, errorMessage string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		head(ctx, hw, title)
		hw.Raw(`<body class="login"><main class="login-card"><h1>`)
		hw.Text(i18n.T(ctx, "auth.reset_title"))
		hw.Raw(`</h1><div id="reset-errors">`)
		if errorMessage != "" {
			hw.Component(ctx, components.Alert("error", errorMessage))
		}
		hw.Raw(`</div><form method="post" action="/reset-password" hx-post="/reset-password" hx-target="#reset-errors"><input type="hidden" name="_csrf"`)
		hw.Attr("value", csrfToken)
		hw.Raw(`><input type="hidden" name="token"`)
		hw.Attr("value", token)
		hw.Raw(`><label class="field"><span>`)
		hw.Text(i18n.T(ctx, "fields.password"))
		hw.Raw(`</span><input type="password" name="password" required autocomplete="new-password"></label><label class="field"><span>`)
		hw.Text(i18n.T(ctx, "fields.password_confirm"))
		hw.Raw(`</span><input type="password" name="password_confirm" required autocomplete="new-password"></label><button type="submit" class="btn btn-primary">`)
		hw.Text(i18n.T(ctx, "auth.reset_submit"))
		hw.Raw(`</button></form></main></body></html>`)
	})
}
