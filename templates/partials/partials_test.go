package partials

import (
	"bytes"
	"context"
	"testing"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	require.NoError(t, i18n.Load())
	var buf bytes.Buffer
	require.NoError(t, c.Render(i18n.WithLocale(context.Background(), "en"), &buf))
	return buf.String()
}

func TestNotificationCount(t *testing.T) {
	assert.Empty(t, render(t, NotificationCount(0)))

	html := render(t, NotificationCount(3))
	assert.Contains(t, html, `hx-get="/api/v1/notifications"`)
	assert.Contains(t, html, `>3</a>`)
}

func TestNotificationList(t *testing.T) {
	now := time.Now()

	t.Run("Empty", func(t *testing.T) {
		html := render(t, NotificationList(nil, now))
		assert.Contains(t, html, "No notifications")
	})

	t.Run("Escapes and links", func(t *testing.T) {
		html := render(t, NotificationList([]models.Notification{
			{ID: "n1", Title: "<b>Invoice</b>", Message: "Paid", LinkURL: "/invoices/1", CreatedAt: now},
			{ID: "n2", Title: "Plain", CreatedAt: now},
		}, now))

		assert.Contains(t, html, `id="notification-n1"`)
		assert.Contains(t, html, `<a href="/invoices/1">&lt;b&gt;Invoice&lt;/b&gt;</a>`)
		assert.Contains(t, html, `<strong>Plain</strong>`)
		assert.Contains(t, html, `hx-put="/api/v1/notifications/n2/read"`)
		assert.Contains(t, html, `hx-target="#notification-n2"`)
		assert.Contains(t, html, "Mark as read")
		assert.NotContains(t, html, "<b>Invoice")
	})
}

func TestSearchResults(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Contains(t, render(t, SearchResults(nil)), "No results")
	})

	t.Run("Snippet markup is kept", func(t *testing.T) {
		html := render(t, SearchResults([]services.SearchResult{
			{Type: "company", URL: "/companies/c1", Snippet: "<mark>Acme</mark> &amp; Co"},
		}))
		assert.Contains(t, html, `<a href="/companies/c1">`)
		assert.Contains(t, html, "<mark>Acme</mark> &amp; Co")
	})

	t.Run("Unsafe URL is sanitized", func(t *testing.T) {
		html := render(t, SearchResults([]services.SearchResult{
			{Type: "company", URL: `/c"><script>`, Snippet: "x"},
		}))
		assert.NotContains(t, html, "<script>")
	})
}
