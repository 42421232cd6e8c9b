package partials

import (
	"context"
	"time"

	"biz_flow_app_go/services/i18n"
)

// formatDate renders a date as dd/mm/yyyy, empty for the zero time
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// formatRelativeTime renders how long ago t was, localized
func formatRelativeTime(ctx context.Context, t, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return i18n.T(ctx, "time.just_now")
	case duration < time.Hour:
		return i18n.T(ctx, "time.minutes_ago", map[string]interface{}{"n": int(duration.Minutes())})
	case duration < 24*time.Hour:
		return i18n.T(ctx, "time.hours_ago", map[string]interface{}{"n": int(duration.Hours())})
	case duration < 7*24*time.Hour:
		return i18n.T(ctx, "time.days_ago", map[string]interface{}{"n": int(duration.Hours() / 24)})
	}
	return formatDate(t)
}
