package handlers

import (
	"net/http"

	"biz_flow_app_go/db"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

const (
	notificationListLimit     = 50
	eventNotificationsChanged = "notificationsChanged"
)

// GetNotificationsHandler lists the unread notifications of the current user
func GetNotificationsHandler(c echo.Context) error {
	service := services.NewNotificationService(db.DB)
	notifications, err := service.GetUnreadNotifications(orgID(c), currentUserID(c), notificationListLimit)
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, partials.NotificationList(notifications, now()))
	}
	return c.JSON(http.StatusOK, notifications)
}

// NotificationCountHandler renders the unread badge polled by the top bar
func NotificationCountHandler(c echo.Context) error {
	count, err := services.NewNotificationService(db.DB).GetNotificationCount(orgID(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		return render(c, http.StatusOK, partials.NotificationCount(count))
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

// MarkNotificationReadHandler marks one notification read; htmx deletes the item
func MarkNotificationReadHandler(c echo.Context) error {
	service := services.NewNotificationService(db.DB)
	if err := service.MarkAsRead(c.Param("id"), currentUserID(c), orgID(c)); err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		trigger(c, map[string]interface{}{eventNotificationsChanged: true})
		return c.String(http.StatusOK, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsReadHandler clears every unread notification of the user
func MarkAllNotificationsReadHandler(c echo.Context) error {
	service := services.NewNotificationService(db.DB)
	if err := service.MarkAllAsRead(orgID(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	if isHTMX(c) {
		trigger(c, map[string]interface{}{eventNotificationsChanged: true})
		return render(c, http.StatusOK, partials.NotificationList(nil, now()))
	}
	return c.NoContent(http.StatusNoContent)
}
