package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)
	svc := NewNotificationService(db)

	require.NoError(t, svc.Notify(org.ID, admin.ID, models.NotificationTypeDeadline, "Deadline soon", "Kickoff is due tomorrow", "/projects/p1"))
	require.NoError(t, svc.Notify(org.ID, "", models.NotificationTypeSystem, "Maintenance", "", ""))
	require.NoError(t, svc.Notify(org.ID, "someone-else", models.NotificationTypeSystem, "Not for admin", "", ""))

	count, err := svc.GetNotificationCount(org.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := svc.GetUnreadNotifications(org.ID, admin.ID, 10)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	require.NoError(t, svc.MarkAsRead(unread[0].ID, admin.ID, org.ID))
	count, _ = svc.GetNotificationCount(org.ID, admin.ID)
	assert.Equal(t, int64(1), count)

	// Another organization cannot touch it
	assert.ErrorIs(t, svc.MarkAsRead(unread[1].ID, admin.ID, "other-org"), ErrNotFound)

	require.NoError(t, svc.MarkAllAsRead(org.ID, admin.ID))
	count, _ = svc.GetNotificationCount(org.ID, admin.ID)
	assert.Equal(t, int64(0), count)
}
