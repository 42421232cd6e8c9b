package jobs

import (
	"fmt"
	"testing"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:jobs_%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	org     models.Organization
	user    models.User
	project models.Project
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	org := models.Organization{Name: "Acme"}
	require.NoError(t, db.Create(&org).Error)
	user := models.User{
		Name:           "Jane Manager",
		Email:          "jane@acme.test",
		Password:       "x",
		OrganizationID: &org.ID,
		Role:           models.RoleAdmin,
		IsActive:       true,
		Language:       "en",
	}
	require.NoError(t, db.Create(&user).Error)
	project := models.Project{OrganizationID: org.ID, Code: "PRJ-2026-0001", Name: "Website"}
	require.NoError(t, db.Create(&project).Error)
	return fixture{org: org, user: user, project: project}
}

func TestSendDeadlineReminders(t *testing.T) {
	db := setupJobsTestDB(t)
	cfg := &config.Config{AppURL: "http://test.com", EmailTestMode: true, DefaultLocale: "fr"}
	f := seedFixture(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	newDeadline := func(title string, due time.Time, assigned bool) *models.Deadline {
		d := &models.Deadline{
			OrganizationID: f.org.ID,
			ProjectID:      f.project.ID,
			Title:          title,
			DueDate:        due,
		}
		if assigned {
			d.AssigneeID = &f.user.ID
		}
		require.NoError(t, db.Create(d).Error)
		return d
	}

	soon := newDeadline("Delivery", now.Add(24*time.Hour), true)
	far := newDeadline("Later", now.Add(72*time.Hour), true)
	unassigned := newDeadline("Nobody", now.Add(24*time.Hour), false)
	reminded := newDeadline("Already", now.Add(12*time.Hour), true)
	sentAt := now.Add(-time.Hour)
	require.NoError(t, db.Model(reminded).Update("reminder_sent_at", sentAt).Error)

	sent := SendDeadlineReminders(db, cfg, now)
	assert.Equal(t, 1, sent)

	reload := func(id string) models.Deadline {
		var d models.Deadline
		require.NoError(t, db.First(&d, "id = ?", id).Error)
		return d
	}
	assert.NotNil(t, reload(soon.ID).ReminderSentAt)
	assert.Nil(t, reload(far.ID).ReminderSentAt)
	assert.Nil(t, reload(unassigned.ID).ReminderSentAt)

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", f.user.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypeDeadline, notifications[0].Type)
	assert.Equal(t, "/projects/"+f.project.ID, notifications[0].LinkURL)

	// second run is a no-op
	assert.Equal(t, 0, SendDeadlineReminders(db, cfg, now.Add(time.Hour)))
}

func TestRunHourly_MarksMissedAndOverdue(t *testing.T) {
	db := setupJobsTestDB(t)
	cfg := &config.Config{AppURL: "http://test.com", EmailTestMode: true}
	f := seedFixture(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	old := models.Deadline{OrganizationID: f.org.ID, ProjectID: f.project.ID, Title: "Old", DueDate: now.AddDate(0, 0, -10)}
	recent := models.Deadline{OrganizationID: f.org.ID, ProjectID: f.project.ID, Title: "Recent", DueDate: now.AddDate(0, 0, -2)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	invoice := models.Invoice{
		OrganizationID: f.org.ID,
		Number:         "INV-2026-00001",
		IssueDate:      now.AddDate(0, -1, 0),
		DueDate:        now.AddDate(0, 0, -1),
		Status:         models.InvoiceStatusSent,
	}
	require.NoError(t, db.Create(&invoice).Error)

	RunHourly(db, cfg, now)

	var reloaded models.Deadline
	require.NoError(t, db.First(&reloaded, "id = ?", old.ID).Error)
	assert.Equal(t, models.DeadlineStatusMissed, reloaded.Status)
	require.NoError(t, db.First(&reloaded, "id = ?", recent.ID).Error)
	assert.Equal(t, models.DeadlineStatusPending, reloaded.Status)

	var inv models.Invoice
	require.NoError(t, db.First(&inv, "id = ?", invoice.ID).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, inv.Status)
}

func TestCleanupSessions(t *testing.T) {
	db := setupJobsTestDB(t)
	f := seedFixture(t, db)

	expired := models.Session{ID: uuid.New().String(), UserID: f.user.ID, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour)}
	live := models.Session{ID: uuid.New().String(), UserID: f.user.ID, Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&live).Error)

	CleanupSessions(db)

	var count int64
	db.Model(&models.Session{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUserLanguage(t *testing.T) {
	cfg := &config.Config{DefaultLocale: "fr"}
	assert.Equal(t, "en", userLanguage(&models.User{Language: "en"}, cfg))
	assert.Equal(t, "fr", userLanguage(&models.User{}, cfg))
	assert.Equal(t, "fr", userLanguage(nil, cfg))
}
