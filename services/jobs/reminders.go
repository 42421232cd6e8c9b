package jobs

import (
	"log"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"gorm.io/gorm"
)

func userLanguage(user *models.User, cfg *config.Config) string {
	if user != nil && user.Language != "" {
		return user.Language
	}
	if cfg.DefaultLocale != "" {
		return cfg.DefaultLocale
	}
	return i18n.Default()
}

// SendDeadlineReminders emails and notifies the assignees of deadlines due within
// the reminder window. Each deadline is reminded once. Returns the number of reminders sent.
func SendDeadlineReminders(database *gorm.DB, cfg *config.Config, now time.Time) int {
	log.Println("[JOBS] Starting deadline reminder job...")

	deadlines, err := services.DeadlinesDueForReminder(database, now)
	if err != nil {
		log.Printf("[JOBS] Error fetching deadlines for reminders: %v", err)
		return 0
	}
	log.Printf("[JOBS] Found %d deadlines to remind", len(deadlines))

	notifier := services.NewNotificationService(database)
	sent := 0
	for _, d := range deadlines {
		if d.Assignee == nil || !d.Assignee.IsActive {
			continue
		}
		lang := userLanguage(d.Assignee, cfg)
		projectName := ""
		if d.Project != nil {
			projectName = d.Project.Name
		}
		link := cfg.AppURL + "/projects/" + d.ProjectID

		email := services.BuildDeadlineReminderEmail(d.Assignee.Email, services.DeadlineReminderEmailData{
			UserName:      d.Assignee.Name,
			DeadlineTitle: d.Title,
			ProjectName:   projectName,
			DueDate:       d.DueDate.Format("02/01/2006"),
			ProjectURL:    link,
		}, lang)
		if err := services.SendEmail(cfg, email); err != nil {
			log.Printf("[JOBS] Failed to send reminder for deadline %s: %v", d.ID, err)
			continue
		}

		title := i18n.Translate(lang, "notifications.deadline_reminder.title", map[string]interface{}{"title": d.Title})
		message := i18n.Translate(lang, "notifications.deadline_reminder.message", map[string]interface{}{
			"project": projectName,
			"date":    d.DueDate.Format("02/01/2006"),
		})
		if err := notifier.Notify(d.OrganizationID, d.Assignee.ID, models.NotificationTypeDeadline, title, message, "/projects/"+d.ProjectID); err != nil {
			log.Printf("[JOBS] Failed to create notification for deadline %s: %v", d.ID, err)
		}

		if err := services.MarkReminderSent(database, d.ID, now); err != nil {
			log.Printf("[JOBS] Failed to flag reminder of deadline %s: %v", d.ID, err)
			continue
		}
		sent++
	}

	log.Printf("[JOBS] Deadline reminder job completed: %d sent", sent)
	return sent
}
