// Package jobs runs the periodic maintenance tasks of the application.
package jobs

import (
	"log"
	"time"

	"biz_flow_app_go/config"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RunHourly runs the hourly tasks once: reminders, missed deadlines and overdue invoices
func RunHourly(database *gorm.DB, cfg *config.Config, now time.Time) {
	SendDeadlineReminders(database, cfg, now)
	MarkMissedDeadlines(database, now)
	MarkOverdueInvoices(database, now)
}

// StartScheduler registers the periodic jobs and starts the cron runner.
// Hourly tasks run at the top of every hour, session and token cleanup every night.
// The returned runner must be stopped on shutdown.
func StartScheduler(database *gorm.DB, cfg *config.Config) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[WARNING] unknown timezone %q for scheduler, using UTC", cfg.Timezone)
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc("0 * * * *", func() {
		log.Println("[JOBS] Running hourly tasks...")
		RunHourly(database, cfg, time.Now().UTC())
	}); err != nil {
		log.Fatalf("[JOBS] Failed to schedule hourly tasks: %v", err)
	}

	if _, err := c.AddFunc("30 3 * * *", func() {
		CleanupSessions(database)
		CleanupSecurityState(database, time.Now().UTC())
	}); err != nil {
		log.Fatalf("[JOBS] Failed to schedule nightly cleanup: %v", err)
	}

	c.Start()
	log.Println("[JOBS] Scheduler started")
	return c
}
