package jobs

import (
	"log"
	"time"

	"biz_flow_app_go/services"

	"gorm.io/gorm"
)

// MarkMissedDeadlines flags pending deadlines left past their grace period
func MarkMissedDeadlines(database *gorm.DB, now time.Time) {
	count, err := services.MarkMissedDeadlines(database, now)
	if err != nil {
		log.Printf("[JOBS] Error marking missed deadlines: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[JOBS] Marked %d deadlines as missed", count)
	}
}

// MarkOverdueInvoices flags sent invoices past their due date
func MarkOverdueInvoices(database *gorm.DB, now time.Time) {
	count, err := services.MarkOverdueInvoices(database, now)
	if err != nil {
		log.Printf("[JOBS] Error marking overdue invoices: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[JOBS] Marked %d invoices as overdue", count)
	}
}

// CleanupSessions deletes expired sessions
func CleanupSessions(database *gorm.DB) {
	count, err := services.CleanupExpiredSessions(database)
	if err != nil {
		log.Printf("[JOBS] Error cleaning up sessions: %v", err)
		return
	}
	log.Printf("[JOBS] Cleaned up %d expired sessions", count)
}

// CleanupSecurityState drops expired password reset tokens and stale failed login counters
func CleanupSecurityState(database *gorm.DB, now time.Time) {
	count, err := services.CleanupExpiredResetTokens(database, now)
	if err != nil {
		log.Printf("[JOBS] Error cleaning up reset tokens: %v", err)
	} else if count > 0 {
		log.Printf("[JOBS] Cleaned up %d expired reset tokens", count)
	}
	if pruned := services.Monitor.Prune(); pruned > 0 {
		log.Printf("[JOBS] Pruned %d failed login counters", pruned)
	}
}
