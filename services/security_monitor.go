package services

import (
	"log"
	"sync"
	"time"
)

const (
	// FailedLoginWindow is the sliding window in which failures are counted per IP
	FailedLoginWindow = 10 * time.Minute
	// FailedLoginThreshold failures inside the window raise an alert
	FailedLoginThreshold = 5
	// AlertCooldown limits alerts to one per IP and per period
	AlertCooldown = time.Hour
	maxAlertHistory = 100
)

// SecurityAlert is one raised alert, kept for the admin audit view
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Email     string    `json:"email,omitempty"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"`
}

// SecurityMonitor counts failed logins per client IP and raises alerts
// when an address crosses the threshold.
type SecurityMonitor struct {
	mu           sync.Mutex
	failedLogins map[string][]time.Time
	alertedIPs   map[string]time.Time
	alerts       []SecurityAlert
	now          func() time.Time
}

// Monitor is the process-wide monitor used by the login handlers
var Monitor = NewSecurityMonitor()

func NewSecurityMonitor() *SecurityMonitor {
	return &SecurityMonitor{
		failedLogins: make(map[string][]time.Time),
		alertedIPs:   make(map[string]time.Time),
		now:          time.Now,
	}
}

// TrackFailedLogin records a failure and reports whether it raised an alert
func (m *SecurityMonitor) TrackFailedLogin(ip, email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-FailedLoginWindow)

	attempts := m.failedLogins[ip][:0]
	for _, t := range m.failedLogins[ip] {
		if t.After(windowStart) {
			attempts = append(attempts, t)
		}
	}
	attempts = append(attempts, now)
	m.failedLogins[ip] = attempts

	if len(attempts) < FailedLoginThreshold {
		return false
	}
	if last, ok := m.alertedIPs[ip]; ok && now.Sub(last) < AlertCooldown {
		return false
	}
	m.alertedIPs[ip] = now

	alert := SecurityAlert{
		Timestamp: now,
		IP:        ip,
		Email:     email,
		Reason:    "multiple failed logins",
		Level:     "CRITICAL",
	}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxAlertHistory {
		m.alerts = m.alerts[:maxAlertHistory]
	}
	log.Printf("[SECURITY] ALERT %s from IP %s (last email: %s)", alert.Reason, ip, email)
	return true
}

// ResetIP forgets the failures of an address after a successful login
func (m *SecurityMonitor) ResetIP(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failedLogins, ip)
}

// RecentAlerts returns a copy of the alert history, newest first
func (m *SecurityMonitor) RecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SecurityAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Prune drops stale counters. Called by the nightly maintenance job.
func (m *SecurityMonitor) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for ip, attempts := range m.failedLogins {
		if len(attempts) == 0 || now.Sub(attempts[len(attempts)-1]) > FailedLoginWindow {
			delete(m.failedLogins, ip)
			removed++
		}
	}
	for ip, last := range m.alertedIPs {
		if now.Sub(last) > AlertCooldown {
			delete(m.alertedIPs, ip)
		}
	}
	return removed
}
