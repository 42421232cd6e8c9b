package services

import (
	"net/mail"
	"strings"
	"time"
)

// Shared field checks. Messages are i18n keys resolved by FieldMessages.

func requireField(v *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "validation.required")
	}
}

func checkEmail(v *ValidationError, field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "validation.email")
	}
}

func checkRange(v *ValidationError, field string, value, min, max float64) {
	if value < min || value > max {
		v.Add(field, "validation.range")
	}
}

func checkNonNegative(v *ValidationError, field string, value float64) {
	if value < 0 {
		v.Add(field, "validation.non_negative")
	}
}

func checkDateOrder(v *ValidationError, field string, start, end *time.Time) {
	if start != nil && end != nil && end.Before(*start) {
		v.Add(field, "validation.date_order")
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseDate accepts ISO dates (2006-01-02) and RFC 3339 timestamps
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Pagination normalizes page and limit (default 20, max 100)
func Pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// TotalPages is ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func likePattern(keyword string) string {
	return "%" + strings.TrimSpace(keyword) + "%"
}
