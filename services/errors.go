package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"biz_flow_app_go/services/i18n"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist in the caller's organization
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the caller lacks the rights for an operation
	ErrForbidden = errors.New("operation not allowed")
	// ErrConflict is returned when an operation clashes with the current state
	ErrConflict = errors.New("conflicting state")
)

// ValidationError carries per-field messages (i18n keys or plain text)
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field error and returns the receiver for chaining
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewValidationError builds a single-field validation error
func NewValidationError(field, message string) *ValidationError {
	return (&ValidationError{}).Add(field, message)
}

// ConflictError wraps ErrConflict with a user-facing i18n key
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Key }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflict creates a conflict error carrying a message key
func NewConflict(key string) error {
	return &ConflictError{Key: key}
}

// notFound maps gorm's not-found error to ErrNotFound and wraps the rest
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// UserMessage converts any error into a localized message safe to show to users.
// Unknown errors collapse into a generic message so internals never leak.
func UserMessage(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return i18n.T(ctx, "errors.validation")
	}

	var cerr *ConflictError
	if errors.As(err, &cerr) {
		return i18n.T(ctx, cerr.Key)
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return i18n.T(ctx, "errors.not_found")
	case errors.Is(err, ErrForbidden):
		return i18n.T(ctx, "errors.forbidden")
	case errors.Is(err, ErrConflict):
		return i18n.T(ctx, "errors.conflict")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return i18n.T(ctx, "errors.timeout")
	}
	return i18n.T(ctx, "errors.generic")
}

// FieldMessages localizes the field messages of a validation error
func FieldMessages(ctx context.Context, err error) map[string]string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[string]string, len(verr.Fields))
	for field, msg := range verr.Fields {
		out[field] = i18n.T(ctx, msg)
	}
	return out
}
