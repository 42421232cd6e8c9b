package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"biz_flow_app_go/services/i18n"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserMessage(t *testing.T) {
	require.NoError(t, i18n.Load())
	ctx := i18n.WithLocale(context.Background(), "en")

	assert.Equal(t, "", UserMessage(ctx, nil))
	assert.Equal(t, i18n.Translate("en", "errors.not_found"), UserMessage(ctx, fmt.Errorf("load company: %w", ErrNotFound)))
	assert.Equal(t, i18n.Translate("en", "errors.not_found"), UserMessage(ctx, gorm.ErrRecordNotFound))
	assert.Equal(t, i18n.Translate("en", "errors.forbidden"), UserMessage(ctx, ErrForbidden))
	assert.Equal(t, i18n.Translate("en", "errors.validation"), UserMessage(ctx, NewValidationError("name", "validation.required")))
	assert.Equal(t, i18n.Translate("en", "errors.role_in_use"), UserMessage(ctx, NewConflict("errors.role_in_use")))
	assert.Equal(t, i18n.Translate("en", "errors.generic"), UserMessage(ctx, errors.New("sql: connection refused")))
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.OrNil())

	v.Add("name", "validation.required").Add("amount", "validation.positive")
	err := v.OrNil()
	require.Error(t, err)
	assert.Equal(t, "validation failed: amount: validation.positive; name: validation.required", err.Error())

	msgs := FieldMessages(i18n.WithLocale(context.Background(), "en"), fmt.Errorf("wrapped: %w", err))
	assert.Len(t, msgs, 2)
}

func TestConflictUnwrap(t *testing.T) {
	err := NewConflict("errors.role_in_use")
	assert.True(t, errors.Is(err, ErrConflict))
}
