package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		field    string
	}{
		{"valid", "Correct-Horse-42", ""},
		{"too short", "Ab1!", "validation.password_length"},
		{"no upper", "lowercase-only-42", "validation.password_complexity"},
		{"no digit", "No-Digits-Here!", "validation.password_complexity"},
		{"no symbol", "NoSymbols12345", "validation.password_complexity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.field, verr.Fields["password"])
			}
		})
	}
}
