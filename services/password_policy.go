package services

import (
	"unicode"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 12

// ValidatePassword checks the complexity rules: length, upper and lower case, a digit and a symbol.
// The returned error is a ValidationError on the "password" field.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "validation.password_length")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasNumber || !hasSpecial {
		return NewValidationError("password", "validation.password_complexity")
	}
	return nil
}
