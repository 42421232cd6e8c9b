package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"biz_flow_app_go/config"
	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

const (
	ResetTokenLength     = 32
	ResetTokenExpiration = 2 * time.Hour
)

// ErrInvalidResetToken covers unknown, used and expired tokens alike
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateResetToken issues a token for an active user and returns the clear value.
// Unknown or inactive emails return ("", nil) so callers cannot enumerate accounts.
func CreateResetToken(db *gorm.DB, email string, now time.Time) (string, *models.User, error) {
	var user models.User
	if err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SECURITY] Password reset requested for unknown email")
			return "", nil, nil
		}
		return "", nil, err
	}
	if !user.IsActive {
		log.Printf("[SECURITY] Password reset requested for inactive user %s", user.ID)
		return "", nil, nil
	}

	buf := make([]byte, ResetTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: hashResetToken(token),
			ExpiresAt: now.Add(ResetTokenExpiration),
		}).Error
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	LogSecurityEvent(db, "PASSWORD_RESET_REQUESTED", user.ID, "Password reset requested")
	return token, &user, nil
}

// RequestPasswordReset creates a token and emails the reset link
func RequestPasswordReset(db *gorm.DB, cfg *config.Config, email, lang string, now time.Time) error {
	token, user, err := CreateResetToken(db, email, now)
	if err != nil || user == nil {
		return err
	}
	if user.Language != "" {
		lang = user.Language
	}
	SendEmailAsync(cfg, BuildPasswordResetEmail(user.Email, PasswordResetEmailData{
		UserName: user.Name,
		ResetURL: cfg.AppURL + "/reset-password?token=" + token,
		Hours:    int(ResetTokenExpiration.Hours()),
	}, lang))
	return nil
}

// ValidateResetToken returns the user owning a usable token
func ValidateResetToken(db *gorm.DB, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	var rt models.PasswordResetToken
	if err := db.Preload("User").Where("token_hash = ?", hashResetToken(token)).First(&rt).Error; err != nil {
		return nil, ErrInvalidResetToken
	}
	if !rt.IsUsable(now) || rt.User == nil || !rt.User.IsActive {
		return nil, ErrInvalidResetToken
	}
	return rt.User, nil
}

// ResetPassword sets a new password, burns the token and revokes every session
func ResetPassword(db *gorm.DB, token, newPassword string, now time.Time) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := ValidateResetToken(db, token, now)
	if err != nil {
		LogSecurityEvent(db, "PASSWORD_RESET_FAILED", "", "Reset attempted with an invalid token")
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"password":              hash,
			"failed_login_attempts": 0,
			"lockout_until":         nil,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("token_hash = ?", hashResetToken(token)).
			Update("used_at", now).Error; err != nil {
			return err
		}
		return DeleteUserSessions(tx, user.ID, "")
	})
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	LogSecurityEvent(db, "PASSWORD_RESET_COMPLETED", user.ID, "Password reset")
	return nil
}

// CleanupExpiredResetTokens deletes expired and used tokens
func CleanupExpiredResetTokens(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at < ? OR used_at IS NOT NULL", now).Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}
