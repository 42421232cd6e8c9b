package services

import (
	"testing"
	"time"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset(t *testing.T) {
	db := setupTestDB(t)
	_, admin := seedOrg(t, db)
	t.Cleanup(WaitForAudit)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	t.Run("unknown email is silent", func(t *testing.T) {
		token, user, err := CreateResetToken(db, "nobody@acme.test", now)
		assert.NoError(t, err)
		assert.Empty(t, token)
		assert.Nil(t, user)
	})

	t.Run("full flow", func(t *testing.T) {
		_, err := CreateSession(db, admin.ID, *admin.OrganizationID, "127.0.0.1", "test")
		require.NoError(t, err)

		token, user, err := CreateResetToken(db, admin.Email, now)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.NotEmpty(t, token)

		var stored models.PasswordResetToken
		require.NoError(t, db.First(&stored, "user_id = ?", admin.ID).Error)
		assert.NotEqual(t, token, stored.TokenHash)

		require.NoError(t, ResetPassword(db, token, "An0ther-Strong-Pass!", now.Add(time.Minute)))

		var sessions int64
		db.Model(&models.Session{}).Where("user_id = ?", admin.ID).Count(&sessions)
		assert.Zero(t, sessions)

		_, err = Authenticate(db, admin.Email, "An0ther-Strong-Pass!")
		assert.NoError(t, err)

		// single use
		err = ResetPassword(db, token, "Yet-An0ther-Pass!!", now.Add(2*time.Minute))
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := CreateResetToken(db, admin.Email, now)
		require.NoError(t, err)
		_, err = ValidateResetToken(db, token, now.Add(ResetTokenExpiration+time.Second))
		assert.ErrorIs(t, err, ErrInvalidResetToken)

		removed, err := CleanupExpiredResetTokens(db, now.Add(ResetTokenExpiration+time.Second))
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))
	})

	t.Run("weak password rejected", func(t *testing.T) {
		token, _, err := CreateResetToken(db, admin.Email, now)
		require.NoError(t, err)
		assert.Error(t, ResetPassword(db, token, "short", now))
	})
}
