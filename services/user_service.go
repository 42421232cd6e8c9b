package services

import (
	"fmt"
	"strings"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// UserFilters narrows the user list
type UserFilters struct {
	Search string
	Role   string
	Active *bool
}

// CreateUserInput is the payload of a new user
type CreateUserInput struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	Language   string  `json:"language"`
	EmployeeID *string `json:"employee_id"`
}

// UpdateUserInput holds optional changes; nil fields are left untouched
type UpdateUserInput struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	Language   *string `json:"language"`
	IsActive   *bool   `json:"is_active"`
	EmployeeID *string `json:"employee_id"`
}

// ListUsers returns a page of the organization's users
func ListUsers(db *gorm.DB, organizationID string, filters UserFilters, page, limit int) ([]models.User, int64, error) {
	query := db.Model(&models.User{}).Where("organization_id = ?", organizationID)

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if filters.Role != "" {
		query = query.Where("role = ?", filters.Role)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Order("name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

// GetUser loads a user of the organization
func GetUser(db *gorm.DB, organizationID, userID string) (*models.User, error) {
	var user models.User
	if err := db.Where("organization_id = ? AND id = ?", organizationID, userID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func emailTaken(db *gorm.DB, email, exceptID string) (bool, error) {
	var count int64
	q := db.Unscoped().Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// CreateUser validates and stores a new user of the organization
func CreateUser(db *gorm.DB, organizationID string, in CreateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleEmployee
	}

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	requireField(v, "email", in.Email)
	checkEmail(v, "email", in.Email)
	if err := ValidatePassword(in.Password); err != nil {
		v.Add("password", err.(*ValidationError).Fields["password"])
	}
	exists, err := RoleExists(db, organizationID, in.Role)
	if err != nil {
		return nil, err
	}
	if !exists {
		v.Add("role", "validation.unknown_role")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	taken, err := emailTaken(db, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewConflict("errors.email_taken")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:           in.Name,
		Email:          in.Email,
		Password:       hash,
		OrganizationID: &organizationID,
		Role:           in.Role,
		IsActive:       true,
		Language:       in.Language,
		EmployeeID:     in.EmployeeID,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateUser applies changes made by actor. Changing a role needs "roles:write",
// and nobody can deactivate or demote themselves.
func UpdateUser(db *gorm.DB, actor *models.User, organizationID, userID string, in UpdateUserInput) (*models.User, error) {
	user, err := GetUser(db, organizationID, userID)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	updates := map[string]interface{}{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		requireField(v, "name", name)
		updates["name"] = name
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		requireField(v, "email", email)
		checkEmail(v, "email", email)
		if email != user.Email {
			taken, err := emailTaken(db, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, NewConflict("errors.email_taken")
			}
		}
		updates["email"] = email
	}
	if in.Role != nil && *in.Role != user.Role {
		if !actor.Can("roles:write") || actor.ID == user.ID {
			return nil, ErrForbidden
		}
		exists, err := RoleExists(db, organizationID, *in.Role)
		if err != nil {
			return nil, err
		}
		if !exists {
			v.Add("role", "validation.unknown_role")
		}
		updates["role"] = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if actor.ID == user.ID {
			return nil, NewConflict("errors.cannot_deactivate_self")
		}
		updates["is_active"] = *in.IsActive
	}
	if in.Language != nil {
		updates["language"] = *in.Language
	}
	if in.EmployeeID != nil {
		updates["employee_id"] = ptrIfNotEmpty(*in.EmployeeID)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if active, ok := updates["is_active"].(bool); ok && !active {
		if err := DeleteUserSessions(db, user.ID, ""); err != nil {
			return nil, err
		}
	}
	return GetUser(db, organizationID, userID)
}

// SetUserActive activates or deactivates a user
func SetUserActive(db *gorm.DB, actor *models.User, organizationID, userID string, active bool) (*models.User, error) {
	return UpdateUser(db, actor, organizationID, userID, UpdateUserInput{IsActive: &active})
}

// DeleteUser soft-deletes a user and revokes their sessions
func DeleteUser(db *gorm.DB, actor *models.User, organizationID, userID string) error {
	if actor.ID == userID {
		return NewConflict("errors.cannot_delete_self")
	}
	user, err := GetUser(db, organizationID, userID)
	if err != nil {
		return err
	}
	if err := db.Delete(user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return DeleteUserSessions(db, user.ID, "")
}

// ChangePassword checks the current password, stores the new one and revokes the other sessions
func ChangePassword(db *gorm.DB, user *models.User, currentPassword, newPassword, keepToken string) error {
	if !VerifyPassword(user.Password, currentPassword) {
		return NewValidationError("current_password", "validation.current_password")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := db.Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.Password = hash
	LogSecurityEvent(db, "PASSWORD_CHANGED", user.ID, "password changed by user")
	return DeleteUserSessions(db, user.ID, keepToken)
}
