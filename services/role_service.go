package services

import (
	"errors"
	"fmt"
	"strings"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// RoleInput is the editable part of a role
type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (in *RoleInput) validate() error {
	v := &ValidationError{}
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	requireField(v, "name", in.Name)
	in.Permissions = lo.Uniq(lo.Map(in.Permissions, func(p string, _ int) string { return strings.TrimSpace(p) }))
	for _, p := range in.Permissions {
		if !models.IsValidPermission(p) {
			v.Add("permissions", "validation.permission")
			break
		}
	}
	return v.OrNil()
}

// SeedSystemRoles creates the system roles missing from an organization
func SeedSystemRoles(db *gorm.DB, organizationID string) error {
	for _, name := range []string{models.RoleAdmin, models.RoleManager, models.RoleSales, models.RoleAccountant, models.RoleEmployee} {
		var count int64
		if err := db.Model(&models.Role{}).Where("organization_id = ? AND name = ?", organizationID, name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check role %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		role := models.Role{
			OrganizationID: organizationID,
			Name:           name,
			Permissions:    append([]string{}, models.SystemRolePermissions[name]...),
			IsSystem:       true,
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}

// ListRoles returns the roles of an organization, system roles first
func ListRoles(db *gorm.DB, organizationID string) ([]models.Role, error) {
	var roles []models.Role
	err := db.Where("organization_id = ?", organizationID).
		Order("is_system DESC, name ASC").
		Find(&roles).Error
	return roles, err
}

// GetRole loads a role of the organization
func GetRole(db *gorm.DB, organizationID, roleID string) (*models.Role, error) {
	var role models.Role
	if err := db.Where("organization_id = ? AND id = ?", organizationID, roleID).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// RoleExists reports whether a role name is defined in the organization
func RoleExists(db *gorm.DB, organizationID, name string) (bool, error) {
	var count int64
	err := db.Model(&models.Role{}).Where("organization_id = ? AND name = ?", organizationID, name).Count(&count).Error
	return count > 0, err
}

// CreateRole adds a custom role
func CreateRole(db *gorm.DB, organizationID string, in RoleInput) (*models.Role, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	exists, err := RoleExists(db, organizationID, in.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewConflict("errors.role_exists")
	}

	role := &models.Role{
		OrganizationID: organizationID,
		Name:           in.Name,
		Description:    strings.TrimSpace(in.Description),
		Permissions:    in.Permissions,
	}
	if err := db.Create(role).Error; err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// UpdateRole changes a role's description and permissions. System roles keep their name,
// and the admin role cannot be edited.
func UpdateRole(db *gorm.DB, organizationID, roleID string, in RoleInput) (*models.Role, error) {
	role, err := GetRole(db, organizationID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem && role.Name == models.RoleAdmin {
		return nil, ErrForbidden
	}
	if role.IsSystem || in.Name == "" {
		in.Name = role.Name
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	return role, db.Transaction(func(tx *gorm.DB) error {
		if in.Name != role.Name {
			exists, err := RoleExists(tx, organizationID, in.Name)
			if err != nil {
				return err
			}
			if exists {
				return NewConflict("errors.role_exists")
			}
			// Users reference roles by name
			if err := tx.Model(&models.User{}).
				Where("organization_id = ? AND role = ?", organizationID, role.Name).
				Update("role", in.Name).Error; err != nil {
				return err
			}
		}
		role.Name = in.Name
		role.Description = strings.TrimSpace(in.Description)
		role.Permissions = in.Permissions
		return tx.Save(role).Error
	})
}

// DeleteRole removes a custom role that no user holds
func DeleteRole(db *gorm.DB, organizationID, roleID string) error {
	role, err := GetRole(db, organizationID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrForbidden
	}

	var inUse int64
	if err := db.Model(&models.User{}).
		Where("organization_id = ? AND role = ?", organizationID, role.Name).
		Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return NewConflict("errors.role_in_use")
	}

	if err := db.Delete(role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}
