package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name           string     `gorm:"not null" json:"name"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	Password       string     `gorm:"not null" json:"-"`
	OrganizationID *string    `gorm:"type:uuid;index" json:"organization_id"`
	Role           string     `gorm:"not null;default:employee" json:"role"` // name of a Role in the organization
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	Language       string     `gorm:"size:5" json:"language"`
	LastLoginAt    *time.Time `json:"last_login_at"`

	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockoutUntil        *time.Time `json:"-"`

	EmployeeID *string `gorm:"type:uuid" json:"employee_id,omitempty"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	// Resolved per request by the auth middleware, never persisted
	Permissions []string `gorm:"-" json:"permissions,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// HasOrganization checks if the user belongs to an organization
func (u *User) HasOrganization() bool {
	return u.OrganizationID != nil && *u.OrganizationID != ""
}

// IsLocked reports whether failed logins locked the account at the given time
func (u *User) IsLocked(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// Can checks the resolved permissions of the user
func (u *User) Can(permission string) bool {
	return PermissionsAllow(u.Permissions, permission)
}

func (User) TableName() string {
	return "users"
}
