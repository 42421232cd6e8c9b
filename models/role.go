package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// System role names, seeded for every organization
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSales      = "sales"
	RoleAccountant = "accountant"
	RoleEmployee   = "employee"
)

// Role groups permissions of the form "<resource>:<action>". Either side may be "*".
type Role struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_role_org_name" json:"organization_id"`
	Name           string `gorm:"not null;uniqueIndex:idx_role_org_name" json:"name"`
	Description    string `json:"description"`
	PermissionsRaw string `gorm:"column:permissions;type:text" json:"-"`
	IsSystem       bool   `gorm:"not null;default:false" json:"is_system"`

	Permissions []string `gorm:"-" json:"permissions"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return r.encode()
}

func (r *Role) BeforeSave(tx *gorm.DB) error {
	return r.encode()
}

func (r *Role) AfterFind(tx *gorm.DB) error {
	r.Permissions = nil
	if r.PermissionsRaw == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.PermissionsRaw), &r.Permissions)
}

func (r *Role) encode() error {
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	b, err := json.Marshal(r.Permissions)
	if err != nil {
		return err
	}
	r.PermissionsRaw = string(b)
	return nil
}

// HasPermission checks the role's permissions, honouring wildcards
func (r *Role) HasPermission(permission string) bool {
	return PermissionsAllow(r.Permissions, permission)
}

func (Role) TableName() string {
	return "roles"
}

// PermissionsAllow reports whether any granted permission matches the requested one.
// "treasury:*" grants every treasury action, "*:read" grants read on everything.
func PermissionsAllow(granted []string, permission string) bool {
	wantRes, wantAct, ok := strings.Cut(permission, ":")
	if !ok {
		return false
	}
	for _, g := range granted {
		res, act, ok := strings.Cut(g, ":")
		if !ok {
			continue
		}
		if (res == "*" || res == wantRes) && (act == "*" || act == wantAct) {
			return true
		}
	}
	return false
}

// IsValidPermission checks the "<resource>:<action>" shape against known resources
func IsValidPermission(p string) bool {
	res, act, ok := strings.Cut(p, ":")
	if !ok {
		return false
	}
	if res != "*" && !contains(PermissionResources, res) {
		return false
	}
	return act == "*" || contains(PermissionActions, act)
}

// PermissionResources lists the resources routes are guarded by
var PermissionResources = []string{
	"users", "roles", "companies", "contacts", "opportunities", "testimonials",
	"projects", "deadlines", "budgets", "employees", "timesheets", "treasury",
	"invoices", "dashboard", "imports", "audit",
}

// PermissionActions lists the supported actions
var PermissionActions = []string{"read", "write", "delete", "approve"}

// SystemRolePermissions is the seed for system roles
var SystemRolePermissions = map[string][]string{
	RoleAdmin:      {"*:*"},
	RoleManager:    {"*:read", "projects:*", "deadlines:*", "budgets:*", "timesheets:*", "employees:write", "companies:write", "contacts:write", "opportunities:write", "dashboard:*", "imports:*"},
	RoleSales:      {"companies:*", "contacts:*", "opportunities:*", "testimonials:*", "projects:read", "dashboard:*", "imports:*", "timesheets:read", "timesheets:write"},
	RoleAccountant: {"treasury:*", "invoices:*", "budgets:read", "projects:read", "companies:read", "employees:read", "timesheets:read", "dashboard:*"},
	RoleEmployee:   {"projects:read", "deadlines:read", "timesheets:read", "timesheets:write", "dashboard:read", "dashboard:write"},
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
