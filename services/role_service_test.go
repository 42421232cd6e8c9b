package services

import (
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSystemRoles_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	require.NoError(t, SeedSystemRoles(db, org.ID))
	roles, err := ListRoles(db, org.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 5)
	for _, r := range roles {
		assert.True(t, r.IsSystem)
		assert.NotEmpty(t, r.Permissions)
	}
}

func TestCreateRole(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	role, err := CreateRole(db, org.ID, RoleInput{Name: " Auditor ", Permissions: []string{"audit:read", "audit:read", "*:read"}})
	require.NoError(t, err)
	assert.Equal(t, "auditor", role.Name)
	assert.Equal(t, []string{"audit:read", "*:read"}, role.Permissions)

	reloaded, err := GetRole(db, org.ID, role.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasPermission("invoices:read"))
	assert.False(t, reloaded.HasPermission("invoices:write"))

	_, err = CreateRole(db, org.ID, RoleInput{Name: "auditor"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = CreateRole(db, org.ID, RoleInput{Name: "broken", Permissions: []string{"rockets:launch"}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateRole(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	custom, err := CreateRole(db, org.ID, RoleInput{Name: "intern", Permissions: []string{"projects:read"}})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Name: "Ivan", Email: "ivan@acme.test", Password: "x", OrganizationID: &org.ID, Role: "intern"}).Error)

	updated, err := UpdateRole(db, org.ID, custom.ID, RoleInput{Name: "trainee", Permissions: []string{"projects:read", "timesheets:write"}})
	require.NoError(t, err)
	assert.Equal(t, "trainee", updated.Name)

	var user models.User
	db.First(&user, "email = ?", "ivan@acme.test")
	assert.Equal(t, "trainee", user.Role, "users follow the rename")

	var admin models.Role
	db.Where("organization_id = ? AND name = ?", org.ID, models.RoleAdmin).First(&admin)
	_, err = UpdateRole(db, org.ID, admin.ID, RoleInput{Permissions: []string{"projects:read"}})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteRole(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)

	var sales models.Role
	db.Where("organization_id = ? AND name = ?", org.ID, models.RoleSales).First(&sales)
	assert.ErrorIs(t, DeleteRole(db, org.ID, sales.ID), ErrForbidden)

	used, _ := CreateRole(db, org.ID, RoleInput{Name: "used"})
	db.Create(&models.User{Name: "U", Email: "u@acme.test", Password: "x", OrganizationID: &org.ID, Role: "used"})
	assert.ErrorIs(t, DeleteRole(db, org.ID, used.ID), ErrConflict)

	unused, _ := CreateRole(db, org.ID, RoleInput{Name: "unused"})
	require.NoError(t, DeleteRole(db, org.ID, unused.ID))
	_, err := GetRole(db, org.ID, unused.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, DeleteRole(db, org.ID, "missing"), ErrNotFound)
}
