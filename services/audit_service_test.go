package services

import (
	"encoding/json"
	"testing"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuditEvent(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)

	ctx := AuditContext{UserID: admin.ID, UserName: admin.Name, UserRole: admin.Role, OrganizationID: org.ID}
	LogAuditEvent(db, ctx, models.AuditActionUpdate, "Company", "company-123", "Globex", "Updated type",
		map[string]interface{}{"type": "PROSPECT"}, map[string]interface{}{"type": "CLIENT"})
	WaitForAudit()

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "resource_id = ?", "company-123").Error)
	assert.Equal(t, admin.ID, *entry.UserID)
	assert.Equal(t, org.ID, *entry.OrganizationID)
	assert.Equal(t, "Updated type", entry.Description)

	var savedNew map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entry.NewValues), &savedNew))
	assert.Equal(t, "CLIENT", savedNew["type"])

	changes := entry.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "type", changes[0].Field)
}

func TestGetOrganizationAuditLogs(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)
	other, _ := seedOrg(t, db)

	ctx := AuditContext{UserID: admin.ID, UserName: admin.Name, OrganizationID: org.ID}
	LogAuditEvent(db, ctx, models.AuditActionCreate, "Company", "c1", "Globex", "", nil, nil)
	LogAuditEvent(db, ctx, models.AuditActionDelete, "Company", "c2", "Initech", "", nil, nil)
	LogAuditEvent(db, ctx, models.AuditActionCreate, "Project", "p1", "Website", "", nil, nil)
	LogAuditEvent(db, AuditContext{OrganizationID: other.ID}, models.AuditActionCreate, "Company", "c3", "Hooli", "", nil, nil)
	WaitForAudit()

	logs, total, err := GetOrganizationAuditLogs(db, org.ID, AuditLogFilters{ResourceType: "Company"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)

	logs, total, err = GetOrganizationAuditLogs(db, org.ID, AuditLogFilters{SearchQuery: "Init"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "c2", logs[0].ResourceID)

	history, err := GetResourceAuditHistory(db, org.ID, "Project", "p1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLogSecurityEvent(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)

	LogSecurityEvent(db, "LOGIN_FAILED", admin.ID, "Invalid password")
	WaitForAudit()

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "resource_type = ?", "SECURITY_EVENT").Error)
	assert.Equal(t, models.AuditActionSecurity, entry.Action)
	assert.Equal(t, "LOGIN_FAILED", entry.ResourceID)
	require.NotNil(t, entry.OrganizationID)
	assert.Equal(t, org.ID, *entry.OrganizationID)
}
