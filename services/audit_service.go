package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID         string
	UserName       string
	UserRole       string
	OrganizationID string
	IPAddress      string
	UserAgent      string
}

var auditWG sync.WaitGroup

// WaitForAudit blocks until pending audit writes are done (shutdown and tests)
func WaitForAudit() {
	auditWG.Wait()
}

// LogAuditEvent creates a new audit log entry asynchronously
func LogAuditEvent(
	db *gorm.DB,
	ctx AuditContext,
	action models.AuditAction,
	resourceType string,
	resourceID string,
	resourceName string,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	auditWG.Add(1)
	go func() {
		defer auditWG.Done()

		entry := models.AuditLog{
			UserID:         ptrIfNotEmpty(ctx.UserID),
			UserName:       ctx.UserName,
			UserRole:       ctx.UserRole,
			OrganizationID: ptrIfNotEmpty(ctx.OrganizationID),
			ResourceType:   resourceType,
			ResourceID:     resourceID,
			ResourceName:   resourceName,
			Action:         action,
			Description:    description,
			OldValues:      marshalAuditValues(oldValues),
			NewValues:      marshalAuditValues(newValues),
			IPAddress:      ctx.IPAddress,
			UserAgent:      ctx.UserAgent,
		}

		if err := db.Create(&entry).Error; err != nil {
			log.Printf("[AUDIT] Failed to create audit log: %v", err)
		}
	}()
}

func marshalAuditValues(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, organizationID, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("organization_id = ? AND resource_type = ? AND resource_id = ?", organizationID, resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID       string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// GetOrganizationAuditLogs retrieves paginated audit logs for an organization
func GetOrganizationAuditLogs(db *gorm.DB, organizationID string, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{}).Where("organization_id = ?", organizationID)

	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		pattern := "%" + filters.SearchQuery + "%"
		query = query.Where("resource_name LIKE ? OR description LIKE ? OR user_name LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// LogSecurityEvent logs security-related events to the standard log and the audit trail
func LogSecurityEvent(db *gorm.DB, eventType, userID, details string) {
	log.Printf("[SECURITY] %s | User: %s | Details: %s", eventType, userID, details)
	if db == nil {
		return
	}

	auditWG.Add(1)
	go func() {
		defer auditWG.Done()
		entry := models.AuditLog{
			UserID:       ptrIfNotEmpty(userID),
			Action:       models.AuditActionSecurity,
			ResourceType: "SECURITY_EVENT",
			ResourceID:   eventType,
			Description:  details,
		}
		if userID != "" {
			var orgIDs []string
			db.Model(&models.User{}).Where("id = ? AND organization_id IS NOT NULL", userID).Pluck("organization_id", &orgIDs)
			if len(orgIDs) > 0 {
				entry.OrganizationID = &orgIDs[0]
			}
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("[AUDIT] Failed to create security audit log: %v", err)
		}
	}()
}
