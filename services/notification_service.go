package services

import (
	"time"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// visibleTo scopes notifications to the organization and to the user or broadcast ones
func (s *NotificationService) visibleTo(organizationID, userID string) *gorm.DB {
	return s.DB.Model(&models.Notification{}).
		Where("organization_id = ? AND (user_id IS NULL OR user_id = ?)", organizationID, userID)
}

func (s *NotificationService) GetUnreadNotifications(organizationID, userID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.visibleTo(organizationID, userID).
		Where("read_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID, organizationID string) error {
	result := s.visibleTo(organizationID, userID).
		Where("id = ?", notificationID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(organizationID, userID string) error {
	return s.visibleTo(organizationID, userID).
		Where("read_at IS NULL").
		Update("read_at", time.Now()).Error
}

func (s *NotificationService) GetNotificationCount(organizationID, userID string) (int64, error) {
	var count int64
	err := s.visibleTo(organizationID, userID).Where("read_at IS NULL").Count(&count).Error
	return count, err
}

func (s *NotificationService) CreateNotification(notification *models.Notification) error {
	return s.DB.Create(notification).Error
}

// Notify creates a notification for one user, or for the whole organization when userID is empty
func (s *NotificationService) Notify(organizationID, userID, notifType, title, message, link string) error {
	return s.CreateNotification(&models.Notification{
		OrganizationID: organizationID,
		UserID:         ptrIfNotEmpty(userID),
		Type:           notifType,
		Title:          title,
		Message:        message,
		LinkURL:        link,
	})
}
