package services

import (
	"fmt"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// MissedDeadlineGrace is how long a pending deadline stays overdue before the job marks it missed
const MissedDeadlineGrace = 7 * 24 * time.Hour

// DeadlineReminderWindow is how far ahead reminders are sent
const DeadlineReminderWindow = 48 * time.Hour

// DeadlineInput is the editable part of a deadline
type DeadlineInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	AssigneeID  *string   `json:"assignee_id"`
}

// Validate trims the input and checks the required fields
func (in *DeadlineInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	v := &ValidationError{}
	requireField(v, "title", in.Title)
	if in.DueDate.IsZero() {
		v.Add("due_date", "validation.required")
	}
	return v.OrNil()
}

// ListProjectDeadlines returns the deadlines of a project by due date
func ListProjectDeadlines(db *gorm.DB, organizationID, projectID string) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := db.Where("organization_id = ? AND project_id = ?", organizationID, projectID).
		Preload("Assignee").
		Order("due_date ASC").
		Find(&deadlines).Error
	return deadlines, err
}

// GetDeadline loads a deadline of the organization
func GetDeadline(db *gorm.DB, organizationID, deadlineID string) (*models.Deadline, error) {
	var deadline models.Deadline
	err := db.Where("organization_id = ? AND id = ?", organizationID, deadlineID).
		Preload("Project").Preload("Assignee").
		First(&deadline).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &deadline, nil
}

// CreateDeadline adds a deadline to a project
func CreateDeadline(db *gorm.DB, organizationID, projectID string, in DeadlineInput) (*models.Deadline, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.Project{}).Where("organization_id = ? AND id = ?", organizationID, projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	deadline := &models.Deadline{
		OrganizationID: organizationID,
		ProjectID:      projectID,
		Title:          in.Title,
		Description:    StripHTML(in.Description),
		DueDate:        in.DueDate,
	}
	if in.AssigneeID != nil {
		deadline.AssigneeID = ptrIfNotEmpty(*in.AssigneeID)
	}
	if err := db.Create(deadline).Error; err != nil {
		return nil, fmt.Errorf("failed to create deadline: %w", err)
	}
	return deadline, nil
}

// UpdateDeadline replaces the editable fields. Moving the due date re-arms the reminder.
func UpdateDeadline(db *gorm.DB, organizationID, deadlineID string, in DeadlineInput) (*models.Deadline, error) {
	deadline, err := GetDeadline(db, organizationID, deadlineID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if !deadline.DueDate.Equal(in.DueDate) {
		deadline.ReminderSentAt = nil
		if deadline.Status == models.DeadlineStatusMissed && in.DueDate.After(time.Now()) {
			deadline.Status = models.DeadlineStatusPending
		}
	}
	deadline.Title = in.Title
	deadline.Description = StripHTML(in.Description)
	deadline.DueDate = in.DueDate
	deadline.AssigneeID = nil
	if in.AssigneeID != nil {
		deadline.AssigneeID = ptrIfNotEmpty(*in.AssigneeID)
	}

	if err := db.Omit("Project", "Assignee").Save(deadline).Error; err != nil {
		return nil, fmt.Errorf("failed to update deadline: %w", err)
	}
	return deadline, nil
}

// MarkDeadlineDone completes a deadline
func MarkDeadlineDone(db *gorm.DB, organizationID, deadlineID string) (*models.Deadline, error) {
	deadline, err := GetDeadline(db, organizationID, deadlineID)
	if err != nil {
		return nil, err
	}
	if deadline.Status == models.DeadlineStatusDone {
		return deadline, nil
	}
	now := time.Now()
	err = db.Model(deadline).Updates(map[string]interface{}{
		"status":       models.DeadlineStatusDone,
		"completed_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	deadline.Status = models.DeadlineStatusDone
	deadline.CompletedAt = &now
	return deadline, nil
}

// DeleteDeadline soft-deletes a deadline
func DeleteDeadline(db *gorm.DB, organizationID, deadlineID string) error {
	deadline, err := GetDeadline(db, organizationID, deadlineID)
	if err != nil {
		return err
	}
	return db.Delete(deadline).Error
}

// UpcomingDeadlines returns pending deadlines due before now+within, overdue ones first.
// An empty projectID covers the whole organization.
func UpcomingDeadlines(db *gorm.DB, organizationID, projectID string, now time.Time, within time.Duration, limit int) ([]models.Deadline, error) {
	query := db.Where("organization_id = ? AND status = ? AND due_date <= ?", organizationID, models.DeadlineStatusPending, now.Add(within))
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var deadlines []models.Deadline
	err := query.Preload("Project").Preload("Assignee").Order("due_date ASC").Find(&deadlines).Error
	return deadlines, err
}

// OverdueDeadlines returns pending deadlines past their due date
func OverdueDeadlines(db *gorm.DB, organizationID string, now time.Time) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := db.Where("organization_id = ? AND status = ? AND due_date < ?", organizationID, models.DeadlineStatusPending, now).
		Preload("Project").
		Order("due_date ASC").
		Find(&deadlines).Error
	return deadlines, err
}

// MarkMissedDeadlines flags pending deadlines overdue by more than MissedDeadlineGrace, across organizations
func MarkMissedDeadlines(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Deadline{}).
		Where("status = ? AND due_date < ?", models.DeadlineStatusPending, now.Add(-MissedDeadlineGrace)).
		Update("status", models.DeadlineStatusMissed)
	return result.RowsAffected, result.Error
}

// DeadlinesDueForReminder returns pending, assigned deadlines due within DeadlineReminderWindow
// that have not been reminded yet, across organizations
func DeadlinesDueForReminder(db *gorm.DB, now time.Time) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := db.Where("status = ? AND reminder_sent_at IS NULL AND assignee_id IS NOT NULL AND due_date BETWEEN ? AND ?",
		models.DeadlineStatusPending, now, now.Add(DeadlineReminderWindow)).
		Preload("Project").Preload("Assignee").
		Find(&deadlines).Error
	return deadlines, err
}

// MarkReminderSent records that the reminder of a deadline went out
func MarkReminderSent(db *gorm.DB, deadlineID string, at time.Time) error {
	return db.Model(&models.Deadline{}).Where("id = ?", deadlineID).Update("reminder_sent_at", at).Error
}
