package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// TimesheetFilters narrows the timesheet list
type TimesheetFilters struct {
	EmployeeID string
	ProjectID  string
	Status     string
	From       *time.Time
	To         *time.Time
}

// TimesheetInput is the editable part of a time entry
type TimesheetInput struct {
	EmployeeID  string    `json:"employee_id"`
	ProjectID   *string   `json:"project_id"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	Billable    *bool     `json:"billable"`
}

// Validate truncates the date to the day and checks the hours range
func (in *TimesheetInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	in.Date = truncateDay(in.Date)

	v := &ValidationError{}
	requireField(v, "employee_id", in.EmployeeID)
	if in.Date.IsZero() {
		v.Add("date", "validation.required")
	}
	if in.Hours <= 0 || in.Hours > models.MaxHoursPerDay {
		v.Add("hours", "validation.hours_range")
	}
	return v.OrNil()
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayHours sums the hours an employee logged on a day, rejected entries excluded
func dayHours(db *gorm.DB, employeeID string, day time.Time, exceptID string) (float64, error) {
	var total float64
	query := db.Model(&models.Timesheet{}).
		Select("COALESCE(SUM(hours), 0)").
		Where("employee_id = ? AND date >= ? AND date < ? AND status <> ?", employeeID, day, day.AddDate(0, 0, 1), models.TimesheetStatusRejected)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Scan(&total).Error
	return total, err
}

func checkTimesheet(db *gorm.DB, organizationID string, in *TimesheetInput, exceptID string) error {
	employee, err := GetEmployee(db, organizationID, in.EmployeeID)
	if err != nil {
		return NewValidationError("employee_id", "validation.unknown_employee")
	}
	if !employee.IsActive {
		return NewValidationError("employee_id", "validation.inactive_employee")
	}
	if in.ProjectID != nil && *in.ProjectID != "" {
		var count int64
		if err := db.Model(&models.Project{}).Where("organization_id = ? AND id = ?", organizationID, *in.ProjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return NewValidationError("project_id", "validation.unknown_project")
		}
	}

	logged, err := dayHours(db, in.EmployeeID, in.Date, exceptID)
	if err != nil {
		return err
	}
	if logged+in.Hours > models.MaxHoursPerDay {
		return NewValidationError("hours", "validation.daily_hours")
	}
	return nil
}

// ListTimesheets returns a page of time entries, most recent first
func ListTimesheets(db *gorm.DB, organizationID string, filters TimesheetFilters, page, limit int) ([]models.Timesheet, int64, error) {
	query := db.Model(&models.Timesheet{}).Where("organization_id = ?", organizationID)
	if filters.EmployeeID != "" {
		query = query.Where("employee_id = ?", filters.EmployeeID)
	}
	if filters.ProjectID != "" {
		query = query.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(filters.Status))
	}
	if filters.From != nil {
		query = query.Where("date >= ?", truncateDay(*filters.From))
	}
	if filters.To != nil {
		query = query.Where("date < ?", truncateDay(*filters.To).AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.Timesheet
	err := query.Preload("Employee").Preload("Project").
		Order("date DESC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// GetTimesheet loads a time entry of the organization
func GetTimesheet(db *gorm.DB, organizationID, timesheetID string) (*models.Timesheet, error) {
	var entry models.Timesheet
	err := db.Where("organization_id = ? AND id = ?", organizationID, timesheetID).
		Preload("Employee").Preload("Project").
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// CreateTimesheet logs time as a draft entry
func CreateTimesheet(db *gorm.DB, organizationID string, in TimesheetInput) (*models.Timesheet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkTimesheet(db, organizationID, &in, ""); err != nil {
		return nil, err
	}

	billable := in.Billable == nil || *in.Billable
	entry := &models.Timesheet{
		OrganizationID: organizationID,
		EmployeeID:     in.EmployeeID,
		Date:           in.Date,
		Hours:          in.Hours,
		Description:    in.Description,
		Billable:       billable,
		Status:         models.TimesheetStatusDraft,
	}
	if in.ProjectID != nil {
		entry.ProjectID = ptrIfNotEmpty(*in.ProjectID)
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}
	// false is skipped on insert in favour of the column default
	if !billable {
		if err := db.Model(entry).Update("billable", false).Error; err != nil {
			return nil, err
		}
		entry.Billable = false
	}
	return entry, nil
}

// UpdateTimesheet changes a draft or rejected entry. A rejected entry goes back to draft.
func UpdateTimesheet(db *gorm.DB, organizationID, timesheetID string, in TimesheetInput) (*models.Timesheet, error) {
	entry, err := GetTimesheet(db, organizationID, timesheetID)
	if err != nil {
		return nil, err
	}
	if !entry.IsEditable() {
		return nil, NewConflict("errors.timesheet_locked")
	}
	if in.EmployeeID == "" {
		in.EmployeeID = entry.EmployeeID
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkTimesheet(db, organizationID, &in, entry.ID); err != nil {
		return nil, err
	}

	entry.EmployeeID = in.EmployeeID
	entry.ProjectID = nil
	if in.ProjectID != nil {
		entry.ProjectID = ptrIfNotEmpty(*in.ProjectID)
	}
	entry.Date = in.Date
	entry.Hours = in.Hours
	entry.Description = in.Description
	if in.Billable != nil {
		entry.Billable = *in.Billable
	}
	entry.Status = models.TimesheetStatusDraft
	entry.RejectReason = ""
	entry.Employee, entry.Project = nil, nil

	if err := db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to update timesheet: %w", err)
	}
	return entry, nil
}

// DeleteTimesheet removes a draft or rejected entry
func DeleteTimesheet(db *gorm.DB, organizationID, timesheetID string) error {
	entry, err := GetTimesheet(db, organizationID, timesheetID)
	if err != nil {
		return err
	}
	if !entry.IsEditable() {
		return NewConflict("errors.timesheet_locked")
	}
	return db.Delete(entry).Error
}

func transitionTimesheet(db *gorm.DB, organizationID, timesheetID string, from []string, updates map[string]interface{}) (*models.Timesheet, error) {
	entry, err := GetTimesheet(db, organizationID, timesheetID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(from, entry.Status) {
		return nil, NewConflict("errors.timesheet_status")
	}
	if err := db.Model(&models.Timesheet{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetTimesheet(db, organizationID, timesheetID)
}

// SubmitTimesheet sends a draft or rejected entry for approval
func SubmitTimesheet(db *gorm.DB, organizationID, timesheetID string) (*models.Timesheet, error) {
	return transitionTimesheet(db, organizationID, timesheetID,
		[]string{models.TimesheetStatusDraft, models.TimesheetStatusRejected},
		map[string]interface{}{"status": models.TimesheetStatusSubmitted, "reject_reason": ""})
}

// ApproveTimesheet approves a submitted entry
func ApproveTimesheet(db *gorm.DB, organizationID, timesheetID, reviewerID string) (*models.Timesheet, error) {
	return transitionTimesheet(db, organizationID, timesheetID,
		[]string{models.TimesheetStatusSubmitted},
		map[string]interface{}{"status": models.TimesheetStatusApproved, "reviewed_by_id": reviewerID, "reviewed_at": time.Now()})
}

// RejectTimesheet sends a submitted entry back with a reason
func RejectTimesheet(db *gorm.DB, organizationID, timesheetID, reviewerID, reason string) (*models.Timesheet, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason", "validation.required")
	}
	return transitionTimesheet(db, organizationID, timesheetID,
		[]string{models.TimesheetStatusSubmitted},
		map[string]interface{}{"status": models.TimesheetStatusRejected, "reviewed_by_id": reviewerID, "reviewed_at": time.Now(), "reject_reason": reason})
}

// EmployeeWeek sums the hours of one employee over a week, Monday first
type EmployeeWeek struct {
	EmployeeID    string     `json:"employee_id"`
	EmployeeName  string     `json:"employee_name"`
	Days          [7]float64 `json:"days"`
	Total         float64    `json:"total"`
	BillableHours float64    `json:"billable_hours"`
	Approved      float64    `json:"approved"`
}

// WeekStart returns the Monday of the week containing t
func WeekStart(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeeklySummary returns the hours per day of every employee with time in the week of anchor.
// Rejected entries are left out. An empty employeeID covers everyone.
func WeeklySummary(db *gorm.DB, organizationID, employeeID string, anchor time.Time) ([]EmployeeWeek, error) {
	start := WeekStart(anchor)
	query := db.Where("organization_id = ? AND date >= ? AND date < ? AND status <> ?",
		organizationID, start, start.AddDate(0, 0, 7), models.TimesheetStatusRejected)
	if employeeID != "" {
		query = query.Where("employee_id = ?", employeeID)
	}
	var entries []models.Timesheet
	if err := query.Preload("Employee").Find(&entries).Error; err != nil {
		return nil, err
	}

	byEmployee := lo.GroupBy(entries, func(e models.Timesheet) string { return e.EmployeeID })
	weeks := make([]EmployeeWeek, 0, len(byEmployee))
	for id, items := range byEmployee {
		week := EmployeeWeek{EmployeeID: id}
		if items[0].Employee != nil {
			week.EmployeeName = items[0].Employee.FullName()
		}
		for _, e := range items {
			idx := int(truncateDay(e.Date).Sub(start).Hours() / 24)
			if idx < 0 || idx > 6 {
				continue
			}
			week.Days[idx] += e.Hours
			week.Total += e.Hours
			if e.Billable {
				week.BillableHours += e.Hours
			}
			if e.Status == models.TimesheetStatusApproved {
				week.Approved += e.Hours
			}
		}
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].EmployeeName < weeks[j].EmployeeName })
	return weeks, nil
}
