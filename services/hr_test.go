package services

import (
	"testing"
	"time"

	"biz_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeCRUD(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)

	emp, err := CreateEmployee(db, org.ID, EmployeeInput{FirstName: "Grace", LastName: "Hopper", Email: "GRACE@acme.test", Department: "R&D", HourlyCost: 80, UserID: &admin.ID})
	require.NoError(t, err)
	assert.True(t, emp.IsActive)
	assert.Equal(t, "grace@acme.test", emp.Email)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", admin.ID).Error)
	require.NotNil(t, user.EmployeeID)
	assert.Equal(t, emp.ID, *user.EmployeeID)

	linked, err := EmployeeForUser(db, &user)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, linked.ID)

	_, err = CreateEmployee(db, org.ID, EmployeeInput{FirstName: "", LastName: "X", Email: "nope", HourlyCost: -3})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "hourly_cost")

	active := true
	list, total, err := ListEmployees(db, org.ID, EmployeeFilters{Keyword: "hop", Active: &active}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	_, err = SetEmployeeActive(db, org.ID, emp.ID, false)
	require.NoError(t, err)
	_, total, _ = ListEmployees(db, org.ID, EmployeeFilters{Active: &active}, 1, 20)
	assert.Equal(t, int64(0), total)

	require.NoError(t, DeleteEmployee(db, org.ID, emp.ID))
	require.NoError(t, db.First(&user, "id = ?", admin.ID).Error)
	assert.Nil(t, user.EmployeeID, "deleting unlinks the user")
}

func TestTimesheet_DailyLimit(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	emp, _ := CreateEmployee(db, org.ID, EmployeeInput{FirstName: "Alan", LastName: "Turing"})
	monday := day(2026, 3, 2)

	_, err := CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday, Hours: 0})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation.hours_range", verr.Fields["hours"])

	_, err = CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday, Hours: 24.5})
	require.ErrorAs(t, err, &verr)

	first, err := CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday.Add(9 * time.Hour), Hours: 16})
	require.NoError(t, err)
	assert.Equal(t, monday, first.Date.UTC(), "dates are truncated to the day")
	assert.True(t, first.Billable)

	_, err = CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday, Hours: 9})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "validation.daily_hours", verr.Fields["hours"])

	notBillable := false
	second, err := CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday, Hours: 8, Billable: &notBillable})
	require.NoError(t, err)
	reloaded, _ := GetTimesheet(db, org.ID, second.ID)
	assert.False(t, reloaded.Billable)

	// Updating an entry does not count its own hours twice
	_, err = UpdateTimesheet(db, org.ID, first.ID, TimesheetInput{Date: monday, Hours: 16})
	require.NoError(t, err)

	_, err = SetEmployeeActive(db, org.ID, emp.ID, false)
	require.NoError(t, err)
	_, err = CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: monday.AddDate(0, 0, 1), Hours: 1})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "employee_id")
}

func TestTimesheet_Workflow(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)
	emp, _ := CreateEmployee(db, org.ID, EmployeeInput{FirstName: "Ada", LastName: "Lovelace"})

	entry, err := CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: emp.ID, Date: day(2026, 3, 4), Hours: 7})
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)

	_, err = ApproveTimesheet(db, org.ID, entry.ID, admin.ID)
	assert.ErrorIs(t, err, ErrConflict, "drafts cannot be approved")

	entry, err = SubmitTimesheet(db, org.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusSubmitted, entry.Status)

	_, err = UpdateTimesheet(db, org.ID, entry.ID, TimesheetInput{Date: day(2026, 3, 4), Hours: 6})
	assert.ErrorIs(t, err, ErrConflict, "submitted entries are locked")

	_, err = RejectTimesheet(db, org.ID, entry.ID, admin.ID, "  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	entry, err = RejectTimesheet(db, org.ID, entry.ID, admin.ID, "wrong project")
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusRejected, entry.Status)
	assert.Equal(t, "wrong project", entry.RejectReason)

	entry, err = UpdateTimesheet(db, org.ID, entry.ID, TimesheetInput{Date: day(2026, 3, 4), Hours: 6})
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)
	assert.Empty(t, entry.RejectReason)

	_, err = SubmitTimesheet(db, org.ID, entry.ID)
	require.NoError(t, err)
	entry, err = ApproveTimesheet(db, org.ID, entry.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusApproved, entry.Status)
	require.NotNil(t, entry.ReviewedByID)
	assert.Equal(t, admin.ID, *entry.ReviewedByID)

	assert.ErrorIs(t, DeleteTimesheet(db, org.ID, entry.ID), ErrConflict)
}

func TestWeeklySummary(t *testing.T) {
	db := setupTestDB(t)
	org, admin := seedOrg(t, db)
	ada, _ := CreateEmployee(db, org.ID, EmployeeInput{FirstName: "Ada", LastName: "Lovelace"})
	bob, _ := CreateEmployee(db, org.ID, EmployeeInput{FirstName: "Bob", LastName: "Babbage"})
	notBillable := false

	entries := []TimesheetInput{
		{EmployeeID: ada.ID, Date: day(2026, 3, 2), Hours: 8},
		{EmployeeID: ada.ID, Date: day(2026, 3, 4), Hours: 6, Billable: &notBillable},
		{EmployeeID: ada.ID, Date: day(2026, 3, 9), Hours: 5}, // next week
		{EmployeeID: bob.ID, Date: day(2026, 3, 8), Hours: 3}, // sunday
	}
	for _, in := range entries {
		_, err := CreateTimesheet(db, org.ID, in)
		require.NoError(t, err)
	}
	rejected, _ := CreateTimesheet(db, org.ID, TimesheetInput{EmployeeID: bob.ID, Date: day(2026, 3, 3), Hours: 2})
	_, _ = SubmitTimesheet(db, org.ID, rejected.ID)
	_, err := RejectTimesheet(db, org.ID, rejected.ID, admin.ID, "duplicate")
	require.NoError(t, err)

	assert.Equal(t, day(2026, 3, 2), WeekStart(day(2026, 3, 8)))
	assert.Equal(t, day(2026, 3, 2), WeekStart(day(2026, 3, 2)))

	weeks, err := WeeklySummary(db, org.ID, "", day(2026, 3, 5))
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	assert.Equal(t, "Ada Lovelace", weeks[0].EmployeeName)
	assert.Equal(t, 8.0, weeks[0].Days[0])
	assert.Equal(t, 6.0, weeks[0].Days[2])
	assert.Equal(t, 14.0, weeks[0].Total)
	assert.Equal(t, 8.0, weeks[0].BillableHours)

	assert.Equal(t, "Bob Babbage", weeks[1].EmployeeName)
	assert.Equal(t, 3.0, weeks[1].Days[6])
	assert.Equal(t, 3.0, weeks[1].Total, "rejected entries are left out")

	only, err := WeeklySummary(db, org.ID, bob.ID, day(2026, 3, 5))
	require.NoError(t, err)
	assert.Len(t, only, 1)
}
