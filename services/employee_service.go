package services

import (
	"fmt"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// EmployeeFilters narrows the employee list
type EmployeeFilters struct {
	Keyword    string
	Department string
	Active     *bool
}

// EmployeeInput is the editable part of an employee
type EmployeeInput struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	JobTitle   string     `json:"job_title"`
	Department string     `json:"department"`
	HireDate   *time.Time `json:"hire_date"`
	HourlyCost float64    `json:"hourly_cost"`
	UserID     *string    `json:"user_id"`
}

// Validate normalizes the input and checks required fields
func (in *EmployeeInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)

	v := &ValidationError{}
	requireField(v, "first_name", in.FirstName)
	requireField(v, "last_name", in.LastName)
	checkEmail(v, "email", in.Email)
	checkNonNegative(v, "hourly_cost", in.HourlyCost)
	return v.OrNil()
}

func (in *EmployeeInput) apply(e *models.Employee) {
	e.FirstName = in.FirstName
	e.LastName = in.LastName
	e.Email = in.Email
	e.Phone = strings.TrimSpace(in.Phone)
	e.JobTitle = strings.TrimSpace(in.JobTitle)
	e.Department = strings.TrimSpace(in.Department)
	e.HireDate = in.HireDate
	e.HourlyCost = in.HourlyCost
}

// ListEmployees returns a page of employees ordered by name
func ListEmployees(db *gorm.DB, organizationID string, filters EmployeeFilters, page, limit int) ([]models.Employee, int64, error) {
	query := db.Model(&models.Employee{}).Where("organization_id = ?", organizationID)
	if filters.Keyword != "" {
		pattern := likePattern(filters.Keyword)
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR job_title LIKE ?", pattern, pattern, pattern, pattern)
	}
	if filters.Department != "" {
		query = query.Where("department = ?", filters.Department)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var employees []models.Employee
	err := query.Order("last_name ASC, first_name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&employees).Error
	return employees, total, err
}

// GetEmployee loads an employee of the organization
func GetEmployee(db *gorm.DB, organizationID, employeeID string) (*models.Employee, error) {
	var employee models.Employee
	if err := db.Where("organization_id = ? AND id = ?", organizationID, employeeID).First(&employee).Error; err != nil {
		return nil, notFound(err)
	}
	return &employee, nil
}

// linkUser points a user account of the organization at the employee
func linkUser(tx *gorm.DB, organizationID, employeeID string, userID *string) error {
	if userID == nil {
		return nil
	}
	if err := tx.Model(&models.User{}).
		Where("organization_id = ? AND employee_id = ?", organizationID, employeeID).
		Update("employee_id", nil).Error; err != nil {
		return err
	}
	if *userID == "" {
		return nil
	}
	result := tx.Model(&models.User{}).
		Where("organization_id = ? AND id = ?", organizationID, *userID).
		Update("employee_id", employeeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewValidationError("user_id", "validation.unknown_user")
	}
	return nil
}

// CreateEmployee stores an employee and optionally links a user account
func CreateEmployee(db *gorm.DB, organizationID string, in EmployeeInput) (*models.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	employee := &models.Employee{OrganizationID: organizationID, IsActive: true}
	in.apply(employee)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(employee).Error; err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		return linkUser(tx, organizationID, employee.ID, in.UserID)
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// UpdateEmployee replaces the editable fields of an employee
func UpdateEmployee(db *gorm.DB, organizationID, employeeID string, in EmployeeInput) (*models.Employee, error) {
	employee, err := GetEmployee(db, organizationID, employeeID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.apply(employee)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(employee).Error; err != nil {
			return fmt.Errorf("failed to update employee: %w", err)
		}
		return linkUser(tx, organizationID, employee.ID, in.UserID)
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// SetEmployeeActive activates or deactivates an employee. Inactive employees cannot log time.
func SetEmployeeActive(db *gorm.DB, organizationID, employeeID string, active bool) (*models.Employee, error) {
	employee, err := GetEmployee(db, organizationID, employeeID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(employee).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	employee.IsActive = active
	return employee, nil
}

// DeleteEmployee soft-deletes an employee and unlinks its user account
func DeleteEmployee(db *gorm.DB, organizationID, employeeID string) error {
	employee, err := GetEmployee(db, organizationID, employeeID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		empty := ""
		if err := linkUser(tx, organizationID, employee.ID, &empty); err != nil {
			return err
		}
		return tx.Delete(employee).Error
	})
}

// EmployeeForUser returns the employee linked to a user, or ErrNotFound
func EmployeeForUser(db *gorm.DB, user *models.User) (*models.Employee, error) {
	if user.EmployeeID == nil || !user.HasOrganization() {
		return nil, ErrNotFound
	}
	return GetEmployee(db, *user.OrganizationID, *user.EmployeeID)
}
