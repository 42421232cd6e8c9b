package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"biz_flow_app_go/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ProjectFilters narrows the project list
type ProjectFilters struct {
	Keyword   string
	Status    string
	CompanyID string
	ManagerID string
}

// ProjectInput is the editable part of a project. An empty code is generated.
type ProjectInput struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Budget      float64    `json:"budget"`
	CompanyID   *string    `json:"company_id"`
	ManagerID   *string    `json:"manager_id"`
}

// Validate normalizes the input and checks required fields, dates and budget
func (in *ProjectInput) Validate() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = models.ProjectStatusPlanned
	}

	v := &ValidationError{}
	requireField(v, "name", in.Name)
	checkNonNegative(v, "budget", in.Budget)
	checkDateOrder(v, "end_date", in.StartDate, in.EndDate)
	if !models.IsValidProjectStatus(in.Status) {
		v.Add("status", "validation.project_status")
	}
	return v.OrNil()
}

func (in *ProjectInput) apply(p *models.Project) {
	p.Name = in.Name
	p.Description = SanitizeRichText(in.Description)
	p.Status = in.Status
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.Budget = in.Budget
	p.CompanyID = nil
	if in.CompanyID != nil {
		p.CompanyID = ptrIfNotEmpty(*in.CompanyID)
	}
	p.ManagerID = nil
	if in.ManagerID != nil {
		p.ManagerID = ptrIfNotEmpty(*in.ManagerID)
	}
}

// NextProjectCode returns the next free PRJ-YYYY-NNNN code of the organization for the year.
// Soft-deleted projects keep their code reserved.
func NextProjectCode(db *gorm.DB, organizationID string, year int) (string, error) {
	prefix := fmt.Sprintf("PRJ-%d-", year)
	var codes []string
	err := db.Unscoped().Model(&models.Project{}).
		Where("organization_id = ? AND code LIKE ?", organizationID, prefix+"%").
		Pluck("code", &codes).Error
	if err != nil {
		return "", err
	}

	next := 1 + lo.Max(lo.FilterMap(codes, func(code string, _ int) (int, bool) {
		n, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
		return n, err == nil
	}))
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

func projectCodeTaken(db *gorm.DB, organizationID, code, exceptID string) (bool, error) {
	var count int64
	query := db.Unscoped().Model(&models.Project{}).Where("organization_id = ? AND code = ?", organizationID, code)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func checkProjectRefs(db *gorm.DB, organizationID string, in *ProjectInput) error {
	if in.CompanyID != nil && *in.CompanyID != "" {
		if _, err := GetCompany(db, organizationID, *in.CompanyID); err != nil {
			return NewValidationError("company_id", "validation.unknown_company")
		}
	}
	if in.ManagerID != nil && *in.ManagerID != "" {
		if _, err := GetUser(db, organizationID, *in.ManagerID); err != nil {
			return NewValidationError("manager_id", "validation.unknown_user")
		}
	}
	return nil
}

// ListProjects returns a page of projects
func ListProjects(db *gorm.DB, organizationID string, filters ProjectFilters, page, limit int) ([]models.Project, int64, error) {
	query := db.Model(&models.Project{}).Where("organization_id = ?", organizationID)
	if filters.Keyword != "" {
		pattern := likePattern(filters.Keyword)
		query = query.Where("name LIKE ? OR code LIKE ?", pattern, pattern)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(filters.Status))
	}
	if filters.CompanyID != "" {
		query = query.Where("company_id = ?", filters.CompanyID)
	}
	if filters.ManagerID != "" {
		query = query.Where("manager_id = ?", filters.ManagerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	err := query.Preload("Company").Preload("Manager").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&projects).Error
	return projects, total, err
}

// GetProject loads a project with its deadlines and budget lines
func GetProject(db *gorm.DB, organizationID, projectID string) (*models.Project, error) {
	var project models.Project
	err := db.Where("organization_id = ? AND id = ?", organizationID, projectID).
		Preload("Company").
		Preload("Manager").
		Preload("Deadlines", func(db *gorm.DB) *gorm.DB { return db.Order("due_date ASC") }).
		Preload("BudgetLines", func(db *gorm.DB) *gorm.DB { return db.Order("category ASC, label ASC") }).
		First(&project).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// CreateProject stores a project, generating its code when none is given
func CreateProject(db *gorm.DB, organizationID string, in ProjectInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkProjectRefs(db, organizationID, &in); err != nil {
		return nil, err
	}

	project := &models.Project{OrganizationID: organizationID}
	in.apply(project)

	err := db.Transaction(func(tx *gorm.DB) error {
		if in.Code == "" {
			code, err := NextProjectCode(tx, organizationID, time.Now().Year())
			if err != nil {
				return err
			}
			project.Code = code
		} else {
			taken, err := projectCodeTaken(tx, organizationID, in.Code, "")
			if err != nil {
				return err
			}
			if taken {
				return NewConflict("errors.project_code_taken")
			}
			project.Code = in.Code
		}
		return tx.Create(project).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// UpdateProject replaces the editable fields. An empty code keeps the current one.
func UpdateProject(db *gorm.DB, organizationID, projectID string, in ProjectInput) (*models.Project, error) {
	project, err := GetProject(db, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkProjectRefs(db, organizationID, &in); err != nil {
		return nil, err
	}

	if in.Code != "" && in.Code != project.Code {
		taken, err := projectCodeTaken(db, organizationID, in.Code, project.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, NewConflict("errors.project_code_taken")
		}
		project.Code = in.Code
	}
	in.apply(project)

	if err := db.Omit("Company", "Manager", "Deadlines", "BudgetLines").Save(project).Error; err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// DeleteProject soft-deletes a project with its deadlines and budget lines
func DeleteProject(db *gorm.DB, organizationID, projectID string) error {
	project, err := GetProject(db, organizationID, projectID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Deadline{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.BudgetLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
}

// CountProjectsByStatus returns the number of projects per status
func CountProjectsByStatus(db *gorm.DB, organizationID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&models.Project{}).
		Select("status, COUNT(*) AS count").
		Where("organization_id = ?", organizationID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
