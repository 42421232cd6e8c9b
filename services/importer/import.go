package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ErrAllRowsFailed is returned when no row could be imported; nothing is kept
var ErrAllRowsFailed = errors.New("all rows failed")

// MissingColumnsError is returned when no sheet carries every required column
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Message localizes the error for the import modal
func (e *MissingColumnsError) Message(ctx context.Context) string {
	return i18n.T(ctx, "import.missing_columns", map[string]interface{}{"columns": strings.Join(e.Missing, ", ")})
}

// Result contains the summary of an import
type Result struct {
	Kind           string   `json:"kind"`
	TotalProcessed int      `json:"total_processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Failed         int      `json:"failed"`
	MediaUploaded  int      `json:"media_uploaded"`
	Errors         []string `json:"errors"`
}

// SuccessCount is the number of rows that were stored
func (r *Result) SuccessCount() int { return r.Created + r.Updated }

// row is one data line of the sheet, addressed by field key
type row struct {
	number int
	values map[string]string
}

func (r row) get(key string) string { return r.values[key] }

func (r row) empty() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// archive holds the workbook and media files of an upload
type archive struct {
	workbook io.Reader
	media    map[string]*zip.File
}

// openUpload accepts a .xlsx workbook, or a .zip with exactly one workbook and media files
func openUpload(filename string, data []byte) (*archive, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return &archive{workbook: bytes.NewReader(data)}, nil
	case ".zip":
	default:
		return nil, services.NewValidationError("file", "validation.import_extension")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, services.NewValidationError("file", "import.invalid_archive")
	}
	a := &archive{media: make(map[string]*zip.File)}
	var workbooks []*zip.File
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case strings.EqualFold(filepath.Ext(name), ".xlsx"):
			workbooks = append(workbooks, f)
		case services.IsMediaFile(name):
			a.media[strings.ToLower(name)] = f
		}
	}
	if len(workbooks) != 1 {
		return nil, services.NewValidationError("file", "import.archive_workbook")
	}
	if workbooks[0].UncompressedSize64 > services.MaxImportSize {
		return nil, services.NewValidationError("file", "validation.file_too_large")
	}
	rc, err := workbooks[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook in archive: %w", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(io.LimitReader(rc, services.MaxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook in archive: %w", err)
	}
	a.workbook = bytes.NewReader(content)
	return a, nil
}

// readRows picks the first sheet whose header row carries every required column
// and returns its data rows. Headers are on the first non-empty line.
func readRows(workbook io.Reader, fields []Field) ([]row, error) {
	f, err := excelize.OpenReader(workbook)
	if err != nil {
		return nil, services.NewValidationError("file", "import.invalid_workbook")
	}
	defer f.Close()

	var bestMissing []string
	for _, sheet := range f.GetSheetList() {
		lines, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		headerIdx := -1
		for i, line := range lines {
			if strings.TrimSpace(strings.Join(line, "")) != "" {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			continue
		}
		columns, missing := MatchColumns(fields, lines[headerIdx])
		if len(missing) > 0 {
			if bestMissing == nil || len(missing) < len(bestMissing) {
				bestMissing = missing
			}
			continue
		}

		var rows []row
		for i := headerIdx + 1; i < len(lines); i++ {
			r := row{number: i + 1, values: make(map[string]string, len(columns))}
			for key, col := range columns {
				if col < len(lines[i]) {
					r.values[key] = strings.TrimSpace(lines[i][col])
				}
			}
			if !r.empty() {
				rows = append(rows, r)
			}
		}
		return rows, nil
	}

	if bestMissing == nil {
		bestMissing = requiredKeys(fields)
	}
	return nil, &MissingColumnsError{Missing: bestMissing}
}

func requiredKeys(fields []Field) []string {
	var keys []string
	for _, f := range fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// rowMessage turns a row failure into a localized message
func rowMessage(ctx context.Context, err error) string {
	fields := services.FieldMessages(ctx, err)
	if len(fields) == 0 {
		return services.UserMessage(ctx, err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}

// importer carries the state of one import run
type importer struct {
	ctx            context.Context
	organizationID string
	media          map[string]*zip.File
	result         *Result
	uploaded       []string
}

// Import loads an .xlsx or .zip upload of the given kind. Rows are processed in one
// transaction; each failing row is reported as "Row N: ..." and skipped. Companies
// are matched by name, case-insensitively, and updated instead of duplicated.
// When every row fails the transaction is rolled back and ErrAllRowsFailed returned.
func Import(ctx context.Context, db *gorm.DB, organizationID, kind, filename string, data []byte) (*Result, error) {
	fields, ok := Schemas[kind]
	if !ok {
		return nil, services.NewValidationError("kind", "validation.import_kind")
	}
	a, err := openUpload(filename, data)
	if err != nil {
		return nil, err
	}
	rows, err := readRows(a.workbook, fields)
	if err != nil {
		return nil, err
	}

	imp := &importer{
		ctx:            ctx,
		organizationID: organizationID,
		media:          a.media,
		result:         &Result{Kind: kind, Errors: []string{}},
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			imp.discardMedia()
			panic(r)
		}
	}()

	for _, r := range rows {
		imp.result.TotalProcessed++
		created, err := imp.importRow(tx, kind, r)
		if err != nil {
			imp.result.Failed++
			imp.result.Errors = append(imp.result.Errors, i18n.T(ctx, "import.row_error", map[string]interface{}{
				"row":     r.number,
				"message": rowMessage(ctx, err),
			}))
			continue
		}
		if created {
			imp.result.Created++
		} else {
			imp.result.Updated++
		}
	}

	if imp.result.Failed > 0 && imp.result.SuccessCount() == 0 {
		tx.Rollback()
		imp.discardMedia()
		return imp.result, ErrAllRowsFailed
	}
	if err := tx.Commit().Error; err != nil {
		imp.discardMedia()
		return nil, err
	}
	log.Printf("[AUDIT] import %s for organization %s: %d created, %d updated, %d failed",
		kind, organizationID, imp.result.Created, imp.result.Updated, imp.result.Failed)
	return imp.result, nil
}

// importRow stores one row inside a savepoint so a failing row leaves no trace
func (imp *importer) importRow(tx *gorm.DB, kind string, r row) (bool, error) {
	var created bool
	err := tx.Transaction(func(rowTx *gorm.DB) error {
		var err error
		switch kind {
		case KindCompanies:
			created, err = imp.importCompany(rowTx, r)
		case KindContacts:
			created, err = imp.importContact(rowTx, r)
		case KindTestimonials:
			created, err = imp.importTestimonial(rowTx, r)
		}
		return err
	})
	return created, err
}

func (imp *importer) discardMedia() {
	for _, key := range imp.uploaded {
		if err := services.Storage.Delete(imp.ctx, key); err != nil {
			log.Printf("[WARNING] failed to delete imported media %s: %v", key, err)
		}
	}
	imp.uploaded = nil
	imp.result.MediaUploaded = 0
}

// overlay keeps the current value when the imported cell is empty
func overlay(current, imported string) string {
	if imported == "" {
		return current
	}
	return imported
}

func (imp *importer) importCompany(tx *gorm.DB, r row) (bool, error) {
	in := services.CompanyInput{
		Name:     r.get("name"),
		LegalID:  r.get("legal_id"),
		Type:     strings.ToUpper(r.get("type")),
		Industry: r.get("industry"),
		Email:    r.get("email"),
		Phone:    r.get("phone"),
		Website:  r.get("website"),
		Address:  r.get("address"),
		City:     r.get("city"),
		Country:  r.get("country"),
	}
	if in.Name == "" {
		return false, services.NewValidationError("name", "validation.required")
	}

	existing, err := services.FindCompanyByName(tx, imp.organizationID, in.Name)
	if errors.Is(err, services.ErrNotFound) {
		_, err := services.CreateCompany(tx, imp.organizationID, in)
		return true, err
	}
	if err != nil {
		return false, err
	}

	merged := services.CompanyInput{
		Name:     existing.Name,
		LegalID:  overlay(existing.LegalID, in.LegalID),
		Type:     overlay(existing.Type, in.Type),
		Industry: overlay(existing.Industry, in.Industry),
		Email:    overlay(existing.Email, in.Email),
		Phone:    overlay(existing.Phone, in.Phone),
		Website:  overlay(existing.Website, in.Website),
		Address:  overlay(existing.Address, in.Address),
		City:     overlay(existing.City, in.City),
		Country:  overlay(existing.Country, in.Country),
		Notes:    existing.Notes,
		OwnerID:  existing.OwnerID,
	}
	_, err = services.UpdateCompany(tx, imp.organizationID, existing.ID, merged)
	return false, err
}

func (imp *importer) company(tx *gorm.DB, name string) (*models.Company, error) {
	if name == "" {
		return nil, services.NewValidationError("company", "validation.required")
	}
	company, err := services.FindCompanyByName(tx, imp.organizationID, name)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.NewValidationError("company", "import.unknown_company")
	}
	return company, err
}

func (imp *importer) importContact(tx *gorm.DB, r row) (bool, error) {
	company, err := imp.company(tx, r.get("company"))
	if err != nil {
		return false, err
	}
	primary, ok := parseBool(r.get("primary"))
	if !ok {
		return false, services.NewValidationError("primary", "validation.bool")
	}
	in := services.ContactInput{
		CompanyID: company.ID,
		FirstName: r.get("first_name"),
		LastName:  r.get("last_name"),
		Email:     r.get("email"),
		Phone:     r.get("phone"),
		JobTitle:  r.get("job_title"),
		IsPrimary: primary,
	}

	if in.Email != "" {
		var existing models.Contact
		err := tx.Where("organization_id = ? AND company_id = ? AND LOWER(email) = LOWER(?)", imp.organizationID, company.ID, in.Email).
			First(&existing).Error
		if err == nil {
			_, err = services.UpdateContact(tx, imp.organizationID, existing.ID, in)
			return false, err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	}
	_, err = services.CreateContact(tx, imp.organizationID, in)
	return true, err
}

func (imp *importer) importTestimonial(tx *gorm.DB, r row) (bool, error) {
	company, err := imp.company(tx, r.get("company"))
	if err != nil {
		return false, err
	}
	rating := 0
	if raw := r.get("rating"); raw != "" {
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || n != float64(int(n)) {
			return false, services.NewValidationError("rating", "validation.range")
		}
		rating = int(n)
	}
	published, ok := parseBool(r.get("published"))
	if !ok {
		return false, services.NewValidationError("published", "validation.bool")
	}

	var media *zip.File
	if name := r.get("media_file"); name != "" {
		media = imp.media[strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))]
		if media == nil {
			return false, services.NewValidationError("media_file", "import.media_missing")
		}
		if media.UncompressedSize64 > services.MaxMediaSize {
			return false, services.NewValidationError("media_file", "validation.file_too_large")
		}
	}

	item, err := services.CreateTestimonial(tx, imp.organizationID, services.TestimonialInput{
		CompanyID:    company.ID,
		ContactName:  r.get("contact_name"),
		ContactTitle: r.get("contact_title"),
		Content:      r.get("content"),
		Rating:       rating,
		IsPublished:  published,
	})
	if err != nil || media == nil {
		return true, err
	}

	rc, err := media.Open()
	if err != nil {
		return false, fmt.Errorf("failed to open media %s: %w", media.Name, err)
	}
	defer rc.Close()
	item, err = services.AttachTestimonialMedia(imp.ctx, tx, imp.organizationID, item.ID, path.Base(media.Name), rc, int64(media.UncompressedSize64))
	if err != nil {
		return false, err
	}
	imp.uploaded = append(imp.uploaded, item.MediaKey)
	imp.result.MediaUploaded++
	return true, nil
}

// parseBool accepts the usual spreadsheet spellings; an empty cell is false
func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no", "n", "non", "faux":
		return false, true
	case "true", "1", "yes", "y", "oui", "o", "vrai", "x":
		return true, true
	}
	return false, false
}
