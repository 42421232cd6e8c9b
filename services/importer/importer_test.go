package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	org := &models.Organization{Name: "Import " + uuid.New().String()[:8]}
	require.NoError(t, db.Create(org).Error)
	return db, org.ID
}

func testCtx() context.Context {
	_ = i18n.Load()
	return i18n.WithLocale(context.Background(), "en")
}

func useLocalStorage(t *testing.T) {
	t.Helper()
	previous := services.Storage
	services.Storage = services.NewLocalStorage(t.TempDir())
	t.Cleanup(func() { services.Storage = previous })
}

// workbook builds an .xlsx with the given rows on its first sheet
func workbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		line := r
		require.NoError(t, f.SetSheetRow("Sheet1", cellName(1, i+1), &line))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func zipArchive(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Prénom*":          "prenom",
		"Raison sociale":   "raison_sociale",
		" E-mail ":         "e_mail",
		"NAME":             "name",
		"Société (nom)":    "societe_nom",
		"  job_title  *  ": "job_title",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestMatchColumns(t *testing.T) {
	columns, missing := MatchColumns(Schemas[KindCompanies], []string{"Nom*", "", "Ville", "SIRET", "Nom"})
	assert.Empty(t, missing)
	assert.Equal(t, map[string]int{"name": 0, "city": 2, "legal_id": 3}, columns)

	_, missing = MatchColumns(Schemas[KindContacts], []string{"email"})
	assert.Equal(t, []string{"company", "first_name", "last_name"}, missing)

	columns, missing = MatchColumns(Schemas[KindContacts], []string{"Entreprise", "Prénom", "Nom", "Principal"})
	assert.Empty(t, missing)
	assert.Equal(t, 3, columns["primary"])
}

func TestGenerateTemplate(t *testing.T) {
	ctx := testCtx()
	for kind, fields := range Schemas {
		buf, err := GenerateTemplate(ctx, kind)
		require.NoError(t, err, kind)

		f, err := excelize.OpenReader(buf)
		require.NoError(t, err)
		sheets := f.GetSheetList()
		require.Len(t, sheets, 2)
		rows, err := f.GetRows(sheets[1])
		require.NoError(t, err)
		require.Len(t, rows, 2)

		columns, missing := MatchColumns(fields, rows[0])
		assert.Empty(t, missing, kind)
		assert.Len(t, columns, len(fields), "every documented column is in the template")
		f.Close()
	}

	_, err := GenerateTemplate(ctx, "invoices")
	assert.Error(t, err)
}

func TestImportCompanies_UpsertsByName(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()

	data := workbook(t, [][]string{
		{"Nom*", "Ville", "Type"},
		{"Globex", "Paris", "client"},
		{"", "Lyon", ""},
		{"globex", "", "PARTNER"},
		{"Initech", "Nantes", "bogus"},
		{"", "", ""},
		{"Umbrella", "", ""},
	})
	result, err := Import(ctx, db, orgID, KindCompanies, "clients.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Row 3")
	assert.Contains(t, result.Errors[1], "Row 5")

	globex, err := services.FindCompanyByName(db, orgID, "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, "Paris", globex.City, "empty cells keep the stored value")
	assert.Equal(t, models.CompanyTypePartner, globex.Type)

	var count int64
	db.Model(&models.Company{}).Where("organization_id = ?", orgID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestImportContacts_AllRowsFailRollsBack(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()

	data := workbook(t, [][]string{
		{"company", "first_name", "last_name", "primary"},
		{"Nobody Inc", "Ada", "Lovelace", "yes"},
		{"Nobody Inc", "Alan", "Turing", "maybe"},
	})
	result, err := Import(ctx, db, orgID, KindContacts, "contacts.xlsx", data)
	assert.ErrorIs(t, err, ErrAllRowsFailed)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Failed)

	var count int64
	db.Model(&models.Contact{}).Count(&count)
	assert.Zero(t, count)
}

func TestImportContacts_UpdatesByEmail(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()
	company, err := services.CreateCompany(db, orgID, services.CompanyInput{Name: "Globex"})
	require.NoError(t, err)

	data := workbook(t, [][]string{
		{"Société", "Prénom", "Nom", "E-mail", "Principal"},
		{"globex", "Ada", "Lovelace", "ada@globex.test", "oui"},
		{"Globex", "Ada", "King", "ADA@globex.test", "oui"},
		{"Globex", "Alan", "Turing", "", "non"},
	})
	result, err := Import(ctx, db, orgID, KindContacts, "contacts.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Updated)

	contacts, total, err := services.ListContacts(db, orgID, company.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, c := range contacts {
		if c.Email == "ada@globex.test" {
			assert.Equal(t, "King", c.LastName)
			assert.True(t, c.IsPrimary)
		}
	}
}

func TestImportTestimonials_ZipWithMedia(t *testing.T) {
	db, orgID := setupTestDB(t)
	useLocalStorage(t)
	ctx := testCtx()
	_, err := services.CreateCompany(db, orgID, services.CompanyInput{Name: "Globex"})
	require.NoError(t, err)

	sheet := workbook(t, [][]string{
		{"company*", "contact_name*", "content*", "rating", "published", "media_file"},
		{"Globex", "Marie Curie", "<p>Great <script>x</script>team</p>", "4", "yes", "photos/Marie.JPG"},
		{"Globex", "Pierre Curie", "Solid work", "", "", "missing.png"},
		{"Globex", "Irène", "Reliable", "9", "", ""},
		{"Globex", "Paul", "Fast", "", "no", ""},
	})
	archive := zipArchive(t, map[string][]byte{
		"import/testimonials.xlsx": sheet,
		"import/media/marie.jpg":   []byte("\xff\xd8\xff\xe0 fake jpeg"),
		"__MACOSX/._marie.jpg":     []byte("junk"),
	})

	result, err := Import(ctx, db, orgID, KindTestimonials, "testimonials.zip", archive)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.MediaUploaded)

	items, _, err := services.ListTestimonials(db, orgID, "", false, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		if item.ContactName != "Marie Curie" {
			assert.Empty(t, item.MediaKey)
			assert.Equal(t, 5, item.Rating)
			continue
		}
		assert.Equal(t, 4, item.Rating)
		assert.True(t, item.IsPublished)
		assert.NotContains(t, item.Content, "script")
		require.NotEmpty(t, item.MediaKey)

		rc, _, err := services.Storage.Get(ctx, item.MediaKey)
		require.NoError(t, err)
		content, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "\xff\xd8\xff\xe0 fake jpeg", string(content))
	}
}

func TestImport_RejectsBadUploads(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()
	var verr *services.ValidationError

	_, err := Import(ctx, db, orgID, KindCompanies, "clients.csv", []byte("name\nGlobex"))
	assert.ErrorAs(t, err, &verr)

	_, err = Import(ctx, db, orgID, "invoices", "x.xlsx", nil)
	assert.ErrorAs(t, err, &verr)

	book := workbook(t, [][]string{{"name"}, {"Globex"}})
	twoBooks := zipArchive(t, map[string][]byte{"a.xlsx": book, "b.xlsx": book})
	_, err = Import(ctx, db, orgID, KindCompanies, "data.zip", twoBooks)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "import.archive_workbook", verr.Fields["file"])

	_, err = Import(ctx, db, orgID, KindCompanies, "data.zip", []byte("not a zip"))
	assert.ErrorAs(t, err, &verr)

	noHeaders := workbook(t, [][]string{{"foo", "bar"}, {"1", "2"}})
	_, err = Import(ctx, db, orgID, KindContacts, "c.xlsx", noHeaders)
	var merr *MissingColumnsError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, []string{"company", "first_name", "last_name"}, merr.Missing)
	assert.Contains(t, merr.Message(ctx), "first_name")
}

func TestCompaniesWorkbook_RoundTrip(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()
	_, err := services.CreateCompany(db, orgID, services.CompanyInput{Name: "Globex", City: "Paris", Type: "CLIENT"})
	require.NoError(t, err)
	_, err = services.CreateCompany(db, orgID, services.CompanyInput{Name: "Acme", City: "Lyon"})
	require.NoError(t, err)

	buf, err := CompaniesWorkbook(ctx, db, orgID, services.CompanyFilters{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	f.Close()
	require.Len(t, rows, 3)
	assert.Equal(t, "Acme", rows[1][0])
	assert.Equal(t, "Lyon", rows[1][8])

	result, err := Import(ctx, db, orgID, KindCompanies, "export.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Zero(t, result.Created)
}

func TestTransactionsWorkbook(t *testing.T) {
	db, orgID := setupTestDB(t)
	ctx := testCtx()
	account, err := services.CreateBankAccount(db, orgID, services.BankAccountInput{Name: "Main"})
	require.NoError(t, err)
	for _, amount := range []float64{120.5, -40} {
		_, err := services.CreateTransaction(db, orgID, services.TransactionInput{
			AccountID: account.ID, Date: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), Label: "Line", Amount: amount,
		})
		require.NoError(t, err)
	}

	buf, err := TransactionsWorkbook(ctx, db, orgID, services.TransactionFilters{})
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Main", rows[1][4])
}
