package importer

import (
	"bytes"
	"context"
	"fmt"

	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// MaxExportRows caps the size of one export
const MaxExportRows = 10000

// Export kinds
const (
	ExportCompanies    = "companies"
	ExportTransactions = "transactions"
)

// newExportSheet creates a workbook with one styled header row
func newExportSheet(ctx context.Context, sheetKey string, headers []string) (*excelize.File, string) {
	f := excelize.NewFile()
	sheet := i18n.T(ctx, sheetKey)
	f.SetSheetName("Sheet1", sheet)
	for i, h := range headers {
		f.SetCellValue(sheet, cellName(i+1, 1), h)
	}
	f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), headerStyle(f))
	f.SetColWidth(sheet, "A", cellColumn(len(headers)), 18)
	freezeHeader(f, sheet)
	return f, sheet
}

// CompaniesWorkbook exports companies with the same headers the import reads,
// so an export can be edited and imported back
func CompaniesWorkbook(ctx context.Context, db *gorm.DB, organizationID string, filters services.CompanyFilters) (*bytes.Buffer, error) {
	companies, _, err := services.ListCompanies(db, organizationID, filters, 1, MaxExportRows)
	if err != nil {
		return nil, err
	}

	headers := make([]string, 0, len(Schemas[KindCompanies]))
	for _, field := range Schemas[KindCompanies] {
		headers = append(headers, field.Key)
	}
	f, sheet := newExportSheet(ctx, "import.sheets.companies", headers)
	defer f.Close()

	for i, c := range companies {
		values := []interface{}{c.Name, c.LegalID, c.Type, c.Industry, c.Email, c.Phone, c.Website, c.Address, c.City, c.Country}
		for col, v := range values {
			f.SetCellValue(sheet, cellName(col+1, i+2), v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// TransactionsWorkbook exports the transactions matching the filters, most recent first
func TransactionsWorkbook(ctx context.Context, db *gorm.DB, organizationID string, filters services.TransactionFilters) (*bytes.Buffer, error) {
	txs, _, err := services.ListTransactions(db, organizationID, filters, 1, MaxExportRows)
	if err != nil {
		return nil, err
	}

	headers := []string{
		i18n.T(ctx, "treasury.fields.date"),
		i18n.T(ctx, "treasury.fields.label"),
		i18n.T(ctx, "treasury.fields.kind"),
		i18n.T(ctx, "treasury.fields.amount"),
		i18n.T(ctx, "treasury.fields.account"),
		i18n.T(ctx, "treasury.fields.category"),
		i18n.T(ctx, "treasury.fields.reference"),
		i18n.T(ctx, "treasury.fields.reconciled"),
	}
	f, sheet := newExportSheet(ctx, "import.sheets.transactions", headers)
	defer f.Close()

	dateStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 14})
	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})
	yes, no := i18n.T(ctx, "common.yes"), i18n.T(ctx, "common.no")

	for i, t := range txs {
		r := i + 2
		account, category := "", ""
		if t.Account != nil {
			account = t.Account.Name
		}
		if t.Category != nil {
			category = t.Category.Name
		}
		reconciled := no
		if t.Reconciled {
			reconciled = yes
		}
		f.SetCellValue(sheet, cellName(1, r), t.Date)
		f.SetCellValue(sheet, cellName(2, r), t.Label)
		f.SetCellValue(sheet, cellName(3, r), i18n.T(ctx, "treasury.kinds."+t.Kind))
		f.SetCellValue(sheet, cellName(4, r), models.RoundCents(t.Amount))
		f.SetCellValue(sheet, cellName(5, r), account)
		f.SetCellValue(sheet, cellName(6, r), category)
		f.SetCellValue(sheet, cellName(7, r), t.Reference)
		f.SetCellValue(sheet, cellName(8, r), reconciled)
	}
	if len(txs) > 0 {
		f.SetCellStyle(sheet, "A2", cellName(1, len(txs)+1), dateStyle)
		f.SetCellStyle(sheet, "D2", cellName(4, len(txs)+1), amountStyle)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
