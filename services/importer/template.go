package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"biz_flow_app_go/services"
	"biz_flow_app_go/services/i18n"

	"github.com/xuri/excelize/v2"
)

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	return style
}

func freezeHeader(f *excelize.File, sheet string) {
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// GenerateTemplate builds the downloadable workbook of an import kind: an
// instructions sheet documenting every column, and a data sheet with the
// headers and one example row.
func GenerateTemplate(ctx context.Context, kind string) (*bytes.Buffer, error) {
	fields, ok := Schemas[kind]
	if !ok {
		return nil, services.NewValidationError("kind", "validation.import_kind")
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetInstructions := i18n.T(ctx, "import.sheets.instructions")
	f.SetSheetName("Sheet1", sheetInstructions)

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellValue(sheetInstructions, "A1", i18n.T(ctx, "import.instructions.title", map[string]interface{}{"kind": i18n.T(ctx, "import.kinds."+kind)}))
	f.SetCellStyle(sheetInstructions, "A1", "A1", titleStyle)

	notes := []string{
		i18n.T(ctx, "import.instructions.required"),
		i18n.T(ctx, "import.instructions.headers"),
		i18n.T(ctx, "import.instructions.companies_match"),
	}
	if kind == KindTestimonials {
		notes = append(notes, i18n.T(ctx, "import.instructions.zip"))
	}
	row := 3
	for _, note := range notes {
		f.SetCellValue(sheetInstructions, cellName(1, row), "- "+note)
		row++
	}

	row++
	columnHeaders := []string{
		i18n.T(ctx, "import.instructions.column"),
		i18n.T(ctx, "import.instructions.mandatory"),
		i18n.T(ctx, "import.instructions.synonyms"),
		i18n.T(ctx, "import.instructions.example"),
	}
	for i, h := range columnHeaders {
		f.SetCellValue(sheetInstructions, cellName(i+1, row), h)
	}
	f.SetCellStyle(sheetInstructions, cellName(1, row), cellName(len(columnHeaders), row), headerStyle(f))
	for _, field := range fields {
		row++
		required := i18n.T(ctx, "common.no")
		if field.Required {
			required = i18n.T(ctx, "common.yes")
		}
		f.SetCellValue(sheetInstructions, cellName(1, row), field.Key)
		f.SetCellValue(sheetInstructions, cellName(2, row), required)
		f.SetCellValue(sheetInstructions, cellName(3, row), strings.Join(field.Synonyms, ", "))
		f.SetCellValue(sheetInstructions, cellName(4, row), field.Example)
	}
	f.SetColWidth(sheetInstructions, "A", "A", 28)
	f.SetColWidth(sheetInstructions, "B", "B", 14)
	f.SetColWidth(sheetInstructions, "C", "D", 40)

	sheetData := i18n.T(ctx, "import.sheets.data")
	if _, err := f.NewSheet(sheetData); err != nil {
		return nil, fmt.Errorf("failed to create data sheet: %w", err)
	}
	for i, field := range fields {
		header := field.Key
		if field.Required {
			header += "*"
		}
		f.SetCellValue(sheetData, cellName(i+1, 1), header)
		f.SetCellValue(sheetData, cellName(i+1, 2), field.Example)
	}
	f.SetCellStyle(sheetData, "A1", cellName(len(fields), 1), headerStyle(f))
	f.SetColWidth(sheetData, "A", cellColumn(len(fields)), 22)
	freezeHeader(f, sheetData)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func cellColumn(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
