package services

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"biz_flow_app_go/models"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
)

// PaymentQRPayload builds the EPC (SEPA credit transfer) QR payload of an invoice.
// Returns "" when the organization has no IBAN or the invoice is not in euros.
func PaymentQRPayload(org *models.Organization, inv *models.Invoice) string {
	if org == nil || org.IBAN == "" || inv.Currency != "EUR" || inv.Total <= 0 {
		return ""
	}
	name := org.Name
	if len(name) > 70 {
		name = name[:70]
	}
	return strings.Join([]string{
		"BCD", "002", "1", "SCT", "",
		name,
		org.IBAN,
		fmt.Sprintf("EUR%.2f", inv.Total),
		"", "",
		inv.Number,
	}, "\n")
}

// GenerateInvoicePDF renders an invoice on one or more A4 pages.
// Labels are looked up through tr so the document follows the recipient's language.
func GenerateInvoicePDF(org *models.Organization, inv *models.Invoice, tr func(key string) string) ([]byte, error) {
	if inv.Number == "" {
		return nil, fmt.Errorf("invoice has no number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inv.Number, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	enc := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// Issuer
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW/2, 8, enc(org.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentW/2, 8, enc(strings.ToUpper(tr("invoice.title"))), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{org.Address, org.LegalID, org.BillingEmail} {
		if strings.TrimSpace(line) != "" {
			pdf.CellFormat(contentW, 4.5, enc(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	// Number and dates
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 6, enc(tr("invoice.number")+": "+inv.Number), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, enc(tr("invoice.issue_date")+": "+inv.IssueDate.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, enc(tr("invoice.due_date")+": "+inv.DueDate.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	// Recipient
	if inv.Company != nil {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 6, enc(inv.Company.Name), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		address := strings.TrimSpace(strings.Join([]string{inv.Company.Address, inv.Company.City, inv.Company.Country}, " "))
		for _, line := range []string{address, inv.Company.LegalID} {
			if line != "" {
				pdf.CellFormat(contentW, 4.5, enc(line), "", 1, "L", false, 0, "")
			}
		}
	}
	if inv.Project != nil {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 5, enc(tr("invoice.project")+": "+inv.Project.Code+" "+inv.Project.Name), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Lines
	cols := []float64{contentW * 0.52, contentW * 0.14, contentW * 0.17, contentW * 0.17}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, header := range []string{"invoice.description", "invoice.quantity", "invoice.unit_price", "invoice.line_total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 7, enc(tr(header)), "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range inv.Lines {
		pdf.CellFormat(cols[0], 6, enc(line.Description), "B", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, FormatQuantity(line.Quantity), "B", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 6, enc(FormatMoney(line.UnitPrice, inv.Currency)), "B", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 6, enc(FormatMoney(line.Total, inv.Currency)), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// Totals
	labelW := cols[0] + cols[1] + cols[2]
	totals := []struct {
		key    string
		amount float64
		bold   bool
	}{
		{"invoice.subtotal", inv.Subtotal, false},
		{"invoice.tax", inv.TaxAmount, false},
		{"invoice.total", inv.Total, true},
	}
	for _, row := range totals {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		label := tr(row.key)
		if row.key == "invoice.tax" {
			label = fmt.Sprintf("%s (%s%%)", label, FormatQuantity(inv.TaxRate))
		}
		pdf.CellFormat(labelW, 6, enc(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 6, enc(FormatMoney(row.amount, inv.Currency)), "", 1, "R", false, 0, "")
	}

	if strings.TrimSpace(inv.Notes) != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 4.5, enc(StripHTML(inv.Notes)), "", "L", false)
	}

	// Payment block: QR transfer code and the invoice reference as a barcode
	pdf.Ln(6)
	y := pdf.GetY()
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	if payload := PaymentQRPayload(org, inv); payload != "" {
		qrPNG, err := renderQRPNG(payload, 300)
		if err != nil {
			return nil, err
		}
		pdf.RegisterImageOptionsReader("payment-qr", opt, bytes.NewReader(qrPNG))
		pdf.ImageOptions("payment-qr", 15, y, 32, 32, false, opt, 0, "")
		pdf.SetXY(50, y+4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW-35, 4.5, enc(tr("invoice.payment_instructions")+"\nIBAN: "+org.IBAN), "", "L", false)
	}

	refPNG, err := renderCode128PNG(inv.Number, 600, 120)
	if err != nil {
		return nil, err
	}
	pdf.RegisterImageOptionsReader("invoice-ref", opt, bytes.NewReader(refPNG))
	pdf.ImageOptions("invoice-ref", pageW-15-60, y, 60, 12, false, opt, 0, "")
	pdf.SetXY(pageW-15-60, y+13)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(60, 4, inv.Number, "", 1, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return out.Bytes(), nil
}

func renderQRPNG(payload string, size int) ([]byte, error) {
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	return scaleToPNG(code, size, size)
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	return scaleToPNG(code, width, height)
}

func scaleToPNG(code barcode.Barcode, width, height int) ([]byte, error) {
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	normalized := image.NewNRGBA(bounds)
	draw.Draw(normalized, bounds, scaled, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
