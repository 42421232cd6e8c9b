package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"biz_flow_app_go/config"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ReportRenderTimeout bounds one headless Chrome run
const ReportRenderTimeout = 30 * time.Second

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	Landscape    bool
	PageSize     string // A4, letter
	MarginTop    int    // points (72 = 1 inch)
	MarginBottom int
	MarginLeft   int
	MarginRight  int
}

// DefaultPDFOptions returns A4 portrait with 1.5cm margins
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:     "A4",
		MarginTop:    42,
		MarginBottom: 42,
		MarginLeft:   42,
		MarginRight:  42,
	}
}

// paperSize returns width and height in inches
func (o PDFOptions) paperSize() (float64, float64) {
	w, h := 8.27, 11.69
	if o.PageSize == "letter" {
		w, h = 8.5, 11.0
	}
	if o.Landscape {
		w, h = h, w
	}
	return w, h
}

// GeneratePDF renders an HTML document to PDF using headless Chrome
func GeneratePDF(ctx context.Context, chromePath, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	// headless-shell in Docker
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	ctx, timeoutCancel := context.WithTimeout(ctx, ReportRenderTimeout)
	defer timeoutCancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	paperWidth, paperHeight := options.paperSize()
	var pdfBuf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.Sleep(100*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(float64(options.MarginTop) / 72).
				WithMarginBottom(float64(options.MarginBottom) / 72).
				WithMarginLeft(float64(options.MarginLeft) / 72).
				WithMarginRight(float64(options.MarginRight) / 72).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfBuf, nil
}

// WrapReportHTML embeds a rendered report body in a printable page
func WrapReportHTML(title, body string) string {
	return `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>` + StripHTML(title) + `</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 10pt; color: #111827; }
h1 { font-size: 18pt; margin: 0 0 4pt 0; }
h2 { font-size: 12pt; margin: 18pt 0 6pt 0; border-bottom: 1px solid #d1d5db; padding-bottom: 2pt; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 4pt 6pt; border-bottom: 1px solid #e5e7eb; }
td.num, th.num { text-align: right; }
.muted { color: #6b7280; }
.over { color: #b91c1c; font-weight: bold; }
.badge { display: inline-block; padding: 1pt 6pt; border-radius: 8pt; background: #e5e7eb; font-size: 8pt; }
</style>
</head>
<body>
` + body + `
</body>
</html>`
}

// GenerateProjectReport prints a rendered project status report and stores it.
// Returns the PDF and its storage key.
func GenerateProjectReport(ctx context.Context, cfg *config.Config, organizationID, projectCode, title, body string) ([]byte, string, error) {
	pdf, err := GeneratePDF(ctx, cfg.ChromePath, WrapReportHTML(title, body), DefaultPDFOptions())
	if err != nil {
		return nil, "", err
	}
	key := GenerateReportKey(organizationID, projectCode)
	if _, err := Storage.UploadReader(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
		return nil, "", fmt.Errorf("failed to store report: %w", err)
	}
	return pdf, key, nil
}
