package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions()
	w, h := opts.paperSize()
	assert.Equal(t, 8.27, w)
	assert.Equal(t, 11.69, h)

	opts.Landscape = true
	opts.PageSize = "letter"
	w, h = opts.paperSize()
	assert.Equal(t, 11.0, w)
	assert.Equal(t, 8.5, h)
}

func TestWrapReportHTML(t *testing.T) {
	html := WrapReportHTML("<b>PRJ-2026-0001</b>", "<h1>Status</h1>")
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<title>PRJ-2026-0001</title>")
	assert.Contains(t, html, "<h1>Status</h1>")
}

func TestGeneratePDFSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	pdf, err := GeneratePDF(context.Background(), chromePath, WrapReportHTML("t", "<h1>Hello</h1>"), DefaultPDFOptions())
	if err != nil {
		if os.IsNotExist(err) {
			t.Skipf("Skipping: Chrome not found at %s", chromePath)
		}
		t.Fatalf("GeneratePDF failed: %v", err)
	}
	assert.Contains(t, string(pdf[:5]), "%PDF-")
}
