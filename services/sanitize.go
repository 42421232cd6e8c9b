package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richTextPolicy  = bluemonday.UGCPolicy()
	plainTextPolicy = bluemonday.StrictPolicy()
)

// SanitizeRichText keeps safe formatting tags from user-supplied HTML (notes, descriptions, testimonials)
func SanitizeRichText(html string) string {
	return strings.TrimSpace(richTextPolicy.Sanitize(html))
}

// StripHTML removes every tag, used for plain-text fields and PDF output
func StripHTML(html string) string {
	return strings.TrimSpace(plainTextPolicy.Sanitize(html))
}
