package services

import (
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	MaxImportSize = 20 * 1024 * 1024 // 20MB, archives carry media
	MaxMediaSize  = 10 * 1024 * 1024
)

var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
	".mp4": true, ".webm": true, ".mov": true,
}

// ValidateImportUpload accepts .xlsx workbooks and .zip archives within the size limit
func ValidateImportUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxImportSize {
		return NewValidationError("file", "validation.file_too_large")
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".zip" {
		return NewValidationError("file", "validation.import_extension")
	}
	return nil
}

// IsMediaFile reports whether the file name has an accepted image or video extension
func IsMediaFile(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// ValidateMediaUpload checks testimonial media uploads
func ValidateMediaUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxMediaSize {
		return NewValidationError("media", "validation.file_too_large")
	}
	if !IsMediaFile(fileHeader.Filename) {
		return NewValidationError("media", "validation.media_extension")
	}
	return nil
}
