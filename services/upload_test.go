package services

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImportUpload(t *testing.T) {
	assert.NoError(t, ValidateImportUpload(&multipart.FileHeader{Filename: "companies.XLSX", Size: 1024}))
	assert.NoError(t, ValidateImportUpload(&multipart.FileHeader{Filename: "bundle.zip", Size: 1024}))
	assert.Error(t, ValidateImportUpload(&multipart.FileHeader{Filename: "companies.csv", Size: 1024}))
	assert.Error(t, ValidateImportUpload(&multipart.FileHeader{Filename: "big.zip", Size: MaxImportSize + 1}))
}

func TestValidateMediaUpload(t *testing.T) {
	assert.NoError(t, ValidateMediaUpload(&multipart.FileHeader{Filename: "face.jpg", Size: 10}))
	assert.Error(t, ValidateMediaUpload(&multipart.FileHeader{Filename: "script.exe", Size: 10}))
	assert.True(t, IsMediaFile("clip.MP4"))
	assert.False(t, IsMediaFile("notes.txt"))
}
