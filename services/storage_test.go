package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"biz_flow_app_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()
	storage := NewLocalStorage(tempDir)
	ctx := context.Background()
	content := "%PDF-1.4 invoice"
	key := "organizations/org-1/invoices/INV-2026-00001.pdf"

	t.Run("UploadReader creates file", func(t *testing.T) {
		result, err := storage.UploadReader(ctx, strings.NewReader(content), key, "application/pdf", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, key, result.Key)
		assert.Equal(t, int64(len(content)), result.FileSize)

		_, err = os.Stat(filepath.Join(tempDir, key))
		assert.NoError(t, err)
	})

	t.Run("Get retrieves file content", func(t *testing.T) {
		reader, contentType, err := storage.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		got, _ := io.ReadAll(reader)
		assert.Equal(t, content, string(got))
		assert.Equal(t, "application/pdf", contentType)
	})

	t.Run("Signed URL is the public path", func(t *testing.T) {
		url, err := storage.GetSignedURL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, storage.GetPublicURL(key), url)
		assert.True(t, strings.HasSuffix(url, "INV-2026-00001.pdf"))
	})

	t.Run("Traversal is rejected", func(t *testing.T) {
		_, err := storage.UploadReader(ctx, strings.NewReader("x"), "../escape.txt", "text/plain", 1)
		assert.Error(t, err)
	})

	t.Run("Delete removes file and ignores missing", func(t *testing.T) {
		require.NoError(t, storage.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(tempDir, key))
		assert.True(t, os.IsNotExist(err))
		assert.NoError(t, storage.Delete(ctx, key))
	})
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentTypeFor("import.XLSX"))
	assert.Equal(t, "application/zip", ContentTypeFor("bundle.zip"))
	assert.Equal(t, "image/png", ContentTypeFor("photo.png"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("noext"))
}

func TestGenerateKeys(t *testing.T) {
	key := GenerateTestimonialMediaKey("org-1", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "organizations/org-1/testimonials/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, GenerateTestimonialMediaKey("org-1", "Photo.JPG"))

	assert.Equal(t, "organizations/org-1/invoices/INV-2026-00001.pdf", GenerateInvoiceKey("org-1", "INV-2026-00001"))
}

func TestInitializeStorage_LocalFallback(t *testing.T) {
	InitializeStorage(&config.Config{UploadDir: t.TempDir()})
	_, ok := Storage.(*LocalStorage)
	assert.True(t, ok)
}

func TestNewS3Storage_R2Endpoint(t *testing.T) {
	s, err := NewS3Storage(&config.Config{
		S3AccountID:       "acc",
		S3AccessKeyID:     "key",
		S3SecretAccessKey: "secret",
		S3BucketName:      "bucket",
		S3Region:          "auto",
		S3PublicURL:       "https://cdn.example.test/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/a/b.png", s.GetPublicURL("a/b.png"))
}
