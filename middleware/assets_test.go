package middleware

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFileHash(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.css")
	require.NoError(t, os.WriteFile(tmpFile, []byte("body { color: red; }"), 0644))

	hash := computeFileHash(tmpFile)
	assert.Len(t, hash, 8)
	assert.Equal(t, hash, computeFileHash(tmpFile))

	assert.Empty(t, computeFileHash("non_existent_file.css"))
}

func TestAssetURL(t *testing.T) {
	assert.Equal(t, "/static/unknown.js?v=1", AssetURL("unknown.js"))
	assert.True(t, strings.HasPrefix(AssetURL("css/app.css"), "/static/css/app.css?v="))
}
