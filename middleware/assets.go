package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// StaticAssets lists the files under the static directory that get a cache-busting version
var StaticAssets = []string{
	"css/app.css",
	"js/app.js",
}

var (
	assetVersions     map[string]string
	assetVersionsOnce sync.Once
	assetMu           sync.RWMutex
)

// InitAssetVersions computes file hashes for cache busting at startup
func InitAssetVersions(staticDir string) {
	assetVersionsOnce.Do(func() {
		versions := make(map[string]string, len(StaticAssets))
		for _, asset := range StaticAssets {
			versions[asset] = computeFileHash(filepath.Join(staticDir, asset))
		}
		assetMu.Lock()
		assetVersions = versions
		assetMu.Unlock()
		log.Printf("[INFO] Asset versions initialized: %d files", len(versions))
	})
}

// computeFileHash returns the first 8 characters of the MD5 hash of a file
func computeFileHash(path string) string {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("[WARNING] Failed to open file for hashing %s: %v", path, err)
		return ""
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		log.Printf("[WARNING] Failed to hash file %s: %v", path, err)
		return ""
	}

	return hex.EncodeToString(hash.Sum(nil))[:8]
}

// AssetURL returns the public URL of a static asset with its version query
func AssetURL(asset string) string {
	assetMu.RLock()
	version := assetVersions[asset]
	assetMu.RUnlock()
	if version == "" {
		version = "1"
	}
	return "/static/" + asset + "?v=" + version
}
