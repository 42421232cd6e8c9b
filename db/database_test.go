package db

import (
	"context"
	"path/filepath"
	"testing"

	"biz_flow_app_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDSN(t *testing.T) {
	dsn := localDSN("db/app.db")
	assert.Contains(t, dsn, "db/app.db?")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestTursoDSN(t *testing.T) {
	dsn, err := tursoDSN("libsql://bizflow-acme.turso.io", "tok/en")
	require.NoError(t, err)
	assert.Equal(t, "libsql://bizflow-acme.turso.io?authToken=tok%2Fen", dsn)

	dsn, err = tursoDSN("libsql://bizflow-acme.turso.io", "")
	require.NoError(t, err)
	assert.Equal(t, "libsql://bizflow-acme.turso.io", dsn)
}

type sample struct {
	ID   uint
	Name string
}

func TestInitializeLocal(t *testing.T) {
	t.Cleanup(func() {
		_ = Close()
		DB = nil
	})
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db"), Environment: "production"}

	require.NoError(t, Initialize(cfg))
	require.NoError(t, AutoMigrate(&sample{}))
	require.NoError(t, Ping(context.Background()))

	require.NoError(t, DB.Create(&sample{Name: "ok"}).Error)
	var count int64
	DB.Model(&sample{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestNotInitialized(t *testing.T) {
	DB = nil
	assert.Error(t, AutoMigrate(&sample{}))
	assert.Error(t, Ping(context.Background()))
	assert.NoError(t, Close())
}
