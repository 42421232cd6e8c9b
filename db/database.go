package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"biz_flow_app_go/config"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// localDSN enables WAL, foreign keys and a busy timeout so the request
// handlers and the scheduler can share the sqlite file
func localDSN(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	return path + "?" + q.Encode()
}

// tursoDSN appends the auth token to a libsql URL
func tursoDSN(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid TURSO_DATABASE_URL: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("authToken", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Initialize opens the database. A configured Turso URL takes precedence
// over the local sqlite file.
func Initialize(cfg *config.Config) error {
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		dialector gorm.Dialector
		backend   string
	)
	if cfg.TursoDatabaseURL != "" {
		dsn, err := tursoDSN(cfg.TursoDatabaseURL, cfg.TursoAuthToken)
		if err != nil {
			return err
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
		backend = "Turso/libsql"
	} else {
		dialector = sqlite.Open(localDSN(cfg.DBPath))
		backend = "sqlite " + cfg.DBPath
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	DB = conn
	log.Printf("[INFO] Database connection established (%s)", backend)
	return nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Printf("[INFO] Database migrations completed (%d models)", len(models))
	return nil
}

// Ping checks that the database answers within the context deadline
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
