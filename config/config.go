package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// MinSessionSecretLength is the minimum required length for session secret in production
	MinSessionSecretLength = 32
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" env-default:"8080"`
	DBPath      string `env:"DB_PATH" env-default:"db/app.db"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	UploadDir   string `env:"UPLOAD_DIR" env-default:"static/uploads"`
	AppURL      string `env:"APP_URL" env-default:"http://localhost:8080"`

	// Turso (remote libsql). When set, DBPath is ignored.
	TursoDatabaseURL string `env:"TURSO_DATABASE_URL"`
	TursoAuthToken   string `env:"TURSO_AUTH_TOKEN"`

	SessionSecret string `env:"SESSION_SECRET"`

	// API bearer tokens
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" env-default:"24h"`

	// Email (Resend)
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" env-default:"noreply@bizflow.app"`
	EmailFromName string `env:"EMAIL_FROM_NAME" env-default:"BizFlow"`
	EmailTestMode bool   `env:"EMAIL_TEST_MODE" env-default:"true"` // logs emails instead of sending

	// S3-compatible object storage (Cloudflare R2, AWS S3, MinIO)
	S3AccountID       string `env:"S3_ACCOUNT_ID"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" env-default:"auto"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `env:"S3_BUCKET_NAME"`
	S3PublicURL       string `env:"S3_PUBLIC_URL"`

	// Base64 AES-256 key sealing bank account IBANs at rest
	DataEncryptionKey string `env:"DATA_ENCRYPTION_KEY"`

	// Headless Chrome for report PDFs
	ChromePath string `env:"CHROME_PATH"`

	DefaultLocale   string `env:"DEFAULT_LOCALE" env-default:"fr"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" env-default:"EUR"`
	Timezone        string `env:"TIMEZONE" env-default:"Europe/Paris"`

	AllowedOriginsRaw string   `env:"ALLOWED_ORIGINS" env-default:"*"`
	AllowedOrigins    []string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	ValidateSessionSecret(cfg.SessionSecret, cfg.Environment)

	// In development, generate a secure secret if none provided
	if cfg.SessionSecret == "" && !cfg.IsProduction() {
		cfg.SessionSecret = GenerateSecureSecret()
		log.Println("[INFO] Generated temporary session secret for development. Set SESSION_SECRET env var for persistence.")
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("[CRITICAL] JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = cfg.SessionSecret
	}

	cfg.AllowedOrigins = splitList(cfg.AllowedOriginsRaw)
	return &cfg
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StorageConfigured reports whether remote object storage credentials are complete
func (c *Config) StorageConfigured() bool {
	hasEndpoint := c.S3AccountID != "" || c.S3Endpoint != ""
	return hasEndpoint && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3BucketName != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateSessionSecret validates the session secret meets security requirements
// In production, it must be at least 32 bytes and not a known insecure default
func ValidateSessionSecret(secret string, environment string) error {
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				log.Fatal("[CRITICAL] SESSION_SECRET is set to an insecure default value. Generate a secure random secret with: openssl rand -base64 32")
			}
			log.Printf("[WARNING] SESSION_SECRET is set to an insecure default value. This is acceptable only in development.")
			return nil
		}
	}

	if environment == "production" && len(secret) < MinSessionSecretLength {
		log.Fatalf("[CRITICAL] SESSION_SECRET must be at least %d characters in production (current: %d). Generate with: openssl rand -base64 32", MinSessionSecretLength, len(secret))
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret
// This is used only for development when no secret is provided
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("[WARNING] Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
