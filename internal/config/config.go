// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Storage drivers.
const (
	DriverMinio  = "minio"
	DriverGCS    = "gcs"
	DriverMemory = "memory"
)

// MaxSlotTTL is the longest lifetime a delegated upload credential may have.
const MaxSlotTTL = time.Hour

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// Object storage. MinIO/S3 uses the Storage* fields, GCS the GCS* fields.
	StorageDriver    string
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool

	GCSCredentialsFile   string
	GCSSigningEmail      string
	GCSSigningPrivateKey string

	// Upload limits
	UploadMaxBytes        int64
	UploadMaxRequestBytes int64
	UploadSlotTTL         time.Duration

	JWTSecret          string // empty disables the bearer gate
	CORSAllowedOrigins []string
	HTTPWriteTimeout   time.Duration

	TracingEnabled     bool
	TracingEndpoint    string
	TracingSampleRatio float64

	errs []error
}

// Load reads configuration from a .env file (if present) and environment variables.
// Malformed values fall back to defaults and are reported by Validate.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment")
	}

	c := &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", DriverMinio)),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "attachments"),
		StorageRegion:    getEnv("STORAGE_REGION", ""),

		GCSCredentialsFile:   getEnv("GCS_CREDENTIALS_FILE", ""),
		GCSSigningEmail:      getEnv("GCS_SIGNING_EMAIL", ""),
		GCSSigningPrivateKey: getEnv("GCS_SIGNING_PRIVATE_KEY", ""),

		JWTSecret:          getEnv("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TracingEndpoint:    getEnv("TRACING_ENDPOINT", ""),
	}
	c.StorageUseSSL = c.envBool("STORAGE_USE_SSL", false)
	c.UploadMaxBytes = c.envInt64("UPLOAD_MAX_BYTES", 100<<20)
	c.UploadMaxRequestBytes = c.envInt64("UPLOAD_MAX_REQUEST_BYTES", 1<<30)
	c.UploadSlotTTL = c.envDuration("UPLOAD_SLOT_TTL", 5*time.Minute)
	c.HTTPWriteTimeout = c.envDuration("HTTP_WRITE_TIMEOUT", 15*time.Minute)
	c.TracingEnabled = c.envBool("TRACING_ENABLED", false)
	c.TracingSampleRatio = c.envFloat("TRACING_SAMPLE_RATIO", 1)
	return c
}

// Validate reports malformed or out-of-range settings.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.errs...)
	switch c.StorageDriver {
	case DriverMinio, DriverGCS, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", c.StorageDriver))
	}
	if c.StorageBucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET: required"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES: must be positive"))
	}
	if c.UploadMaxRequestBytes < c.UploadMaxBytes {
		errs = append(errs, errors.New("UPLOAD_MAX_REQUEST_BYTES: must be at least UPLOAD_MAX_BYTES"))
	}
	if c.UploadSlotTTL <= 0 || c.UploadSlotTTL > MaxSlotTTL {
		errs = append(errs, fmt.Errorf("UPLOAD_SLOT_TTL: must be in (0, %s]", MaxSlotTTL))
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATIO: must be in [0, 1]"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (c *Config) envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (c *Config) envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (c *Config) envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}
