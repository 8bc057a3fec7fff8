// Package config provides centralized configuration management for the gateway.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Classifier ClassifierConfig
	Upload     UploadConfig
	Predict    PredictConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Aliases    AliasConfig
	History    HistoryConfig
	Storage    StorageConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, retrains can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// ClassifierConfig holds settings for the remote classification service.
type ClassifierConfig struct {
	// BaseURL is the service address (default: http://localhost:8000)
	// Supports both CLASSIFIER_BASE_URL and API_BASE env vars
	BaseURL string `env:"CLASSIFIER_BASE_URL" envAlt:"API_BASE" default:"http://localhost:8000"`

	// Timeout bounds one request to the service (default: 120s)
	Timeout time.Duration `env:"CLASSIFIER_TIMEOUT" default:"120s"`

	// MaxResponseBytes caps the size of a service reply (default: 10MB)
	MaxResponseBytes int64 `env:"CLASSIFIER_MAX_RESPONSE_BYTES" default:"10485760"`
}

// UploadConfig holds training file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel retrains (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a retrain slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// PredictConfig holds prediction request settings.
type PredictConfig struct {
	// MinTextLength is the minimum number of characters in a prediction request (default: 10)
	MinTextLength int `env:"PREDICT_MIN_TEXT_LENGTH" default:"10"`

	// MaxUnits caps classification units per request (default: 500)
	MaxUnits int `env:"PREDICT_MAX_UNITS" default:"500"`

	// MaxBodyBytes caps the JSON request body (default: 1MB)
	MaxBodyBytes int64 `env:"PREDICT_MAX_BODY_BYTES" default:"1048576"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for retrain endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AliasConfig holds column alias settings.
type AliasConfig struct {
	// File is an optional YAML file extending the built-in column aliases
	File string `env:"COLUMN_ALIASES_FILE"`
}

// HistoryConfig holds training run history settings.
type HistoryConfig struct {
	// DatabaseURL is the PostgreSQL connection string; empty disables history
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// RetentionDays is how long training runs are kept (default: 180)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"180"`

	// CheckInterval is how often the retention job runs (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`
}

// Enabled reports whether a database is configured.
func (c *HistoryConfig) Enabled() bool { return c.DatabaseURL != "" }

// StorageConfig holds object storage settings for retraining from stored files.
type StorageConfig struct {
	// Bucket is the S3 bucket holding training files; empty disables object retrains
	Bucket string `env:"S3_BUCKET"`

	// Region is the S3 region (default: us-east-1)
	Region string `env:"S3_REGION" default:"us-east-1"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO
	Endpoint string `env:"S3_ENDPOINT"`

	// MaxObjectSize caps the size of a fetched object (default: 20MB)
	MaxObjectSize int64 `env:"S3_MAX_OBJECT_SIZE" default:"20971520"`
}

// Enabled reports whether a bucket is configured.
func (c *StorageConfig) Enabled() bool { return c.Bucket != "" }

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
