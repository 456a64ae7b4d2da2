// Package config provides centralized configuration for the converter
// service. Settings come from environment variables with sensible defaults
// and are validated at startup so misconfiguration fails fast.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to.
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on.
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout caps how long reading a request body may take.
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout caps how long writing a response may take.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout.
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout applied to every request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections.
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of pooled connections.
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum age of a pooled connection.
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is how long a connection may sit idle.
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds file upload and session settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// PreviewRows caps how many rows upload responses echo back.
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"50"`

	// SessionTTL is how long a parsed upload stays available for
	// preview/convert calls.
	SessionTTL time.Duration `env:"UPLOAD_SESSION_TTL" default:"2h"`

	// SweepInterval is how often expired sessions are evicted.
	SweepInterval time.Duration `env:"UPLOAD_SWEEP_INTERVAL" default:"10m"`

	// ArtifactDir is where converted CSV artifacts are written.
	ArtifactDir string `env:"UPLOAD_ARTIFACT_DIR" default:"./artifacts"`
}

// RateLimitConfig holds per-IP request throttling settings.
type RateLimitConfig struct {
	// Enabled toggles rate limiting.
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the allowed request rate per client IP.
	RequestsPerMinute int `env:"RATE_LIMIT_RPM" default:"100"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is "text" or "json".
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.Database.MinConns)
	}
	if c.Upload.MaxFileSize < 1 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Upload.PreviewRows < 1 {
		return fmt.Errorf("UPLOAD_PREVIEW_ROWS must be positive, got %d", c.Upload.PreviewRows)
	}
	if c.Upload.SessionTTL <= 0 {
		return fmt.Errorf("UPLOAD_SESSION_TTL must be positive, got %s", c.Upload.SessionTTL)
	}
	if c.Rate.Enabled && c.Rate.RequestsPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.Rate.RequestsPerMinute)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.Logging.Format)
	}
	return nil
}
