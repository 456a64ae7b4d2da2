package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 104857600)
	}
	if cfg.Upload.PreviewRows != 50 {
		t.Errorf("Upload.PreviewRows = %d, want %d", cfg.Upload.PreviewRows, 50)
	}
	if cfg.Upload.SessionTTL != 2*time.Hour {
		t.Errorf("Upload.SessionTTL = %s, want 2h", cfg.Upload.SessionTTL)
	}
	if !cfg.Rate.Enabled || cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate = %+v, want enabled at 100 rpm", cfg.Rate)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_SESSION_TTL", "30m")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Upload.SessionTTL != 30*time.Minute {
		t.Errorf("Upload.SessionTTL = %s, want 30m", cfg.Upload.SessionTTL)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/alt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/alt" {
		t.Errorf("Database.URL = %q, want alt value", cfg.Database.URL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded without DATABASE_URL")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "SERVER_PORT", "not-a-number"},
		{"port out of range", "SERVER_PORT", "99999"},
		{"bad duration", "UPLOAD_SESSION_TTL", "tomorrow"},
		{"bad bool", "RATE_LIMIT_ENABLED", "maybe"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
