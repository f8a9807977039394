// Package config resolves process configuration once at startup. The
// resulting Config is treated as immutable and injected into services.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// BackendURL is the base URL of the prediction service; /predict is appended.
	BackendURL string `koanf:"backend_url" validate:"required,url"`

	// BackendHealthPath is probed by GET /health. The reference backend answers on "/".
	BackendHealthPath string `koanf:"backend_health_path"`

	// RequestTimeout bounds one prediction call.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// SessionTTL expires assessment sessions idle for longer than this.
	SessionTTL time.Duration `koanf:"session_ttl" validate:"gt=0"`

	// DatabaseURL enables the PostgreSQL audit log. Empty keeps it in memory.
	DatabaseURL string `koanf:"database_url"`

	// AuditCapacity bounds the in-memory audit log.
	AuditCapacity int `koanf:"audit_capacity" validate:"gt=0"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogPretty switches to human-readable console output.
	LogPretty bool `koanf:"log_pretty"`

	// Env is informational (development, production).
	Env string `koanf:"env"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:              ":8080",
		BackendURL:        "http://localhost:8000",
		BackendHealthPath: "/",
		RequestTimeout:    30 * time.Second,
		SessionTTL:        30 * time.Minute,
		AuditCapacity:     1000,
		LogLevel:          "info",
		Env:               "development",
	}
}
