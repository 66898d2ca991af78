// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package config loads and validates the application configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an optional
// YAML file, then environment variables (highest precedence). Environment
// variable names map to koanf paths with the first underscore becoming a dot:
// SERVER_PORT -> server.port, SECURITY_JWT_SECRET -> security.jwt_secret.
package config

import (
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Audit     AuditConfig     `koanf:"audit"`
	Upload    UploadConfig    `koanf:"upload"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Timeout is the per-request read/write deadline, the only time bound
	// applied to individual operations.
	Timeout time.Duration `koanf:"timeout"`

	// StaticDir is the directory with the SPA shell served by the
	// catch-all route. Empty disables static serving.
	StaticDir string `koanf:"static_dir"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`

	// MaxOpenConns bounds the connection pool; exhaustion queues rather
	// than rejects.
	MaxOpenConns int `koanf:"max_open_conns" validate:"min=1"`

	Threads int `koanf:"threads"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs bearer tokens. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=32"`

	// TokenExpiry is the default bearer token lifetime.
	TokenExpiry time.Duration `koanf:"token_expiry"`

	// RememberExpiry is the extended lifetime granted when the login
	// request asks to be remembered.
	RememberExpiry time.Duration `koanf:"remember_expiry"`

	// BcryptCost is the bcrypt work factor for new password hashes.
	BcryptCost int `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

// AuditConfig holds operation-log settings.
type AuditConfig struct {
	// RetentionDays is how long operation-log rows are kept before the
	// purge service removes them.
	RetentionDays int `koanf:"retention_days" validate:"min=1"`

	// PurgeInterval is how often the purge service runs.
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// UploadConfig holds photo upload settings.
type UploadConfig struct {
	// Dir is the root directory photo files are stored under. Records
	// reference files by path relative to this root.
	Dir string `koanf:"dir" validate:"required"`

	// MaxFileSize is the per-file upload limit in bytes.
	MaxFileSize int64 `koanf:"max_file_size" validate:"min=1"`

	// AllowedExtensions lists accepted image file extensions.
	AllowedExtensions []string `koanf:"allowed_extensions"`
}

// RateLimitConfig holds HTTP rate limiting settings.
type RateLimitConfig struct {
	// Disabled turns off all rate limiting (CI and test runs).
	Disabled bool `koanf:"disabled"`

	// RequestsPerMinute is the general per-IP API budget.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"min=1"`

	// LoginAttempts and LoginWindow bound login tries per IP.
	LoginAttempts int           `koanf:"login_attempts" validate:"min=1"`
	LoginWindow   time.Duration `koanf:"login_window"`
}

// LoggingConfig holds diagnostic logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3080,
			Timeout:     30 * time.Second,
			StaticDir:   "web/dist",
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path:         "/data/hazledger.duckdb",
			MaxMemory:    "1GB",
			MaxOpenConns: 10,
			Threads:      0, // 0 = runtime.NumCPU()
		},
		Security: SecurityConfig{
			JWTSecret:      "",
			TokenExpiry:    24 * time.Hour,
			RememberExpiry: 7 * 24 * time.Hour,
			BcryptCost:     10,
		},
		Audit: AuditConfig{
			RetentionDays: 90,
			PurgeInterval: 24 * time.Hour,
		},
		Upload: UploadConfig{
			Dir:               "/data/uploads",
			MaxFileSize:       10 << 20, // 10MB
			AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".webp"},
		},
		RateLimit: RateLimitConfig{
			Disabled:          false,
			RequestsPerMinute: 300,
			LoginAttempts:     5,
			LoginWindow:       5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
