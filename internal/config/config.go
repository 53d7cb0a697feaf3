// Package config provides centralized configuration management for the application.
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
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds settings for the backing relational store.
type DatabaseConfig struct {
	// Driver selects the store implementation: sqlite or postgres (default: sqlite)
	Driver string `env:"DB_DRIVER" default:"sqlite"`

	// URL is the store location: a file path for sqlite, a connection string for postgres.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections for postgres (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// EngineConfig holds settings for the administration engine itself.
type EngineConfig struct {
	// Preset names a built-in rule table: shop, draft or none (default: none)
	Preset string `env:"ENGINE_PRESET" default:"none"`

	// RulesFile is an optional YAML rule table merged over the preset
	RulesFile string `env:"ENGINE_RULES_FILE"`

	// ReportFile is where saved reports are written (default: report.txt)
	ReportFile string `env:"ENGINE_REPORT_FILE" default:"report.txt"`

	// ReportFormat is the default report format: text, table, json or yaml (default: text)
	ReportFormat string `env:"ENGINE_REPORT_FORMAT" default:"text"`

	// SampleLimit is the number of sample rows per table in reports (default: 5)
	SampleLimit int `env:"ENGINE_SAMPLE_LIMIT" default:"5"`

	// AddressBy selects how Edit/Delete find their row: key or row (default: key)
	AddressBy string `env:"ENGINE_ADDRESS_BY" default:"key"`

	// AuditCapacity is the number of recent audit entries kept in memory (default: 200)
	AuditCapacity int `env:"ENGINE_AUDIT_CAPACITY" default:"200"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey guards mutating API routes with X-API-Key (default: false)
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

	// SeqURL enables shipping logs to a Seq server when set
	SeqURL string `env:"LOG_SEQ_URL"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
