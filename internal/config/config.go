// Package config provides centralized configuration management for the export service.
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
	Upstream UpstreamConfig
	Export   ExportConfig
	Database DatabaseConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must outlast the longest export (default: 6m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"6m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-export requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UpstreamConfig holds settings for the recruitment platform admin API.
type UpstreamConfig struct {
	// BaseURL is the admin API root, e.g. https://api.example.com/v1 (required)
	BaseURL string `env:"ATS_API_URL" envAlt:"API_BASE_URL" required:"true"`

	// Token is sent as a bearer token on every request
	Token string `env:"ATS_API_TOKEN"`

	// Timeout applies to each upstream HTTP request (default: 20s)
	Timeout time.Duration `env:"ATS_API_TIMEOUT" default:"20s"`

	// UserAgent identifies this service to the API
	UserAgent string `env:"ATS_API_USER_AGENT" default:"ats-export/1.0"`
}

// ExportConfig holds export pipeline settings.
type ExportConfig struct {
	// PageSize is candidates per listing request (default: 100)
	PageSize int `env:"EXPORT_PAGE_SIZE" default:"100"`

	// MaxPages is the pagination ceiling (default: 100, i.e. 10,000 candidates)
	MaxPages int `env:"EXPORT_MAX_PAGES" default:"100"`

	// BatchWidth is the number of concurrent detail requests (default: 5)
	BatchWidth int `env:"EXPORT_BATCH_WIDTH" default:"5"`

	// DetailTimeout bounds a single detail request (default: 15s)
	DetailTimeout time.Duration `env:"EXPORT_DETAIL_TIMEOUT" default:"15s"`

	// RunTimeout bounds a whole export run (default: 5m)
	RunTimeout time.Duration `env:"EXPORT_RUN_TIMEOUT" default:"5m"`

	// MaxConcurrent is the number of exports allowed to run at once (default: 2)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for an export slot (default: 10s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"10s"`

	// PresetsFile is an optional YAML file of named column selections
	PresetsFile string `env:"EXPORT_PRESETS_FILE"`
}

// DatabaseConfig holds database connection settings for export history.
// History is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// HistoryConfig holds export history retention settings.
type HistoryConfig struct {
	// RetentionDays is how long export runs are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// PurgeInterval is how often old runs are purged (default: 24h)
	PurgeInterval time.Duration `env:"HISTORY_PURGE_INTERVAL" default:"24h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HistoryEnabled reports whether a database is configured for export history.
func (c *Config) HistoryEnabled() bool {
	return c.Database.URL != ""
}
