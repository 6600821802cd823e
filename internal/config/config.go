// Package config provides centralized configuration management for the
// migration tool. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Fetch    FetchConfig
	Migrate  MigrateConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// FetchConfig holds remote spreadsheet download settings.
type FetchConfig struct {
	// CredentialsFile is the path to a service-account JSON key used for
	// the authenticated download path. When empty, only the direct
	// unauthenticated export path is attempted.
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// DownloadTimeout is the hard wall-clock limit for a single download (default: 30s)
	DownloadTimeout time.Duration `env:"FETCH_DOWNLOAD_TIMEOUT" default:"30s"`

	// ProbeTimeout is the limit for the lightweight accessibility probe (default: 10s)
	ProbeTimeout time.Duration `env:"FETCH_PROBE_TIMEOUT" default:"10s"`
}

// MigrateConfig holds pipeline processing settings.
type MigrateConfig struct {
	// BatchSize is the number of records per bulk insert (default: 1000)
	BatchSize int `env:"MIGRATE_BATCH_SIZE" default:"1000"`

	// StreamingBatchSize is the micro-batch size used by the streaming
	// strategy for very large sheets (default: 10)
	StreamingBatchSize int `env:"MIGRATE_STREAMING_BATCH_SIZE" default:"10"`

	// LargeThreshold is the row count above which the streaming strategy
	// is selected instead of the in-memory one (default: 100000)
	LargeThreshold int `env:"MIGRATE_LARGE_THRESHOLD" default:"100000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
