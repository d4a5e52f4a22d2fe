// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and FIRESAFE_* env vars.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL selects the relational backend when set; empty means in-memory.
	DatabaseURL string `koanf:"database_url"`

	// DBAutoMigrate applies pending schema migrations at startup.
	DBAutoMigrate bool `koanf:"db_auto_migrate"`

	// DBMaxOpenConns bounds the relational connection pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DefaultLeaderboardLimit applies when GET /api/leaderboard/{gameKey} omits limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxLeaderboardLimit caps GET /api/leaderboard/{gameKey}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RequestTimeoutMS bounds how long a single HTTP request may run.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// SubmitRatePerSec throttles score submissions process-wide; 0 disables.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`

	// SubmitBurst is the limiter bucket size.
	SubmitBurst int `koanf:"submit_burst"`

	// MetricsEnabled turns business counters on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsRefreshMS is how often polled gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// MetricsLabels are constant labels attached to every metric (YAML only).
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":5000",
		DatabaseURL:             "",
		DBAutoMigrate:           true,
		DBMaxOpenConns:          10,
		DefaultLeaderboardLimit: 50,
		MaxLeaderboardLimit:     100,
		RequestTimeoutMS:        10_000,
		SubmitRatePerSec:        0,
		SubmitBurst:             20,
		MetricsEnabled:          true,
		MetricsNamespace:        "firesafe",
		MetricsRefreshMS:        10_000,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MetricsRefreshInterval returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// UsesDatabase reports whether the relational backend is selected.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 1:
		return fmt.Errorf("%w: default_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.DefaultLeaderboardLimit:
		return fmt.Errorf("%w: max_leaderboard_limit must be >= default_leaderboard_limit", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.SubmitRatePerSec < 0:
		return fmt.Errorf("%w: submit_rate_per_sec must not be negative", ErrInvalidConfig)
	case c.SubmitRatePerSec > 0 && c.SubmitBurst < 1:
		return fmt.Errorf("%w: submit_burst must be positive when rate limiting is on", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case !validMetricName(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace must match [a-zA-Z_][a-zA-Z0-9_]*", ErrInvalidConfig)
	case c.MetricsRefreshMS < 1:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

func validMetricName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
