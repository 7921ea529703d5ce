// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// Store selects the backend: memory or postgres.
	Store string `koanf:"store"`
	// DatabaseURL is the postgres DSN, required when Store is postgres.
	DatabaseURL string `koanf:"database_url"`
	// QueueSize bounds the recompute job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the match id cache.
	DedupeSize int `koanf:"dedupe_size"`
	// RecalcConcurrency bounds parallel aggregation during a full recalculation.
	RecalcConcurrency int `koanf:"recalc_concurrency"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`
	// RecalcOnStart rebuilds every player's stats before serving.
	RecalcOnStart bool `koanf:"recalc_on_start"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsLabels are constant labels attached to every metric, e.g. env or region.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		RecalcConcurrency:   runtime.NumCPU(),
		MaxLeaderboardLimit: 100,
		CORSOrigins:         []string{"*"},
		RecalcOnStart:       true,
		ShutdownTimeout:     10 * time.Second,
		MetricsNamespace:    "trio",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{StoreMemory, StorePostgres}, c.Store):
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StorePostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case !slices.Contains([]string{"text", "json"}, c.LogFormat):
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics label %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}
