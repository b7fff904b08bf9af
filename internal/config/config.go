// Package config defines the configuration structures of the community
// intelligence service.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Deployment modes.  Production selects the restrictive CORS allowlist.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
	ModeTest        = "test"
)

// Version is the service version reported by /health and the CLI.  It is
// overridden at build time via -ldflags.
var Version = "dev"

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "development" | "production" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CORSConfig holds the per-mode origin allowlists.
type CORSConfig struct {
	DevelopmentOrigins []string `mapstructure:"development_origins"`
	ProductionOrigins  []string `mapstructure:"production_origins"`
}

// DataSourceConfig holds the parameters of the shared hosted database.  The
// scheme of URL selects the adapter: postgres:// uses SQL, http(s):// uses the
// REST surface.  An empty URL disables the data source.
type DataSourceConfig struct {
	URL           string        `mapstructure:"url"`
	Key           string        `mapstructure:"key"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	ResourceTable string        `mapstructure:"resource_table"`
	CategoryTable string        `mapstructure:"category_table"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
}

// RateLimitConfig holds request throttling parameters for /api routes.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	CORS       CORSConfig       `mapstructure:"cors"`
	DataSource DataSourceConfig `mapstructure:"data_source"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == ModeProduction
}

// AllowedOrigins returns the CORS allowlist of the active deployment mode.
func (c *Config) AllowedOrigins() []string {
	if c.IsProduction() {
		return c.CORS.ProductionOrigins
	}
	return c.CORS.DevelopmentOrigins
}

// DataSourceKind reports which adapter the data-source URL selects:
// "postgres", "rest" or "" when none is configured.
func (c *Config) DataSourceKind() string {
	raw := strings.TrimSpace(c.DataSource.URL)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return "postgres"
	case "http", "https":
		return "rest"
	default:
		return ""
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case ModeDevelopment, ModeProduction, ModeTest:
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected development|production|test", c.Server.Mode)
	}
	if c.Server.MaxBodySize < 1 {
		return fmt.Errorf("config: server.max_body_size must be ≥ 1, got %d", c.Server.MaxBodySize)
	}

	for _, o := range c.AllowedOrigins() {
		if o == "*" && c.IsProduction() {
			return fmt.Errorf("config: cors.production_origins must not contain a wildcard")
		}
	}

	if c.DataSource.URL != "" && c.DataSourceKind() == "" {
		return fmt.Errorf("config: data_source.url %q has an unsupported scheme; expected postgres:// or http(s)://", c.DataSource.URL)
	}
	if c.DataSource.QueryTimeout <= 0 {
		return fmt.Errorf("config: data_source.query_timeout must be positive")
	}
	if c.DataSource.ResourceTable == "" || c.DataSource.CategoryTable == "" {
		return fmt.Errorf("config: data_source.resource_table and data_source.category_table are required")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: rate_limit.requests_per_second must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("config: rate_limit.burst must be ≥ 1, got %d", c.RateLimit.Burst)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
