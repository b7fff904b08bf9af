package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServiceName     = "community-intelligence"
	DefaultServerPort      = 3001
	DefaultServerMode      = ModeDevelopment
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultShutdownTimeout = 30 * time.Second

	DefaultQueryTimeout  = 5 * time.Second
	DefaultResourceTable = "resources"
	DefaultCategoryTable = "categories"
	DefaultMaxOpenConns  = 10
	DefaultMaxIdleConns  = 5

	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 30
	DefaultRateLimitWindow = time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "community_intel"
	DefaultMetricsPath      = "/metrics"
)

// DefaultDevelopmentOrigins is the permissive allowlist used outside production.
func DefaultDevelopmentOrigins() []string {
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}

// DefaultProductionOrigins is the restrictive allowlist used in production.
func DefaultProductionOrigins() []string {
	return []string{
		"https://community-intelligence.app",
		"https://www.community-intelligence.app",
	}
}

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Name == "" {
		cfg.Server.Name = DefaultServiceName
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── CORS ──────────────────────────────────────────────────────────────────
	if len(cfg.CORS.DevelopmentOrigins) == 0 {
		cfg.CORS.DevelopmentOrigins = DefaultDevelopmentOrigins()
	}
	if len(cfg.CORS.ProductionOrigins) == 0 {
		cfg.CORS.ProductionOrigins = DefaultProductionOrigins()
	}

	// ── Data source ───────────────────────────────────────────────────────────
	if cfg.DataSource.QueryTimeout == 0 {
		cfg.DataSource.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.DataSource.ResourceTable == "" {
		cfg.DataSource.ResourceTable = DefaultResourceTable
	}
	if cfg.DataSource.CategoryTable == "" {
		cfg.DataSource.CategoryTable = DefaultCategoryTable
	}
	if cfg.DataSource.MaxOpenConns == 0 {
		cfg.DataSource.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.DataSource.MaxIdleConns == 0 {
		cfg.DataSource.MaxIdleConns = DefaultMaxIdleConns
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	// Enabled is a bool; false is a valid explicit value, so it is left as-is
	// here and defaulted through viper instead.
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefaultConfig returns a Config populated entirely with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.RateLimit.Enabled = true
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
