package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "CI"

// envAliases binds the conventional bare variables of hosted deployments to
// their configuration keys.  The CI_ prefixed name is listed first and wins
// when both are set.
var envAliases = map[string][]string{
	"server.port":     {"CI_SERVER_PORT", "PORT"},
	"server.mode":     {"CI_SERVER_MODE", "NODE_ENV", "APP_ENV"},
	"data_source.url": {"CI_DATA_SOURCE_URL", "DATABASE_URL", "SUPABASE_URL"},
	"data_source.key": {"CI_DATA_SOURCE_KEY", "SUPABASE_ANON_KEY", "SUPABASE_KEY"},
}

// newViper builds a pre-configured Viper instance: YAML file type, CI_ env
// prefix, automatic env binding and a key replacer that maps "." → "_" so
// that "data_source.query_timeout" resolves to "CI_DATA_SOURCE_QUERY_TIMEOUT".
//
// Every key is registered with a default so that Unmarshal sees env-only
// values; viper ignores env vars for keys it does not know about.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	registerDefaults(v)

	for key, names := range envAliases {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.name", DefaultServiceName)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.max_body_size", DefaultMaxBodySize)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("cors.development_origins", DefaultDevelopmentOrigins())
	v.SetDefault("cors.production_origins", DefaultProductionOrigins())

	v.SetDefault("data_source.url", "")
	v.SetDefault("data_source.key", "")
	v.SetDefault("data_source.query_timeout", DefaultQueryTimeout)
	v.SetDefault("data_source.resource_table", DefaultResourceTable)
	v.SetDefault("data_source.category_table", DefaultCategoryTable)
	v.SetDefault("data_source.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("data_source.max_idle_conns", DefaultMaxIdleConns)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.window", DefaultRateLimitWindow)
	v.SetDefault("rate_limit.redis_addr", "")
	v.SetDefault("rate_limit.redis_password", "")
	v.SetDefault("rate_limit.redis_db", 0)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}

// Load reads the YAML file at configPath, merges any environment variable
// overrides, applies defaults for unset fields, and validates the result.
// An empty configPath is equivalent to LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}

	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from environment variables, with no
// config file required.
//
// Environment variable naming convention:
//
//	CI_<SECTION>_<FIELD>   e.g.  CI_SERVER_PORT, CI_RATE_LIMIT_REDIS_ADDR
//
// plus the bare aliases PORT, NODE_ENV, APP_ENV, DATABASE_URL, SUPABASE_URL,
// SUPABASE_ANON_KEY and SUPABASE_KEY.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, normalises the deployment mode and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)
	cfg.Server.Mode = normalizeMode(cfg.Server.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// normalizeMode maps the loose values found in NODE_ENV style variables onto
// the three supported modes.  Unknown values are returned unchanged so that
// Validate reports them.
func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "production", "prod":
		return ModeProduction
	case "development", "dev", "local":
		return ModeDevelopment
	case "test", "testing":
		return ModeTest
	default:
		return mode
	}
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Only settings that
// are safe to change at runtime (the log level) are applied by the caller.
//
// Watch is non-blocking; viper runs the watcher in a background goroutine.
// A changed file that fails to parse or validate is skipped.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Callers are expected to have called Load first.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
