package cli

import (
	"context"
	"math"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/community-intelligence/internal/config"
	"github.com/turtacn/community-intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/community-intelligence/internal/interfaces/http"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/middleware"
)

// NewServeCmd creates the command that runs the HTTP API.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Run the HTTP API server exposing /health, /api/analytics/overview and /api/chat.\n" +
			"The server shuts down gracefully on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if cliCtx.ConfigPath != "" {
				watchLogLevel(cliCtx.ConfigPath, cliCtx.Logger)
			}

			cliCtx.Logger.Info("starting community intelligence server",
				logging.String("version", config.Version),
				logging.String("mode", cliCtx.Config.Server.Mode),
				logging.Int("port", cliCtx.Config.Server.Port),
				logging.Bool("data_source", a.Services.Source != nil),
			)
			return a.Server.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

// app is the fully wired server process.
type app struct {
	Server   *httpserver.Server
	Handler  http.Handler
	Services *Services

	logger  logging.Logger
	cleanup []func()
}

// Close releases every resource acquired by newApp, in reverse order.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	_ = a.logger.Sync()
}

// newApp wires metrics, services, middleware and handlers into a server.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	a := &app{logger: logger}

	metrics := prometheus.NewNoopAppMetrics()
	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
			ConstLabels:          map[string]string{"service": cfg.Server.Name},
		}, logger)
		if err != nil {
			return nil, err
		}
		collector = c
		metrics = prometheus.NewAppMetrics(c)
	}

	services, err := NewServices(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	a.Services = services
	a.cleanup = append(a.cleanup, func() {
		if err := services.Close(); err != nil {
			logger.Warn("failed to close data source", logging.Err(err))
		}
	})

	var checkers []handlers.HealthChecker
	if services.Source != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "data_source", Fn: services.Trends.Ready})
	}

	var rateLimit *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		limiter, checker, release := newLimiter(ctx, cfg.RateLimit, logger)
		a.cleanup = append(a.cleanup, release)
		if checker != nil {
			checkers = append(checkers, checker)
		}
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.Metrics = metrics
		rateLimit = middleware.NewRateLimitMiddleware(limiter, rlCfg)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins()
	corsCfg.Metrics = metrics
	logger.Info("cors allowlist selected",
		logging.String("mode", cfg.Server.Mode),
		logging.Any("origins", corsCfg.AllowedOrigins),
	)

	health := handlers.NewHealthHandler(handlers.HealthConfig{
		Service: cfg.Server.Name,
		Version: config.Version,
		Features: map[string]bool{
			"dataSource": services.Source != nil,
			"rateLimit":  cfg.RateLimit.Enabled,
			"metrics":    cfg.Metrics.Enabled,
		},
		ReadinessTimeout: cfg.DataSource.QueryTimeout,
	}, checkers...)

	a.Handler = httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:       health,
		OverviewHandler:     handlers.NewOverviewHandler(services.Overview, logger),
		ChatHandler:         handlers.NewChatHandler(services.Chat, metrics, logger),
		CORSMiddleware:      middleware.NewCORSMiddleware(corsCfg),
		RateLimitMiddleware: rateLimit,
		LoggingConfig:       middleware.DefaultLoggingConfig(),
		Production:          cfg.IsProduction(),
		MaxBodySize:         cfg.Server.MaxBodySize,
		Logger:              logger,
		Metrics:             metrics,
		MetricsCollector:    collector,
		MetricsPath:         cfg.Metrics.Path,
	})

	a.Server = httpserver.NewServer(httpserver.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.Handler, logger)

	return a, nil
}

// newLimiter returns the shared Redis window limiter when an address is
// configured and reachable, otherwise the in-process token bucket.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, logger logging.Logger) (middleware.RateLimiter, handlers.HealthChecker, func()) {
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(&redis.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err == nil {
			limit := int(math.Ceil(cfg.RequestsPerSecond * cfg.Window.Seconds()))
			if limit < cfg.Burst {
				limit = cfg.Burst
			}
			logger.Info("rate limiting with shared redis counter",
				logging.Int("limit", limit), logging.Duration("window", cfg.Window))
			checker := handlers.CheckerFunc{CheckerName: "redis", Fn: client.Ping}
			return middleware.NewWindowLimiter(client, limit, cfg.Window, logger), checker, func() { _ = client.Close() }
		}
		logger.Warn("redis unavailable, falling back to in-process rate limiting", logging.Err(err))
	}

	tb := middleware.NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.Window)
	return tb, nil, tb.Stop
}

// watchLogLevel applies log level changes made to the config file at runtime.
func watchLogLevel(path string, logger logging.Logger) {
	config.Watch(path, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level changed", logging.String("level", cfg.Log.Level))
		}
	})
}
