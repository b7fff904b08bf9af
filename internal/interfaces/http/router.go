// Package http assembles the route tree and the HTTP server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	HealthHandler   *handlers.HealthHandler
	OverviewHandler *handlers.OverviewHandler
	ChatHandler     *handlers.ChatHandler

	// Middleware
	CORSMiddleware      *middleware.CORSMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	LoggingConfig       middleware.LoggingConfig
	Production          bool
	MaxBodySize         int64

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(cfg.Production))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.LoggingConfig))
	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	r.Use(middleware.BodyLimit(cfg.MaxBodySize, cfg.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeRouteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeRouteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// --- Health ---
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Health)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	// --- API ---
	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitMiddleware != nil {
			api.Use(cfg.RateLimitMiddleware.Handler)
		}
		if cfg.OverviewHandler != nil {
			api.Get("/analytics/overview", cfg.OverviewHandler.Get)
		}
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Post)
		}
	})

	return r
}

func writeRouteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
