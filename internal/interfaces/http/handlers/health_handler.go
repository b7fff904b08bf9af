package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is an interface for components that can report their health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.CheckerName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthConfig describes the service in /health responses.
type HealthConfig struct {
	Service  string
	Version  string
	Features map[string]bool
	// ReadinessTimeout bounds /readyz.  Defaults to 5s.
	ReadinessTimeout time.Duration
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	cfg      HealthConfig
	checkers []HealthChecker
	now      func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg HealthConfig, checkers ...HealthChecker) *HealthHandler {
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = 5 * time.Second
	}
	return &HealthHandler{cfg: cfg, checkers: checkers, now: time.Now}
}

// HealthResponse is the static service descriptor returned by /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Features  map[string]bool `json:"features"`
}

// ReadinessResponse is the response for readiness check.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Checks map[string]ComponentCheck `json:"checks,omitempty"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Health handles GET /health.  It never consults a dependency and always
// answers 200.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	features := make(map[string]bool, len(h.cfg.Features))
	for k, v := range h.cfg.Features {
		features[k] = v
	}
	_ = writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   h.cfg.Service,
		Version:   h.cfg.Version,
		Timestamp: h.now().UTC(),
		Features:  features,
	})
}

// Readiness handles GET /readyz.
// Returns 200 if all dependencies are healthy, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		_ = writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ReadinessTimeout)
	defer cancel()

	checks := h.checkAll(ctx)
	resp := ReadinessResponse{Status: "ready", Checks: checks}
	for _, c := range checks {
		if c.Status != "healthy" {
			resp.Status = "not_ready"
			_ = writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

// checkAll runs all health checkers concurrently and returns results.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			latency := time.Since(start)

			cc := ComponentCheck{
				Status:  "healthy",
				Latency: latency.Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}

			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}
