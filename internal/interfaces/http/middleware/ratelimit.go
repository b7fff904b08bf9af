package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// ErrRateLimited is the message of the 429 sent when a client exceeds its
// budget.
const ErrRateLimited = "Too many requests, please retry later"

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow checks if a request with the given key is allowed.
	// Returns whether the request is allowed and current rate limit info.
	Allow(ctx context.Context, key string) (bool, RateLimitInfo)
}

// RateLimitInfo contains current rate limit state for a given key.
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed per window.
	Limit int
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the time when the rate limit window resets.
	ResetAt time.Time
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// KeyFunc extracts the rate limit key from a request.
	// If nil, defaults to client IP extraction.
	KeyFunc func(r *http.Request) string
	// SkipPaths are paths that bypass rate limiting.
	SkipPaths []string
	// Metrics counts rejected requests.  Optional.
	Metrics *prometheus.AppMetrics
}

// DefaultRateLimitConfig returns a sensible default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		KeyFunc:   ClientIPKey,
		SkipPaths: []string{"/health", "/readyz", "/metrics"},
	}
}

// ClientIPKey keys requests by remote IP.  chi's RealIP middleware has
// already folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func ClientIPKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ─────────────────────────────────────────────────────────────────────────────
// Token Bucket Limiter
// ─────────────────────────────────────────────────────────────────────────────

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one golang.org/x/time/rate limiter per key in
// process memory.
type TokenBucketLimiter struct {
	rate            rate.Limit
	burstSize       int
	visitors        map[string]*visitor
	mu              sync.Mutex
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.  Keys idle
// for longer than cleanupInterval are dropped by a background goroutine that
// Stop ends.
func NewTokenBucketLimiter(rps float64, burstSize int, cleanupInterval time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		rate:            rate.Limit(rps),
		burstSize:       burstSize,
		visitors:        make(map[string]*visitor),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow checks if a request with the given key is allowed under the rate limit.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burstSize)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	info := RateLimitInfo{
		Limit:     l.burstSize,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now.Add(l.untilNextToken(tokens)),
	}
	return allowed, info
}

func (l *TokenBucketLimiter) untilNextToken(tokens float64) time.Duration {
	if tokens >= 1 || l.rate <= 0 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(l.rate) * float64(time.Second))
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup removes visitors idle for longer than the cleanup interval.
func (l *TokenBucketLimiter) cleanup() {
	threshold := l.now().Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(threshold) {
			delete(l.visitors, key)
		}
	}
}

// Stop stops the background cleanup goroutine.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// VisitorCount returns the number of tracked keys.
func (l *TokenBucketLimiter) VisitorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared fixed-window limiter
// ─────────────────────────────────────────────────────────────────────────────

// WindowCounter counts hits per key in fixed windows shared by all replicas.
// It is implemented by the Redis client.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// WindowLimiter allows limit requests per key per window using a shared
// counter.  When the counter store fails the request is allowed and the error
// logged, so an outage of the store never takes the API down.
type WindowLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// NewWindowLimiter allows limit requests per key in each window, counted by counter.
func NewWindowLimiter(counter WindowCounter, limit int, window time.Duration, logger logging.Logger) *WindowLimiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WindowLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		logger:  logger.Named("ratelimit"),
		now:     time.Now,
	}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, RateLimitInfo) {
	count, ttl, err := l.counter.IncrWindow(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, allowing request",
			logging.String("key", key), logging.Err(err))
		return true, RateLimitInfo{Limit: l.limit, Remaining: l.limit, ResetAt: l.now().Add(l.window)}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(l.limit), RateLimitInfo{
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// RateLimit returns middleware that enforces rate limiting.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			allowed, info := limiter.Allow(r.Context(), keyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := math.Ceil(time.Until(info.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
				prometheus.RecordRejection(config.Metrics, "rate_limit")
				writeAppError(w, errors.RateLimit(ErrRateLimited))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware adapts RateLimit to the router's middleware slot.
type RateLimitMiddleware struct {
	handler func(http.Handler) http.Handler
}

// NewRateLimitMiddleware builds the rate limit middleware around limiter.
func NewRateLimitMiddleware(limiter RateLimiter, config RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{handler: RateLimit(limiter, config)}
}

// Handler wraps next with the rate limit.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return m.handler(next)
}
