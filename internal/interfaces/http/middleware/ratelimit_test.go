package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/community-intelligence/internal/testutil"
)

// ---------------------------------------------------------------------------
// TokenBucketLimiter
// ---------------------------------------------------------------------------

func TestTokenBucketLimiter_BurstThenReject(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3, 0)
	defer l.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, info := l.Allow(context.Background(), "1.2.3.4")
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	ok, info := l.Allow(context.Background(), "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.True(t, info.ResetAt.After(now))

	// Other keys have their own bucket.
	ok, _ = l.Allow(context.Background(), "5.6.7.8")
	assert.True(t, ok)

	// One second later one token is back.
	now = now.Add(time.Second)
	ok, _ = l.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(10, 10, 0)
	defer l.Stop()
	l.cleanupInterval = time.Minute
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), "a")
	l.Allow(context.Background(), "b")
	assert.Equal(t, 2, l.VisitorCount())

	now = now.Add(2 * time.Minute)
	l.Allow(context.Background(), "b")
	l.cleanup()
	assert.Equal(t, 1, l.VisitorCount())
}

func TestTokenBucketLimiter_ConcurrentAllow(t *testing.T) {
	l := NewTokenBucketLimiter(0.0001, 50, time.Hour)
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "k"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestTokenBucketLimiter_StopIsIdempotent(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, time.Millisecond)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

// ---------------------------------------------------------------------------
// WindowLimiter
// ---------------------------------------------------------------------------

type fakeCounter struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	ttl := f.ttl
	if ttl == 0 {
		ttl = window
	}
	return f.counts[key], ttl, nil
}

func TestWindowLimiter_AllowsUpToLimit(t *testing.T) {
	counter := &fakeCounter{ttl: 20 * time.Second}
	l := NewWindowLimiter(counter, 2, time.Minute, nil)

	ok, info := l.Allow(context.Background(), "ip")
	assert.True(t, ok)
	assert.Equal(t, 1, info.Remaining)

	ok, info = l.Allow(context.Background(), "ip")
	assert.True(t, ok)
	assert.Equal(t, 0, info.Remaining)

	ok, info = l.Allow(context.Background(), "ip")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.WithinDuration(t, time.Now().Add(20*time.Second), info.ResetAt, time.Second)
}

func TestWindowLimiter_FailsOpen(t *testing.T) {
	log := testutil.NewMockLogger()
	l := NewWindowLimiter(&fakeCounter{err: errors.New("redis down")}, 2, time.Minute, log)

	ok, info := l.Allow(context.Background(), "ip")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Remaining)
	assert.Equal(t, 1, log.CountLevel("warn"))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRateLimit_RejectsWith429(t *testing.T) {
	metrics, collector := newTestMetrics(t)
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()

	cfg := DefaultRateLimitConfig()
	cfg.Metrics = metrics
	next := &okHandler{}
	h := NewRateLimitMiddleware(l, cfg).Handler(next)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	first := req()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := req()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"`+ErrRateLimited+`"}`, second.Body.String())
	assert.Equal(t, 1, next.calls)
	assert.Contains(t, scrape(t, collector), `mw_http_rejected_total{reason="rate_limit"} 1`)
}

func TestRateLimit_SkipPathsAndPreflight(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()
	next := &okHandler{}
	h := RateLimit(l, DefaultRateLimitConfig())(next)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 6, next.calls)
}

func TestClientIPKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIPKey(r))

	r.RemoteAddr = "192.0.2.9"
	assert.Equal(t, "192.0.2.9", ClientIPKey(r))
}
