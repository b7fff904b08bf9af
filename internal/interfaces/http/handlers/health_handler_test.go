package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Health(t *testing.T) {
	features := map[string]bool{"chat": true, "liveData": false}
	h := NewHealthHandler(HealthConfig{Service: "community-intelligence", Version: "1.2.3", Features: features})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "community-intelligence", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.True(t, resp.Timestamp.Equal(fixed))
	assert.Equal(t, features, resp.Features)
}

func TestHealthHandler_HealthIgnoresFailingCheckers(t *testing.T) {
	down := CheckerFunc{CheckerName: "data_source", Fn: func(context.Context) error { return errors.New("down") }}
	h := NewHealthHandler(HealthConfig{Service: "svc"}, down)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	up := CheckerFunc{CheckerName: "data_source", Fn: func(context.Context) error { return nil }}
	down := CheckerFunc{CheckerName: "rate_limit_store", Fn: func(context.Context) error { return errors.New("timeout") }}

	cases := []struct {
		name     string
		checkers []HealthChecker
		code     int
		status   string
	}{
		{"no checkers", nil, http.StatusOK, "ready"},
		{"all healthy", []HealthChecker{up}, http.StatusOK, "ready"},
		{"one unhealthy", []HealthChecker{up, down}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(HealthConfig{}, tc.checkers...)
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tc.code, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.status, resp.Status)
			assert.Len(t, resp.Checks, len(tc.checkers))
		})
	}
}

func TestHealthHandler_ReadinessTimeout(t *testing.T) {
	slow := CheckerFunc{CheckerName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	h := NewHealthHandler(HealthConfig{ReadinessTimeout: 10 * time.Millisecond}, slow)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"checks":{"slow":`)
	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Checks["slow"].Error, "deadline exceeded")
}
