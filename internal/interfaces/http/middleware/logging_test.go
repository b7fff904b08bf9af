package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/community-intelligence/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequestLogging_LevelsByStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
		msg    string
	}{
		{http.StatusOK, "info", "HTTP request completed"},
		{http.StatusForbidden, "warn", "HTTP request completed with client error"},
		{http.StatusInternalServerError, "error", "HTTP request completed with server error"},
	}
	for _, tc := range cases {
		log := testutil.NewMockLogger()
		h := RequestID(RequestLogging(log, DefaultLoggingConfig())(statusHandler(tc.status)))

		req := httptest.NewRequest(http.MethodGet, "/api/analytics/overview", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, log.HasMessage(tc.level, tc.msg), "status %d", tc.status)
		msgs := log.GetMessages()
		require.Len(t, msgs, 1)
		status, _ := msgs[0].Field("status")
		assert.Equal(t, tc.status, status)
		rid, _ := msgs[0].Field("request_id")
		assert.NotEmpty(t, rid)
		origin, _ := msgs[0].Field("origin")
		assert.Equal(t, "http://localhost:3000", origin)
		assert.Equal(t, "http", msgs[0].Logger)
	}
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, log.GetMessages())
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	h := RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestWrappedResponseWriter_DefaultsAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newWrappedResponseWriter(rec)
	_, _ = w.Write([]byte("hello"))
	w.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, w.statusCode)
	assert.Equal(t, int64(5), w.bytesWritten)
	assert.Same(t, w, newWrappedResponseWriter(w))
	assert.Equal(t, rec, w.Unwrap())
}
