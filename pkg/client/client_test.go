package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/community-intelligence/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("http://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "community-intelligence-go-sdk/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://host", "not-a-url", "http://"} {
		_, err := NewClient(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest), raw)
	}
}

func TestOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("https://api.example.com",
		WithHTTPClient(hc),
		WithRetryMax(1),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("ci-sdk/1"),
		WithOrigin("https://app.example"),
	)
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 1, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, "ci-sdk/1", c.userAgent)
	assert.Equal(t, "https://app.example", c.origin)

	c, err = NewClient("https://api.example.com", WithRetryWait(2*time.Second, time.Second), WithRetryMax(-1), WithHTTPClient(nil))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, 3, c.retryMax)
	assert.NotNil(t, c.httpClient)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"status":"healthy","service":"community-intelligence","version":"1.0.0","features":{"metrics":true}}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Features["metrics"])
}

func TestChat_SendsMessageAndOrigin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "https://app.example", r.Header.Get("Origin"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "show trends", body["message"])

		_, _ = w.Write([]byte(`{"response":"Top demand","domain":"community-intelligence","intent":"trend","analytics":{"topDemandAreas":[{"category":"Housing","demandScore":13}]}}`))
	}, WithOrigin("https://app.example"))

	reply, err := c.Chat(context.Background(), "show trends")
	require.NoError(t, err)
	assert.Equal(t, "trend", reply.Intent)
	require.NotNil(t, reply.Analytics)
	assert.Equal(t, "Housing", reply.Analytics.TopDemandAreas[0].Category)
}

func TestChat_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to process chat message","response":"Sorry"}`))
	})

	_, err := c.Chat(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "Failed to process chat message", apiErr.Message)
	assert.Equal(t, "Sorry", apiErr.Response)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOverview_RetriesUnavailable(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"insights":{"topCategories":["Housing"],"activeMembers":200}}`))
	})

	ov, err := c.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Housing"}, ov.Insights.TopCategories)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOverview_GivesUpAfterRetryMax(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}, WithRetryMax(2))

	_, err := c.Overview(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRateLimitedHonoursRetryAfter(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	_, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForbiddenIsReturnedImmediately(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Origin not allowed by CORS policy"}`))
	})

	_, err := c.Overview(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsForbidden())
	assert.Contains(t, apiErr.Error(), "HTTP 403")
}

func TestNetworkErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c, err := NewClient(server.URL, WithRetryMax(0))
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestContextCancelledDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryWait(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Overview(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidJSONResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCalculateBackoff(t *testing.T) {
	c, err := NewClient("http://api.example.com", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)

	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)

	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}
