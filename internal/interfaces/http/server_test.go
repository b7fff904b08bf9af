package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/community-intelligence/internal/testutil"
)

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(ServerConfig{Port: 8080}, http.NotFoundHandler(), nil)

	assert.Equal(t, ":8080", s.Addr())
	assert.Equal(t, 15*time.Second, s.srv.ReadTimeout)
	assert.Equal(t, 15*time.Second, s.srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.srv.IdleTimeout)
	assert.Equal(t, 10*time.Second, s.shutdownTimeout)
	assert.NotNil(t, s.Handler())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	logger := testutil.NewMockLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	s := NewServer(ServerConfig{ShutdownTimeout: time.Second}, handler, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, logger.HasMessage("info", "HTTP server stopped"))
}

func TestServer_ServeReturnsListenerError(t *testing.T) {
	s := NewServer(ServerConfig{}, http.NotFoundHandler(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	err = s.Serve(context.Background(), ln)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server failed")
}

func TestServer_RunRejectsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewServer(ServerConfig{Port: port}, http.NotFoundHandler(), nil)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}
