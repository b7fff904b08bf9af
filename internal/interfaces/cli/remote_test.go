package cli

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/community-intelligence/internal/application/intelligence"
	"github.com/turtacn/community-intelligence/internal/config"
	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/client"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// startServer runs a fully wired server without a data source.
func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Metrics.Enabled = false
	a, err := newApp(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestChat_RemoteServer(t *testing.T) {
	isolateEnv(t)
	url := startServer(t)

	out, _, err := runCLI(t, "chat", "--server", url, "--config", writeConfig(t, quietConfig), "any", "problems?")
	require.NoError(t, err)
	assert.Contains(t, out, "Crisis Support")

	out, _, err = runCLI(t, "chat", "-o", "json", "--server", url, "--config", writeConfig(t, quietConfig), "hi")
	require.NoError(t, err)
	var reply intelligence.ChatReply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, intelligence.DefaultChatResponse, reply.Response)
}

func TestTrends_RemoteServer(t *testing.T) {
	isolateEnv(t)
	url := startServer(t)

	out, _, err := runCLI(t, "trends", "-o", "json", "--server", url, "--config", writeConfig(t, quietConfig))
	require.NoError(t, err)

	var snap domain.TrendSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, domain.FallbackDemandAreas(), snap.TopDemandAreas)
	assert.Equal(t, domain.EmergingNeeds(), snap.EmergingNeeds)
}

func TestTrends_RemoteRejectsStrict(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "trends", "--strict", "--server", "http://localhost:1", "--config", writeConfig(t, quietConfig))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestSDK_AgainstServer(t *testing.T) {
	url := startServer(t)
	c, err := client.NewClient(url, client.WithOrigin("http://localhost:3000"))
	require.NoError(t, err)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.Features["dataSource"])

	ov, err := c.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Crisis Support", "Housing", "Mental Health"}, ov.Insights.TopCategories)
	assert.Len(t, ov.ResourceGaps, domain.DefaultFixtureStore().Len())

	reply, err := c.Chat(ctx, "data analysis please")
	require.NoError(t, err)
	assert.Equal(t, "trend", reply.Intent)
	require.NotNil(t, reply.Analytics)
	assert.Len(t, reply.Analytics.TopDemandAreas, 5)

	evil, err := client.NewClient(url, client.WithOrigin("https://evil.example"))
	require.NoError(t, err)
	_, err = evil.Overview(ctx)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsForbidden())
}
