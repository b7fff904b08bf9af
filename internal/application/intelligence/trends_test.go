package intelligence

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/internal/testutil"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

func newTrendService(t *testing.T, src domain.ResourceSource) (TrendService, *testutil.MockLogger, *prometheus.AppMetrics, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	logger := testutil.NewMockLogger()
	svc := NewTrendService(TrendDeps{
		Source:       src,
		QueryTimeout: 50 * time.Millisecond,
		Metrics:      metrics,
		Logger:       logger,
	})
	return svc, logger, metrics, collector
}

func liveRecords() []domain.ResourceRecord {
	return []domain.ResourceRecord{
		testutil.Record("Food bank", "Food Security", 9),
		testutil.Record("Shelter", "Housing", 8),
		testutil.Record("Rent help", "Housing", 6),
		testutil.Record("Clinic", "Healthcare", 10),
		testutil.Record("Bus passes", "Transportation", 1),
		testutil.Record("Tutoring", "Education", 2),
		testutil.Record("Eviction clinic", "Legal Aid", 3),
		{Title: "Unsorted"},
	}
}

func TestTrendService_Compute_Live(t *testing.T) {
	src := testutil.NewMockResourceSource(liveRecords()...)
	svc, _, _, _ := newTrendService(t, src)

	snapshot, err := svc.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.DemandArea{
		{Category: "Housing", DemandScore: 14},
		{Category: "Healthcare", DemandScore: 10},
		{Category: "Food Security", DemandScore: 9},
		{Category: "Legal Aid", DemandScore: 3},
		{Category: "Education", DemandScore: 2},
	}, snapshot.TopDemandAreas)
	assert.Equal(t, domain.EmergingNeeds(), snapshot.EmergingNeeds)
	assert.Equal(t, 1, src.ListCalls())
}

func TestTrendService_Compute_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  domain.ResourceSource
		code errors.ErrorCode
	}{
		{"not configured", nil, errors.ErrCodeDataSourceNotConfigured},
		{"empty", testutil.NewMockResourceSource(), errors.ErrCodeDataSourceEmpty},
		{"plain error", &testutil.MockResourceSource{Err: stderrors.New("connection refused")}, errors.ErrCodeDataSourceUnavailable},
		{"app error kept", &testutil.MockResourceSource{Err: errors.New(errors.ErrCodeDataSourceAuthFailed, "401")}, errors.ErrCodeDataSourceAuthFailed},
		{"timeout", &testutil.MockResourceSource{Delay: time.Second}, errors.ErrCodeTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _, _ := newTrendService(t, tc.src)
			_, err := svc.Compute(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestTrendService_Trends_FallbackOnFailure(t *testing.T) {
	src := &testutil.MockResourceSource{Err: stderrors.New("connection refused")}
	svc, logger, _, collector := newTrendService(t, src)

	snapshot := svc.Trends(context.Background())

	assert.Equal(t, domain.FallbackSnapshot(), snapshot)
	assert.Equal(t, 1, src.ListCalls(), "no retry")
	require.Equal(t, 1, logger.CountLevel("warn"))
	msg := logger.GetMessages()[0]
	reason, _ := msg.Field("reason")
	assert.Equal(t, "query_error", reason)

	out := scrape(t, collector)
	assert.Contains(t, out, `test_trend_fallback_total{reason="query_error"} 1`)
	assert.Contains(t, out, `test_trend_computations_total{source="fallback"} 1`)
}

func TestTrendService_Trends_FallbackOnEmptyAndMissingSource(t *testing.T) {
	for _, src := range []domain.ResourceSource{nil, testutil.NewMockResourceSource()} {
		svc, _, _, _ := newTrendService(t, src)
		assert.Equal(t, domain.FallbackSnapshot(), svc.Trends(context.Background()))
	}
}

func TestTrendService_Trends_FallbackOnTimeout(t *testing.T) {
	svc, logger, _, _ := newTrendService(t, &testutil.MockResourceSource{Delay: time.Second})

	start := time.Now()
	snapshot := svc.Trends(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, domain.FallbackSnapshot(), snapshot)
	reason, _ := logger.GetMessages()[0].Field("reason")
	assert.Equal(t, "timeout", reason)
}

func TestTrendService_Trends_LiveRecordsMetric(t *testing.T) {
	svc, logger, _, collector := newTrendService(t, testutil.NewMockResourceSource(liveRecords()...))

	snapshot := svc.Trends(context.Background())

	assert.Equal(t, "Housing", snapshot.TopDemandAreas[0].Category)
	assert.Zero(t, logger.CountLevel("warn"))
	out := scrape(t, collector)
	assert.Contains(t, out, `test_trend_computations_total{source="live"} 1`)
	assert.Contains(t, out, `test_data_source_query_duration_seconds_count{outcome="success",source="mock"} 1`)
}

func TestTrendService_Trends_AlwaysSortedAndBounded(t *testing.T) {
	sources := []domain.ResourceSource{
		nil,
		testutil.NewMockResourceSource(liveRecords()...),
		&testutil.MockResourceSource{Err: stderrors.New("boom")},
	}
	for _, src := range sources {
		svc, _, _, _ := newTrendService(t, src)
		areas := svc.Trends(context.Background()).TopDemandAreas
		assert.LessOrEqual(t, len(areas), domain.TopDemandLimit)
		for i := 1; i < len(areas); i++ {
			assert.GreaterOrEqual(t, areas[i-1].DemandScore, areas[i].DemandScore)
		}
	}
}

func TestTrendService_Ready(t *testing.T) {
	svc, _, _, collector := newTrendService(t, testutil.NewMockResourceSource())
	assert.NoError(t, svc.Ready(context.Background()))
	assert.Contains(t, scrape(t, collector), `test_data_source_up{source="mock"} 1`)

	down, _, _, _ := newTrendService(t, &testutil.MockResourceSource{PingErr: stderrors.New("down")})
	err := down.Ready(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceUnavailable))

	none, _, _, _ := newTrendService(t, nil)
	assert.True(t, errors.IsCode(none.Ready(context.Background()), errors.ErrCodeDataSourceNotConfigured))
}

func TestNewTrendService_Defaults(t *testing.T) {
	svc := NewTrendService(TrendDeps{}).(*trendServiceImpl)
	assert.Equal(t, DefaultQueryTimeout, svc.timeout)
	assert.NotNil(t, svc.logger)
	assert.Equal(t, "none", svc.sourceName())
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, "not_configured", fallbackReason(errors.New(errors.ErrCodeDataSourceNotConfigured, "")))
	assert.Equal(t, "empty", fallbackReason(errors.New(errors.ErrCodeDataSourceEmpty, "")))
	assert.Equal(t, "timeout", fallbackReason(errors.New(errors.ErrCodeTimeout, "")))
	assert.Equal(t, "parse_error", fallbackReason(errors.New(errors.ErrCodeDataSourceParseError, "")))
	assert.Equal(t, "auth_failed", fallbackReason(errors.New(errors.ErrCodeDataSourceAuthFailed, "")))
	assert.Equal(t, "query_error", fallbackReason(stderrors.New("x")))
}
