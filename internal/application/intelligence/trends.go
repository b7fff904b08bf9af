// Package intelligence implements the application services of the community
// intelligence service: trend computation with fallback, the overview payload
// and the keyword-driven chat responder.
package intelligence

import (
	"context"
	"time"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// DefaultQueryTimeout bounds a single data-source query when TrendDeps leaves
// QueryTimeout unset.
const DefaultQueryTimeout = 5 * time.Second

// Snapshot sources reported in metrics.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// TrendService computes demand trends from the shared resources table.
type TrendService interface {
	// Compute performs exactly one data-source query and returns its
	// aggregation.  A failed or empty query is returned as an error.
	Compute(ctx context.Context) (domain.TrendSnapshot, error)

	// Trends never fails: any Compute error is logged and answered with
	// domain.FallbackSnapshot.
	Trends(ctx context.Context) domain.TrendSnapshot

	// Ready pings the data source.
	Ready(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

// TrendDeps holds all dependencies for the trend service.  Source may be nil,
// in which case every snapshot is the fallback.
type TrendDeps struct {
	Source       domain.ResourceSource
	QueryTimeout time.Duration
	Metrics      *prometheus.AppMetrics
	Logger       logging.Logger
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type trendServiceImpl struct {
	source  domain.ResourceSource
	timeout time.Duration
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewTrendService creates a new TrendService.
func NewTrendService(deps TrendDeps) TrendService {
	if deps.QueryTimeout <= 0 {
		deps.QueryTimeout = DefaultQueryTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &trendServiceImpl{
		source:  deps.Source,
		timeout: deps.QueryTimeout,
		metrics: deps.Metrics,
		logger:  deps.Logger.Named("trends"),
	}
}

func (s *trendServiceImpl) sourceName() string {
	if s.source == nil {
		return "none"
	}
	return s.source.Name()
}

func (s *trendServiceImpl) Compute(ctx context.Context) (domain.TrendSnapshot, error) {
	if s.source == nil {
		return domain.TrendSnapshot{}, errors.New(errors.ErrCodeDataSourceNotConfigured, "no data source configured")
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := prometheus.NewTimer()
	records, err := s.source.ListResources(qctx)
	prometheus.RecordDataSourceQuery(s.metrics, s.source.Name(), timer, err)
	if err != nil {
		return domain.TrendSnapshot{}, classifyQueryError(qctx, err)
	}
	if len(records) == 0 {
		return domain.TrendSnapshot{}, errors.New(errors.ErrCodeDataSourceEmpty, "data source returned no resources")
	}

	return domain.NewSnapshot(domain.Aggregate(records, domain.TopDemandLimit)), nil
}

func (s *trendServiceImpl) Trends(ctx context.Context) domain.TrendSnapshot {
	snapshot, err := s.Compute(ctx)
	if err == nil {
		prometheus.RecordTrendComputation(s.metrics, SourceLive, "")
		return snapshot
	}

	reason := fallbackReason(err)
	s.logger.Warn("trend query failed, serving fallback data",
		logging.String("source", s.sourceName()),
		logging.String("reason", reason),
		logging.Err(err),
	)
	prometheus.RecordTrendComputation(s.metrics, SourceFallback, reason)
	return domain.FallbackSnapshot()
}

func (s *trendServiceImpl) Ready(ctx context.Context) error {
	if s.source == nil {
		return errors.New(errors.ErrCodeDataSourceNotConfigured, "no data source configured")
	}
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.source.Ping(pctx)
	prometheus.RecordDataSourceUp(s.metrics, s.source.Name(), err == nil)
	if err != nil {
		return classifyQueryError(pctx, err)
	}
	return nil
}

// requestAborted wraps the error of a finished request context.  An expired
// deadline is a timeout; a cancellation leaves the service unavailable to the
// caller.
func requestAborted(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrCodeTimeout, msg)
	}
	return errors.Wrap(err, errors.ErrCodeServiceUnavailable, msg)
}

// classifyQueryError keeps the code of an *AppError raised by the adapter and
// otherwise wraps err as a timeout or an unavailable source.
func classifyQueryError(ctx context.Context, err error) error {
	var ae *errors.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrCodeTimeout, "data source query timed out")
	}
	return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "data source query failed")
}

// fallbackReason maps a Compute error to the metric label of the fallback.
func fallbackReason(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeDataSourceNotConfigured:
		return "not_configured"
	case errors.ErrCodeDataSourceEmpty:
		return "empty"
	case errors.ErrCodeTimeout:
		return "timeout"
	case errors.ErrCodeDataSourceParseError:
		return "parse_error"
	case errors.ErrCodeDataSourceAuthFailed:
		return "auth_failed"
	default:
		return "query_error"
	}
}
