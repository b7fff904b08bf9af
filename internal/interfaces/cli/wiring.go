package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/community-intelligence/internal/application/intelligence"
	"github.com/turtacn/community-intelligence/internal/config"
	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/community-intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/community-intelligence/internal/infrastructure/datasource/postgrest"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
)

// Services bundles the application services shared by the server and the
// one-shot commands.
type Services struct {
	Fixtures *domain.FixtureStore
	Source   domain.ResourceSource
	Trends   intelligence.TrendService
	Overview intelligence.OverviewService
	Chat     intelligence.ChatService

	closers []func() error
}

// Close releases the data-source connection, if any.
func (s *Services) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openDataSource builds the adapter selected by the data-source URL.  It
// returns a nil source when none is configured.  A source that cannot be
// reached at start-up is still returned; queries against it fall back.
func openDataSource(ctx context.Context, cfg *config.Config, logger logging.Logger) (domain.ResourceSource, func() error, error) {
	ds := cfg.DataSource
	switch cfg.DataSourceKind() {
	case "postgres":
		conn, err := postgres.NewConnection(ctx, postgres.PostgresConfig{
			URL:              ds.URL,
			ApplicationName:  cfg.Server.Name,
			MaxOpenConns:     ds.MaxOpenConns,
			MaxIdleConns:     ds.MaxIdleConns,
			StatementTimeout: ds.QueryTimeout,
			ConnectTimeout:   ds.QueryTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewPostgresResourceRepo(conn, repositories.ResourceRepoConfig{
			ResourceTable: ds.ResourceTable,
			CategoryTable: ds.CategoryTable,
		}, logger)
		return repo, conn.Close, nil

	case "rest":
		client, err := postgrest.NewClient(ds.URL, ds.Key,
			postgrest.WithLogger(logger),
			postgrest.WithTables(ds.ResourceTable, ds.CategoryTable),
			postgrest.WithUserAgent(fmt.Sprintf("%s/%s", cfg.Server.Name, config.Version)),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil

	default:
		logger.Info("no data source configured; trends use fallback data")
		return nil, func() error { return nil }, nil
	}
}

// NewServices wires the fixture store, the data source and the three
// application services.
func NewServices(ctx context.Context, cfg *config.Config, metrics *prometheus.AppMetrics, logger logging.Logger) (*Services, error) {
	source, closeSource, err := openDataSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fixtures := domain.DefaultFixtureStore()
	trends := intelligence.NewTrendService(intelligence.TrendDeps{
		Source:       source,
		QueryTimeout: cfg.DataSource.QueryTimeout,
		Metrics:      metrics,
		Logger:       logger,
	})

	return &Services{
		Fixtures: fixtures,
		Source:   source,
		Trends:   trends,
		Overview: intelligence.NewOverviewService(intelligence.OverviewDeps{
			Trends:   trends,
			Fixtures: fixtures,
			Random:   intelligence.NewLockedRand(time.Now().UnixNano()),
			Logger:   logger,
		}),
		Chat: intelligence.NewChatService(intelligence.ChatDeps{
			Trends:   trends,
			Fixtures: fixtures,
			Metrics:  metrics,
			Logger:   logger,
		}),
		closers: []func() error{closeSource},
	}, nil
}
