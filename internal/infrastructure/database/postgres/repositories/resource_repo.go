// Package repositories holds the read-only PostgreSQL queries behind the
// trend aggregator.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// SourceName identifies this source in logs and metrics.
const SourceName = "postgres"

// ResourceRepoConfig names the tables the repository reads.
type ResourceRepoConfig struct {
	ResourceTable string
	CategoryTable string
}

type postgresResourceRepo struct {
	conn  *postgres.Connection
	exec  queryExecutor
	log   logging.Logger
	query string
}

// NewPostgresResourceRepo returns a domain.ResourceSource reading resource
// rows joined with their category names.
func NewPostgresResourceRepo(conn *postgres.Connection, cfg ResourceRepoConfig, log logging.Logger) domain.ResourceSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.ResourceTable == "" {
		cfg.ResourceTable = "resources"
	}
	if cfg.CategoryTable == "" {
		cfg.CategoryTable = "categories"
	}
	return &postgresResourceRepo{
		conn:  conn,
		exec:  conn.DB(),
		log:   log.Named("resource_repo"),
		query: buildResourceQuery(cfg),
	}
}

func buildResourceQuery(cfg ResourceRepoConfig) string {
	return fmt.Sprintf(`
		SELECT r.title, c.name, r.keywords, r.priority
		FROM %s r
		LEFT JOIN %s c ON c.id = r.category_id
		ORDER BY r.priority DESC NULLS LAST`,
		quoteTable(cfg.ResourceTable), quoteTable(cfg.CategoryTable))
}

// quoteTable quotes each dot-separated part of a possibly schema-qualified
// table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func (r *postgresResourceRepo) Name() string { return SourceName }

func (r *postgresResourceRepo) ListResources(ctx context.Context) ([]domain.ResourceRecord, error) {
	rows, err := r.exec.QueryContext(ctx, r.query)
	if err != nil {
		return nil, classify(ctx, err, "failed to query resources")
	}
	defer rows.Close()

	var out []domain.ResourceRecord
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to scan resource row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err, "failed to iterate resource rows")
	}

	r.log.Debug("listed resources", logging.Int("count", len(out)))
	return out, nil
}

// Ping runs the connection health check, which also reports a saturated pool.
func (r *postgresResourceRepo) Ping(ctx context.Context) error {
	if err := r.conn.HealthCheck(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(err, errors.ErrCodeTimeout, "database ping timed out")
		}
		return err
	}
	return nil
}

func scanResource(row scanner) (domain.ResourceRecord, error) {
	var (
		title    sql.NullString
		category sql.NullString
		keywords pq.StringArray
		priority sql.NullFloat64
	)
	if err := row.Scan(&title, &category, &keywords, &priority); err != nil {
		return domain.ResourceRecord{}, err
	}

	rec := domain.ResourceRecord{
		Title:    title.String,
		Keywords: []string(keywords),
	}
	if category.Valid {
		c := category.String
		rec.Category = &c
	}
	if priority.Valid {
		p := priority.Float64
		rec.Priority = &p
	}
	return rec, nil
}

func classify(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, msg)
	}
	return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, msg)
}
