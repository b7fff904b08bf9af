// Package postgres manages the connection pool to the shared PostgreSQL
// database and the schema migrations used to provision it for local
// development.  The service only ever reads through this connection.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// driverName is the database/sql driver registered by lib/pq.
const driverName = "postgres"

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// PostgresConfig holds the database configuration.
type PostgresConfig struct {
	URL              string
	ApplicationName  string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
	ConnectTimeout   time.Duration
}

// Connection manages the PostgreSQL database connection pool.
type Connection struct {
	db     *sql.DB
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens the connection pool described by cfg.
//
// An unparsable URL is an error.  An unreachable server is not: the pool
// connects lazily, so NewConnection only logs a warning and every later query
// reports the failure to its caller.
func NewConnection(ctx context.Context, cfg PostgresConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrCodeDataSourceNotConfigured, "database url is empty")
	}

	pgCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceNotConfigured, "invalid database url")
	}

	dsn, err := buildDSN(cfg, pgCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceNotConfigured, "invalid database url")
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}
	configurePool(db, cfg)

	conn := &Connection{db: db, logger: log}
	fields := []logging.Field{
		logging.String("host", pgCfg.Host),
		logging.Int("port", int(pgCfg.Port)),
		logging.String("database", pgCfg.Database),
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		log.Warn("PostgreSQL not reachable at start-up; trend queries will use fallback data until it is",
			append(fields, logging.Err(err))...)
		return conn, nil
	}

	log.Info("Connected to PostgreSQL database", fields...)
	return conn, nil
}

// NewConnectionWithDB creates a Connection with an existing sql.DB (for testing).
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Connection{db: db, logger: log}
}

func configurePool(db *sql.DB, cfg PostgresConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
}

// DB returns the underlying sql.DB instance.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// HealthCheck verifies the database connection status.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "database health check failed")
	}

	stats := c.Stats()
	if stats.OpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.OpenConnections)
		if usage > 0.8 {
			c.logger.Warn("High database connection pool usage",
				logging.Int("in_use", stats.InUse),
				logging.Int("open", stats.OpenConnections),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Stats returns database statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close closes the database connection.  Subsequent calls are no-ops.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("Closed PostgreSQL database connection")
		} else {
			c.logger.Error("Failed to close PostgreSQL database connection", logging.Err(err))
		}
	})
	return err
}

// buildDSN adds the session parameters of cfg to its URL.  pgCfg is the
// parsed form of the same URL and decides which parameters are already set,
// whether in the URL or through PG* environment variables; those win.  The URL
// itself stays the lib/pq DSN so that its TLS settings reach the driver
// unchanged.
func buildDSN(cfg PostgresConfig, pgCfg *pgx.ConnConfig) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	q := u.Query()
	if _, set := pgCfg.RuntimeParams["application_name"]; !set {
		name := cfg.ApplicationName
		if name == "" {
			name = "community-intelligence"
		}
		q.Set("application_name", name)
	}
	if _, set := pgCfg.RuntimeParams["statement_timeout"]; !set && cfg.StatementTimeout > 0 {
		q.Set("statement_timeout", strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10))
	}
	if pgCfg.ConnectTimeout == 0 && cfg.ConnectTimeout > 0 {
		secs := int64(cfg.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.FormatInt(secs, 10))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
