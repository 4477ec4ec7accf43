package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"investment-monitor/observability"
)

// ApplicationName identifies the monitor's sessions in pg_stat_activity.
const ApplicationName = "investment-monitor"

// DefaultMaxConns covers a save, a health check and concurrent quote archiving.
const DefaultMaxConns = 8

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository stores the portfolio and the quote archive in PostgreSQL.
type Repository struct {
	pool    *pgxpool.Pool
	db      DBTX
	metrics *observability.Metrics
}

// NewRepository connects to connString and verifies the connection. A
// pool_max_conns setting in connString wins over DefaultMaxConns.
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	if !strings.Contains(connString, "pool_max_conns") && cfg.MaxConns > DefaultMaxConns {
		cfg.MaxConns = DefaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	observability.Info("connected to postgres",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return &Repository{pool: pool, db: pool, metrics: observability.GetMetrics()}, nil
}

// WithMetrics records query metrics on m instead of the global metrics.
func (r *Repository) WithMetrics(m *observability.Metrics) *Repository {
	if m != nil {
		r.metrics = m
	}
	return r
}

// inTx runs fn against a Repository bound to a new transaction and commits
// when fn succeeds.
func (r *Repository) inTx(ctx context.Context, fn func(tx *Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&Repository{pool: r.pool, db: tx, metrics: r.metrics}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health pings the database.
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Backend names the store in metrics.
func (r *Repository) Backend() string {
	return "postgres"
}

// observe records the duration of a query and counts it as an error if err is set.
func (r *Repository) observe(timer *observability.Timer, operation, table string, err error) {
	timer.ObserveDB(operation, table)
	if err != nil {
		r.metrics.RecordDBError(operation, table)
	}
}
