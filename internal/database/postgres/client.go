package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool the content queries and mirror writes use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Client wraps a pgx connection pool with observability
type Client struct {
	pool *pgxpool.Pool
	db   Querier
}

// NewClient wraps a pool created by db.NewPool.
func NewClient(pool *pgxpool.Pool) *Client {
	stat := pool.Stat()
	logger.Info("PostgreSQL content client initialized",
		zap.Int32("max_conns", stat.MaxConns()),
	)
	return &Client{pool: pool, db: pool}
}

// newClientWithQuerier is used by tests that do not need a pool.
func newClientWithQuerier(q Querier) *Client {
	return &Client{db: q}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Ping(ctx)
}

// Stats returns connection pool statistics
func (c *Client) Stats() *pgxpool.Stat {
	if c.pool == nil {
		return nil
	}
	return c.pool.Stat()
}

// recordMetrics records database operation metrics
func recordMetrics(operation, status string, duration float64) {
	metrics.ContentStoreRequestDuration.WithLabelValues("postgres_"+operation, status).Observe(duration)
	metrics.ContentStoreRequestTotal.WithLabelValues("postgres_"+operation, status).Inc()
}
