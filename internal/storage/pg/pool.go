// Package pg implements the document store on PostgreSQL with pgx, full-text
// search over a generated tsvector column and pgvector embeddings.
package pg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultConnectTimeout = 10 * time.Second

type PoolConfig struct {
	ConnStr  string
	MaxConns int32
	MinConns int32
}

// ConnectionPool owns the pgx pool shared by the store, the vector index and
// migrations. It doubles as the "postgres" health check.
type ConnectionPool struct {
	db *pgxpool.Pool
}

func NewConnectionPool(ctx context.Context, cfg PoolConfig) (*ConnectionPool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if pcfg.ConnConfig.ConnectTimeout == 0 {
		pcfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to postgres",
		"host", pcfg.ConnConfig.Host,
		"database", pcfg.ConnConfig.Database,
		"max_conns", pcfg.MaxConns)
	return &ConnectionPool{db: db}, nil
}

func (p *ConnectionPool) DB() *pgxpool.Pool {
	return p.db
}

func (p *ConnectionPool) Close() {
	p.db.Close()
}

func (p *ConnectionPool) Name() string {
	return "postgres"
}

// Healthy reports whether the database answers and the schema has been migrated.
func (p *ConnectionPool) Healthy(ctx context.Context) bool {
	var migrated bool
	err := p.db.QueryRow(ctx, `SELECT to_regclass('public.documents') IS NOT NULL`).Scan(&migrated)
	if err != nil {
		slog.Warn("Postgres health check failed", "error", err)
		return false
	}
	if !migrated {
		slog.Warn("Postgres health check failed", "error", "documents table missing, run regkb migrate")
	}
	return migrated
}
