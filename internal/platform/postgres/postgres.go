package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmethakanbesel/stockdata/internal/config"
)

const jobsDDL = `
CREATE TABLE IF NOT EXISTS ingest_jobs (
    id         BIGSERIAL   PRIMARY KEY,
    run_id     TEXT        NOT NULL,
    ticker     TEXT        NOT NULL,
    status     TEXT        NOT NULL DEFAULT 'pending',
    attempts   INTEGER     NOT NULL DEFAULT 0,
    fetched    INTEGER     NOT NULL DEFAULT 0,
    inserted   BIGINT      NOT NULL DEFAULT 0,
    error      TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_ingest_jobs_run ON ingest_jobs (run_id);
CREATE INDEX IF NOT EXISTS idx_ingest_jobs_ticker_status ON ingest_jobs (ticker, status);
`

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return pool, nil
}

// Migrate creates the job ledger. The stock_data table is owned by the
// price repository, which ensures it before every write.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, jobsDDL); err != nil {
		return fmt.Errorf("migrate ingest_jobs: %w", err)
	}
	return nil
}

// BuildConnString builds a PostgreSQL URL from cfg. An empty SSLMode
// becomes "disable", matching the in-cluster deployment.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
