package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. It exists so
// tests can substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query         TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	sources_used  TEXT[] NOT NULL DEFAULT '{}',
	result_count  INTEGER NOT NULL,
	duration_ms   BIGINT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	cost_incurred DOUBLE PRECISION NOT NULL,
	cache_hit     BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	total_requests  BIGINT NOT NULL,
	total_calls     BIGINT NOT NULL,
	failover_events BIGINT NOT NULL,
	cache_hit_rate  DOUBLE PRECISION NOT NULL,
	collected_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_collected_at ON analytics_snapshots(collected_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordSearch(ctx context.Context, rec SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, query, strategy, sources_used, result_count, duration_ms, confidence, cost_incurred, cache_hit, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Query, rec.Strategy, rec.SourcesUsed, rec.ResultCount,
		rec.DurationMs, rec.Confidence, rec.CostIncurred, rec.CacheHit, rec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert search")
}

func (s *PostgresStore) ListSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, query, strategy, sources_used, result_count, duration_ms, confidence, cost_incurred, cache_hit, created_at
		 FROM searches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Strategy, &rec.SourcesUsed, &rec.ResultCount,
			&rec.DurationMs, &rec.Confidence, &rec.CostIncurred, &rec.CacheHit, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) RecordSnapshot(ctx context.Context, snap SnapshotRecord) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analytics_snapshots (id, total_requests, total_calls, failover_events, cache_hit_rate, collected_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.TotalRequests, snap.TotalCalls, snap.FailoverEvents, snap.CacheHitRate, snap.CollectedAt,
	)
	return eris.Wrap(err, "postgres: insert snapshot")
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, total_requests, total_calls, failover_events, cache_hit_rate, collected_at
		 FROM analytics_snapshots ORDER BY collected_at DESC LIMIT 1`)

	var snap SnapshotRecord
	err := row.Scan(&snap.ID, &snap.TotalRequests, &snap.TotalCalls, &snap.FailoverEvents,
		&snap.CacheHitRate, &snap.CollectedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}
	return &snap, nil
}
