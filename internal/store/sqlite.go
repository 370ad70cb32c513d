package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id            TEXT PRIMARY KEY,
	query         TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	sources_used  TEXT NOT NULL,
	result_count  INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	confidence    REAL NOT NULL,
	cost_incurred REAL NOT NULL,
	cache_hit     INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id              TEXT PRIMARY KEY,
	total_requests  INTEGER NOT NULL,
	total_calls     INTEGER NOT NULL,
	failover_events INTEGER NOT NULL,
	cache_hit_rate  REAL NOT NULL,
	collected_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_collected_at ON analytics_snapshots(collected_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, rec SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	sourcesJSON, err := json.Marshal(rec.SourcesUsed)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sources")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, strategy, sources_used, result_count, duration_ms, confidence, cost_incurred, cache_hit, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Strategy, string(sourcesJSON), rec.ResultCount,
		rec.DurationMs, rec.Confidence, rec.CostIncurred, rec.CacheHit, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert search")
}

func (s *SQLiteStore) ListSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, strategy, sources_used, result_count, duration_ms, confidence, cost_incurred, cache_hit, created_at
		 FROM searches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var sourcesJSON string
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Strategy, &sourcesJSON, &rec.ResultCount,
			&rec.DurationMs, &rec.Confidence, &rec.CostIncurred, &rec.CacheHit, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &rec.SourcesUsed); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sources")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) RecordSnapshot(ctx context.Context, snap SnapshotRecord) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (id, total_requests, total_calls, failover_events, cache_hit_rate, collected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.TotalRequests, snap.TotalCalls, snap.FailoverEvents, snap.CacheHitRate, snap.CollectedAt,
	)
	return eris.Wrap(err, "sqlite: insert snapshot")
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, total_requests, total_calls, failover_events, cache_hit_rate, collected_at
		 FROM analytics_snapshots ORDER BY collected_at DESC LIMIT 1`)

	var snap SnapshotRecord
	err := row.Scan(&snap.ID, &snap.TotalRequests, &snap.TotalCalls, &snap.FailoverEvents,
		&snap.CacheHitRate, &snap.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}
	return &snap, nil
}
