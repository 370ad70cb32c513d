// Package store persists search history and analytics snapshots behind a
// driver-agnostic interface with SQLite and Postgres backends.
package store

import (
	"context"
	"time"
)

// SearchRecord is one completed federated search.
type SearchRecord struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Strategy     string    `json:"strategy"`
	SourcesUsed  []string  `json:"sources_used"`
	ResultCount  int       `json:"result_count"`
	DurationMs   int64     `json:"duration_ms"`
	Confidence   float64   `json:"confidence"`
	CostIncurred float64   `json:"cost_incurred"`
	CacheHit     bool      `json:"cache_hit"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotRecord is one persisted analytics overview, flushed periodically so
// dashboards can backfill across restarts.
type SnapshotRecord struct {
	ID             string    `json:"id"`
	TotalRequests  int64     `json:"total_requests"`
	TotalCalls     int64     `json:"total_calls"`
	FailoverEvents int64     `json:"failover_events"`
	CacheHitRate   float64   `json:"cache_hit_rate"`
	CollectedAt    time.Time `json:"collected_at"`
}

// Store is the persistence interface for the discovery hub.
type Store interface {
	RecordSearch(ctx context.Context, rec SearchRecord) error
	ListSearches(ctx context.Context, limit int) ([]SearchRecord, error)

	RecordSnapshot(ctx context.Context, snap SnapshotRecord) error
	LatestSnapshot(ctx context.Context) (*SnapshotRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
