package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_RecordSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(pgxmock.AnyArg(), "inception", "comprehensive", []string{"tmdb", "trakt"},
			12, int64(340), 87.5, 0.004, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordSearch(context.Background(), SearchRecord{
		Query:        "inception",
		Strategy:     "comprehensive",
		SourcesUsed:  []string{"tmdb", "trakt"},
		ResultCount:  12,
		DurationMs:   340,
		Confidence:   87.5,
		CostIncurred: 0.004,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSearches(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "query", "strategy", "sources_used", "result_count",
		"duration_ms", "confidence", "cost_incurred", "cache_hit", "created_at",
	}).AddRow("s1", "dune", "fast", []string{"tmdb"}, 5, int64(120), 72.0, 0.0, false, now)

	mock.ExpectQuery(`SELECT id, query, strategy, sources_used`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := s.ListSearches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dune", got[0].Query)
	assert.Equal(t, []string{"tmdb"}, got[0].SourcesUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSearches_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, query, strategy, sources_used`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "query", "strategy", "sources_used", "result_count",
			"duration_ms", "confidence", "cost_incurred", "cache_hit", "created_at",
		}))

	got, err := s.ListSearches(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analytics_snapshots`).
		WithArgs(pgxmock.AnyArg(), int64(100), int64(250), int64(3), 0.4, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordSnapshot(context.Background(), SnapshotRecord{
		TotalRequests:  100,
		TotalCalls:     250,
		FailoverEvents: 3,
		CacheHitRate:   0.4,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestSnapshot_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, total_requests, total_calls`).
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, total_requests, total_calls`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "total_requests", "total_calls", "failover_events", "cache_hit_rate", "collected_at",
		}).AddRow("snap1", int64(10), int64(25), int64(1), 0.2, now))

	snap, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(10), snap.TotalRequests)
	assert.Equal(t, 0.2, snap.CacheHitRate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS searches`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
