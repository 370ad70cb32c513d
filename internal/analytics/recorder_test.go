package analytics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reelscout/discovery-cli/internal/registry"
)

func TestOverview_Counters(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecorder().WithNow(func() time.Time { return fixed })

	r.ObserveRequest()
	r.ObserveRequest()
	r.ObserveCache(true)
	r.ObserveCache(false)
	r.ObserveSourceCall("tmdb", true)
	r.ObserveSourceCall("tmdb", false)
	r.ObserveSourceCall("trakt", true)
	r.ObserveFailover()

	snap := r.Overview()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(3), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.FailoverEvents)
	assert.InDelta(t, 0.5, snap.CacheHitRate, 0.001)
	assert.Equal(t, 2, snap.SourcesTracked)
	assert.Equal(t, fixed, snap.CollectedAt)
}

func TestCacheHitRate_NoLookups(t *testing.T) {
	assert.Zero(t, NewRecorder().CacheHitRate())
}

func TestPerformanceScore(t *testing.T) {
	active := registry.Source{Reliability: 90, HealthStatus: registry.HealthActive, ResponseTimeMs: 200}
	// (90 + 100 + (100 - 20)) / 3 = 90
	assert.InDelta(t, 90, PerformanceScore(active), 0.001)

	degraded := registry.Source{Reliability: 60, HealthStatus: registry.HealthDegraded, ResponseTimeMs: 2000}
	// latency term floors at 0: (60 + 0 + 0) / 3 = 20
	assert.InDelta(t, 20, PerformanceScore(degraded), 0.001)
}

func TestSourceDetails(t *testing.T) {
	r := NewRecorder()
	r.ObserveSourceCall("tmdb", true)
	r.ObserveSourceCall("tmdb", false)

	sources := []registry.Source{
		{ID: "trakt", HealthStatus: registry.HealthActive, Reliability: 80, DailyLimit: 100, DailyUsage: 25},
		{ID: "tmdb", HealthStatus: registry.HealthActive, Reliability: 95, DailyLimit: 200, DailyUsage: 50},
	}

	details := r.SourceDetails(sources)
	assert.Len(t, details, 2)
	// Sorted by id.
	assert.Equal(t, "tmdb", details[0].ID)
	assert.Equal(t, int64(2), details[0].Calls)
	assert.Equal(t, int64(1), details[0].Failures)
	assert.InDelta(t, 0.25, details[0].UsageRatio, 0.001)
	assert.Equal(t, "trakt", details[1].ID)
	assert.Zero(t, details[1].Calls)
}

func TestRecorder_ConcurrentSafe(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ObserveRequest()
			r.ObserveFailover()
			r.ObserveSourceCall("tmdb", true)
			r.ObserveCache(true)
		}()
	}
	wg.Wait()

	snap := r.Overview()
	assert.Equal(t, int64(100), snap.TotalRequests)
	assert.Equal(t, int64(100), snap.FailoverEvents)
	assert.Equal(t, int64(100), snap.TotalCalls)
	assert.InDelta(t, 1.0, snap.CacheHitRate, 0.001)
}
