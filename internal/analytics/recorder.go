// Package analytics aggregates read-only operational telemetry across the
// planner, executor, and cache.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/reelscout/discovery-cli/internal/registry"
)

// Snapshot is the aggregate overview exposed to dashboards.
type Snapshot struct {
	TotalRequests  int64     `json:"total_requests"`
	TotalCalls     int64     `json:"total_calls"`
	FailoverEvents int64     `json:"failover_events"`
	CacheHitRate   float64   `json:"cache_hit_rate"`
	SourcesTracked int       `json:"sources_tracked"`
	CollectedAt    time.Time `json:"collected_at"`
}

// SourceDetail is the per-source view combining live registry state with
// request counters.
type SourceDetail struct {
	ID             string  `json:"id"`
	HealthStatus   string  `json:"health_status"`
	Reliability    int     `json:"reliability"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	UsageRatio     float64 `json:"usage_ratio"`
	Calls          int64   `json:"calls"`
	Failures       int64   `json:"failures"`
	Performance    float64 `json:"performance"`
}

type sourceCounters struct {
	calls    int64
	failures int64
}

// Recorder accumulates counters from every stage of request handling. All
// methods are safe for concurrent use.
type Recorder struct {
	mu             sync.Mutex
	totalRequests  int64
	failoverEvents int64
	cacheLookups   int64
	cacheHits      int64
	perSource      map[string]*sourceCounters

	nowFunc func() time.Time
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		perSource: make(map[string]*sourceCounters),
		nowFunc:   time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Recorder) WithNow(now func() time.Time) *Recorder {
	r.nowFunc = now
	return r
}

// ObserveRequest counts one incoming search request.
func (r *Recorder) ObserveRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalRequests++
}

// ObserveCache counts one cache lookup and whether it hit.
func (r *Recorder) ObserveCache(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheLookups++
	if hit {
		r.cacheHits++
	}
}

// ObserveSourceCall counts one per-source call outcome.
func (r *Recorder) ObserveSourceCall(id string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.perSource[id]
	if c == nil {
		c = &sourceCounters{}
		r.perSource[id] = c
	}
	c.calls++
	if !ok {
		c.failures++
	}
}

// ObserveFailover counts one failover event: a per-source timeout or error
// observed during fan-out.
func (r *Recorder) ObserveFailover() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failoverEvents++
}

// FailoverEvents returns the running failover count.
func (r *Recorder) FailoverEvents() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failoverEvents
}

// CacheHitRate returns hits/lookups, 0 when nothing has been looked up.
func (r *Recorder) CacheHitRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cacheHitRateLocked()
}

func (r *Recorder) cacheHitRateLocked() float64 {
	if r.cacheLookups == 0 {
		return 0
	}
	return float64(r.cacheHits) / float64(r.cacheLookups)
}

// Overview returns the aggregate counters snapshot.
func (r *Recorder) Overview() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var calls int64
	for _, c := range r.perSource {
		calls += c.calls
	}
	return Snapshot{
		TotalRequests:  r.totalRequests,
		TotalCalls:     calls,
		FailoverEvents: r.failoverEvents,
		CacheHitRate:   r.cacheHitRateLocked(),
		SourcesTracked: len(r.perSource),
		CollectedAt:    r.nowFunc().UTC(),
	}
}

// SourceDetails combines registry state with per-source counters, sorted by id.
func (r *Recorder) SourceDetails(sources []registry.Source) []SourceDetail {
	r.mu.Lock()
	defer r.mu.Unlock()

	details := make([]SourceDetail, 0, len(sources))
	for _, src := range sources {
		d := SourceDetail{
			ID:             src.ID,
			HealthStatus:   string(src.HealthStatus),
			Reliability:    src.Reliability,
			ResponseTimeMs: src.ResponseTimeMs,
			Performance:    PerformanceScore(src),
		}
		if src.DailyLimit > 0 {
			d.UsageRatio = float64(src.DailyUsage) / float64(src.DailyLimit)
		}
		if c := r.perSource[src.ID]; c != nil {
			d.Calls = c.calls
			d.Failures = c.failures
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })
	return details
}

// PerformanceScore derives a 0-100 score from a source's live state: the mean
// of reliability, an active-health bonus, and a latency score that loses one
// point per 10ms of rolling response time.
func PerformanceScore(src registry.Source) float64 {
	health := 0.0
	if src.HealthStatus == registry.HealthActive {
		health = 100
	}
	latency := 100 - src.ResponseTimeMs/10
	if latency < 0 {
		latency = 0
	}
	return (float64(src.Reliability) + health + latency) / 3
}

// PerformanceBySource returns the performance score for each source keyed by id.
func PerformanceBySource(sources []registry.Source) map[string]float64 {
	out := make(map[string]float64, len(sources))
	for _, src := range sources {
		out[src.ID] = PerformanceScore(src)
	}
	return out
}
