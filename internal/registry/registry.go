// Package registry is the single source of truth for source configuration
// and live operational state (health, reliability, usage).
package registry

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SourceType classifies how a source is reached.
type SourceType string

const (
	SourceTypeAPI     SourceType = "api"
	SourceTypeScraper SourceType = "scraper"
	SourceTypeHybrid  SourceType = "hybrid"
)

// HealthStatus is the operational state of a source.
type HealthStatus string

const (
	HealthActive   HealthStatus = "active"
	HealthDegraded HealthStatus = "degraded"
	HealthInactive HealthStatus = "inactive"
)

// RegionGlobal marks a source as serving every region.
const RegionGlobal = "global"

// Source holds one provider's static configuration plus its live state.
// Live fields (HealthStatus, LastHealthCheck, ResponseTimeMs, Reliability,
// DailyUsage) are mutated only through Registry methods; callers always
// receive value copies.
type Source struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	Endpoint string     `json:"endpoint,omitempty"`

	HealthStatus    HealthStatus `json:"health_status"`
	LastHealthCheck time.Time    `json:"last_health_check"`
	ResponseTimeMs  float64      `json:"response_time_ms"`
	Reliability     int          `json:"reliability"` // 0-100

	CostPerRequest float64 `json:"cost_per_request"`
	DailyLimit     int     `json:"daily_limit"`
	DailyUsage     int     `json:"daily_usage"`

	Priority     int      `json:"priority"`
	Capabilities []string `json:"capabilities"`
	Regions      []string `json:"regions"`
}

// HasCapability reports whether the source advertises the given capability.
func (s Source) HasCapability(cap string) bool {
	return slices.Contains(s.Capabilities, cap)
}

// ServesRegion reports whether the source covers the given region. Sources
// with no region list, or with the "global" marker, cover everything.
func (s Source) ServesRegion(region string) bool {
	if region == "" || len(s.Regions) == 0 {
		return true
	}
	return slices.Contains(s.Regions, RegionGlobal) || slices.Contains(s.Regions, region)
}

// Exhausted reports whether the source has spent its daily request budget.
func (s Source) Exhausted() bool {
	return s.DailyLimit > 0 && s.DailyUsage >= s.DailyLimit
}

// Tuning controls how request and probe outcomes move the reliability score.
type Tuning struct {
	ReliabilityFloor int // below this, a failing source goes inactive
	SuccessReward    int
	FailurePenalty   int
	RepeatPenalty    int // applied after RepeatThreshold consecutive failures
	RepeatThreshold  int
	// Latency smoothing factor for the rolling response time average.
	LatencyAlpha float64
}

// DefaultTuning returns the standard reliability model parameters.
func DefaultTuning() Tuning {
	return Tuning{
		ReliabilityFloor: 30,
		SuccessReward:    1,
		FailurePenalty:   5,
		RepeatPenalty:    10,
		RepeatThreshold:  3,
		LatencyAlpha:     0.3,
	}
}

type record struct {
	src                 Source
	consecutiveFailures int
}

// Registry tracks every configured source and its mutable operational state.
// All read-modify-write access goes through a single mutex so that concurrent
// requests and the probe loop never lose updates.
type Registry struct {
	mu      sync.RWMutex
	tuning  Tuning
	sources map[string]*record
	order   []string // registration order for deterministic iteration

	nowFunc func() time.Time
}

// New creates an empty registry with the given tuning.
func New(tuning Tuning) *Registry {
	if tuning.LatencyAlpha <= 0 || tuning.LatencyAlpha > 1 {
		tuning.LatencyAlpha = 0.3
	}
	return &Registry{
		tuning:  tuning,
		sources: make(map[string]*record),
		nowFunc: time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Registry) WithNow(now func() time.Time) *Registry {
	r.nowFunc = now
	return r
}

// Register adds a source. Reliability is clamped to [0,100] and a zero health
// status defaults to active.
func (r *Registry) Register(src Source) error {
	if src.ID == "" {
		return eris.New("registry: source id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[src.ID]; exists {
		return eris.Errorf("registry: source %q already registered", src.ID)
	}

	src.Reliability = clamp(src.Reliability)
	if src.HealthStatus == "" {
		src.HealthStatus = HealthActive
	}
	r.sources[src.ID] = &record{src: src}
	r.order = append(r.order, src.ID)
	return nil
}

// Get returns a copy of the source with the given id.
func (r *Registry) Get(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sources[id]
	if !ok {
		return Source{}, eris.Errorf("registry: unknown source %q", id)
	}
	return rec.src, nil
}

// ListActive returns copies of every source whose health status is not
// inactive, in registration order. A non-empty region narrows the list to
// sources serving that region.
func (r *Registry) ListActive(region string) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Source
	for _, id := range r.order {
		src := r.sources[id].src
		if src.HealthStatus == HealthInactive {
			continue
		}
		if region != "" && !src.ServesRegion(region) {
			continue
		}
		out = append(out, src)
	}
	return out
}

// Snapshot returns copies of all sources in registration order.
func (r *Registry) Snapshot() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id].src)
	}
	return out
}

// RecordSuccess rewards a successful call or probe: reliability +1 (clamped),
// health active, rolling response time folded in.
func (r *Registry) RecordSuccess(id string, latencyMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sources[id]
	if !ok {
		return
	}

	rec.consecutiveFailures = 0
	rec.src.Reliability = clamp(rec.src.Reliability + r.tuning.SuccessReward)
	rec.src.HealthStatus = HealthActive
	rec.src.LastHealthCheck = r.nowFunc()

	if latencyMs > 0 {
		if rec.src.ResponseTimeMs == 0 {
			rec.src.ResponseTimeMs = latencyMs
		} else {
			a := r.tuning.LatencyAlpha
			rec.src.ResponseTimeMs = (1-a)*rec.src.ResponseTimeMs + a*latencyMs
		}
	}
}

// RecordFailure penalizes a failed call or probe: reliability -5, or -10 once
// failures repeat, clamped at 0. The source goes inactive when reliability
// drops below the operational floor, degraded otherwise.
func (r *Registry) RecordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sources[id]
	if !ok {
		return
	}

	rec.consecutiveFailures++
	penalty := r.tuning.FailurePenalty
	if rec.consecutiveFailures >= r.tuning.RepeatThreshold {
		penalty = r.tuning.RepeatPenalty
	}

	rec.src.Reliability = clamp(rec.src.Reliability - penalty)
	rec.src.LastHealthCheck = r.nowFunc()

	if rec.src.Reliability < r.tuning.ReliabilityFloor {
		if rec.src.HealthStatus != HealthInactive {
			zap.L().Warn("registry: source went inactive",
				zap.String("source", id),
				zap.Int("reliability", rec.src.Reliability),
			)
		}
		rec.src.HealthStatus = HealthInactive
	} else {
		rec.src.HealthStatus = HealthDegraded
	}
}

// AddUsage increments a source's daily usage counter.
func (r *Registry) AddUsage(id string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.sources[id]; ok {
		rec.src.DailyUsage += n
	}
}

// ResetUsage zeroes every source's daily usage counter. Called on the daily
// rollover; exhausted sources become eligible for planning again.
func (r *Registry) ResetUsage() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.sources {
		rec.src.DailyUsage = 0
	}
	zap.L().Info("registry: daily usage counters reset", zap.Int("sources", len(r.sources)))
}

// Counts returns the number of non-inactive sources and the total.
func (r *Registry) Counts() (active, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.sources {
		if rec.src.HealthStatus != HealthInactive {
			active++
		}
	}
	return active, len(r.sources)
}

// IDs returns all registered source ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.Strings(ids)
	return ids
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
