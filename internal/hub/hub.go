// Package hub is the orchestration facade: it turns a search request into a
// plan, fans the plan out across source adapters, fuses the responses, and
// records what happened.
package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reelscout/discovery-cli/internal/analytics"
	"github.com/reelscout/discovery-cli/internal/cache"
	"github.com/reelscout/discovery-cli/internal/fanout"
	"github.com/reelscout/discovery-cli/internal/fusion"
	"github.com/reelscout/discovery-cli/internal/model"
	"github.com/reelscout/discovery-cli/internal/planner"
	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
	"github.com/reelscout/discovery-cli/internal/store"
)

// Options tunes hub behavior. Zero values fall back to sane defaults.
type Options struct {
	CacheTTL    time.Duration
	ResultLimit int
}

// Hub coordinates the registry, planner, executor, ranker, recorder, cache,
// and store behind a small facade. All methods are safe for concurrent use.
type Hub struct {
	reg      *registry.Registry
	adapters *source.Set
	planner  *planner.Planner
	executor *fanout.Executor
	ranker   *fusion.Ranker
	recorder *analytics.Recorder
	cache    cache.Cache
	store    store.Store
	opts     Options
	nowFunc  func() time.Time
}

// New wires a Hub from its collaborators. cache and st may be nil to disable
// caching and persistence respectively.
func New(
	reg *registry.Registry,
	adapters *source.Set,
	executor *fanout.Executor,
	ranker *fusion.Ranker,
	recorder *analytics.Recorder,
	c cache.Cache,
	st store.Store,
	opts Options,
) *Hub {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = fusion.DefaultLimit
	}
	return &Hub{
		reg:      reg,
		adapters: adapters,
		planner:  planner.New(reg),
		executor: executor,
		ranker:   ranker,
		recorder: recorder,
		cache:    c,
		store:    st,
		opts:     opts,
		nowFunc:  time.Now,
	}
}

// WithNow overrides the clock for tests.
func (h *Hub) WithNow(now func() time.Time) *Hub {
	h.nowFunc = now
	return h
}

// IntelligentSearch runs one federated search end to end. Planning failures
// (no eligible sources) produce an empty successful result, not an error: a
// degraded answer beats no answer.
func (h *Hub) IntelligentSearch(ctx context.Context, req *model.SearchRequest) (*model.SearchResult, error) {
	start := h.nowFunc()
	h.recorder.ObserveRequest()

	strategy := planner.ResolveStrategy(req)
	limit := req.Limit
	if limit <= 0 {
		limit = h.opts.ResultLimit
	}

	var key string
	if h.cache != nil {
		key = cache.Key(req, strategy)
		if cached, ok := h.cache.Get(key); ok {
			h.recorder.ObserveCache(true)
			res := *cached
			res.Metadata.CacheHit = true
			res.Analytics = h.requestAnalytics(nil)
			zap.L().Debug("search cache hit", zap.String("query", req.Query))
			return &res, nil
		}
		h.recorder.ObserveCache(false)
	}

	plan := h.planner.Build(req)
	if len(plan.Sources) == 0 {
		zap.L().Warn("no eligible sources for search",
			zap.String("query", req.Query),
			zap.String("strategy", string(strategy)))
		res := h.emptyResult(strategy, start)
		h.persist(ctx, req, strategy, res)
		return res, nil
	}

	outcome := h.executor.Run(ctx, plan, source.Query{
		Text:    req.Query,
		Filters: req.Filters,
		Limit:   limit,
	})

	results := h.ranker.Fuse(outcome.Results, limit)

	res := &model.SearchResult{
		Results: results,
		Metadata: model.SearchMetadata{
			TotalResults: len(results),
			SourcesUsed:  outcome.SourcesUsed,
			SearchTimeMs: h.nowFunc().Sub(start).Milliseconds(),
			Confidence:   overallConfidence(results),
			Strategy:     strategy,
			CostIncurred: outcome.CostIncurred,
		},
		Analytics: h.requestAnalytics(plan.Sources),
	}

	h.persist(ctx, req, strategy, res)

	if h.cache != nil && len(outcome.SourcesUsed) > 0 {
		h.cache.Set(key, res, h.opts.CacheTTL)
	}

	zap.L().Info("search completed",
		zap.String("query", req.Query),
		zap.String("strategy", string(strategy)),
		zap.Int("results", len(results)),
		zap.Strings("sources", outcome.SourcesUsed),
		zap.Int64("duration_ms", res.Metadata.SearchTimeMs))

	return res, nil
}

func (h *Hub) emptyResult(strategy model.Strategy, start time.Time) *model.SearchResult {
	return &model.SearchResult{
		Results: []model.EnhancedResult{},
		Metadata: model.SearchMetadata{
			SourcesUsed:  []string{},
			SearchTimeMs: h.nowFunc().Sub(start).Milliseconds(),
			Strategy:     strategy,
		},
		Analytics: h.requestAnalytics(nil),
	}
}

func (h *Hub) requestAnalytics(planned []registry.Source) model.RequestAnalytics {
	ra := model.RequestAnalytics{
		CacheHitRate:   h.recorder.CacheHitRate(),
		FailoverEvents: h.recorder.FailoverEvents(),
	}
	if len(planned) > 0 {
		ra.SourcePerformance = analytics.PerformanceBySource(planned)
	}
	return ra
}

// persist records the search best-effort; storage trouble never fails a
// search that already has an answer.
func (h *Hub) persist(ctx context.Context, req *model.SearchRequest, strategy model.Strategy, res *model.SearchResult) {
	if h.store == nil {
		return
	}
	err := h.store.RecordSearch(ctx, store.SearchRecord{
		Query:        req.Query,
		Strategy:     string(strategy),
		SourcesUsed:  res.Metadata.SourcesUsed,
		ResultCount:  len(res.Results),
		DurationMs:   res.Metadata.SearchTimeMs,
		Confidence:   res.Metadata.Confidence,
		CostIncurred: res.Metadata.CostIncurred,
		CacheHit:     res.Metadata.CacheHit,
	})
	if err != nil {
		zap.L().Warn("record search failed", zap.Error(err))
	}
}

// overallConfidence is the mean confidence of the fused results.
func overallConfidence(results []model.EnhancedResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}

// SystemStatus summarizes fleet health for operators.
type SystemStatus struct {
	Status           string    `json:"status"` // healthy, degraded, critical
	HealthPercentage float64   `json:"health_percentage"`
	ActiveSources    int       `json:"active_sources"`
	TotalSources     int       `json:"total_sources"`
	LastUpdated      time.Time `json:"last_updated"`
}

// SystemHealth reports the fleet's aggregate health.
func (h *Hub) SystemHealth() SystemStatus {
	active, total := h.reg.Counts()

	pct := 0.0
	if total > 0 {
		pct = float64(active) / float64(total) * 100
	}

	status := "critical"
	switch {
	case pct >= 80:
		status = "healthy"
	case pct >= 50:
		status = "degraded"
	}

	return SystemStatus{
		Status:           status,
		HealthPercentage: pct,
		ActiveSources:    active,
		TotalSources:     total,
		LastUpdated:      h.nowFunc().UTC(),
	}
}

// Dashboard aggregates the recorder's counters with per-source detail.
type Dashboard struct {
	Overview Snapshot                 `json:"overview"`
	Sources  []analytics.SourceDetail `json:"sources"`
}

// Snapshot re-exports the recorder's overview for the dashboard payload.
type Snapshot = analytics.Snapshot

// AnalyticsDashboard returns current usage, cache, and per-source statistics.
func (h *Hub) AnalyticsDashboard() Dashboard {
	return Dashboard{
		Overview: h.recorder.Overview(),
		Sources:  h.recorder.SourceDetails(h.reg.Snapshot()),
	}
}

// SearchHistory returns the most recent persisted searches.
func (h *Hub) SearchHistory(ctx context.Context, limit int) ([]store.SearchRecord, error) {
	if h.store == nil {
		return nil, nil
	}
	return h.store.ListSearches(ctx, limit)
}

// FlushSnapshot persists the recorder's current counters.
func (h *Hub) FlushSnapshot(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ov := h.recorder.Overview()
	return h.store.RecordSnapshot(ctx, store.SnapshotRecord{
		TotalRequests:  ov.TotalRequests,
		TotalCalls:     ov.TotalCalls,
		FailoverEvents: ov.FailoverEvents,
		CacheHitRate:   ov.CacheHitRate,
		CollectedAt:    h.nowFunc().UTC(),
	})
}

// Sources returns a point-in-time copy of every registered source.
func (h *Hub) Sources() []registry.Source {
	return h.reg.Snapshot()
}
