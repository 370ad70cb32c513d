// Package planner turns a search request into an execution plan: which
// sources to query and under which strategy.
package planner

import (
	"sort"

	"go.uber.org/zap"

	"github.com/reelscout/discovery-cli/internal/model"
	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
)

// Plan is a concrete execution plan for one request.
type Plan struct {
	Strategy model.Strategy
	// Sources are ordered by candidate score descending; the first entry is
	// the primary source.
	Sources []registry.Source
}

// IDs returns the planned source ids, in plan order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		ids[i] = s.ID
	}
	return ids
}

// longQueryThreshold is the query length above which a request is assumed to
// need deeper semantic matching.
const longQueryThreshold = 50

// Planner reads registry state to build plans. It holds no mutable state of
// its own and is safe for concurrent use.
type Planner struct {
	reg *registry.Registry
}

// New creates a planner over the given registry.
func New(reg *registry.Registry) *Planner {
	return &Planner{reg: reg}
}

// ResolveStrategy applies the strategy selection rules, first match wins:
// explicit request strategy, comprehensive for located movie searches,
// premium for long queries or genre filters, fast otherwise.
func ResolveStrategy(req *model.SearchRequest) model.Strategy {
	if req.Strategy.Valid() {
		return req.Strategy
	}
	if req.Region() != "" && req.TargetsMovies() {
		return model.StrategyComprehensive
	}
	if len(req.Query) > longQueryThreshold || (req.Filters != nil && len(req.Filters.Genres) > 0) {
		return model.StrategyPremium
	}
	return model.StrategyFast
}

// Build produces the plan for a request. An empty source list means no source
// is currently eligible; callers degrade to an empty result, never an error.
func (p *Planner) Build(req *model.SearchRequest) Plan {
	strategy := ResolveStrategy(req)
	region := req.Region()

	candidates := p.reg.ListActive(region)
	eligible := candidates[:0:0]
	for _, src := range candidates {
		if src.Exhausted() {
			continue
		}
		eligible = append(eligible, src)
	}

	// Highest (priority × reliability) / (responseTime + 1) first. Id is the
	// final tie-break so identical registries always plan identically.
	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := candidateScore(eligible[i]), candidateScore(eligible[j])
		if si != sj {
			return si > sj
		}
		return eligible[i].ID < eligible[j].ID
	})

	plan := Plan{Strategy: strategy}
	picked := make(map[string]bool)
	add := func(src registry.Source) {
		if !picked[src.ID] {
			picked[src.ID] = true
			plan.Sources = append(plan.Sources, src)
		}
	}

	// Primary low-latency source: best eligible searcher.
	for _, src := range eligible {
		if src.HasCapability(source.CapabilitySearch) {
			add(src)
			break
		}
	}

	// Enrichment sources join deeper strategies when healthy.
	if strategy == model.StrategyComprehensive || strategy == model.StrategyPremium {
		for _, src := range eligible {
			if src.HealthStatus != registry.HealthActive {
				continue
			}
			if src.HasCapability(source.CapabilityCommunityRating) ||
				src.HasCapability(source.CapabilityCriticConsensus) ||
				src.HasCapability(source.CapabilitySocial) {
				add(src)
			}
		}
	}

	// Location-bound requests pull in regional availability when present.
	if region != "" {
		for _, src := range eligible {
			if src.HealthStatus != registry.HealthActive {
				continue
			}
			if src.HasCapability(source.CapabilityAvailability) ||
				src.HasCapability(source.CapabilityShowtimes) {
				add(src)
			}
		}
	}

	if len(plan.Sources) == 0 {
		zap.L().Warn("planner: no eligible sources for request",
			zap.String("strategy", string(strategy)),
			zap.String("region", region),
		)
	}
	return plan
}

func candidateScore(src registry.Source) float64 {
	return float64(src.Priority) * float64(src.Reliability) / (src.ResponseTimeMs + 1)
}
