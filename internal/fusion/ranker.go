// Package fusion deduplicates and ranks per-source result maps into one
// ordered canonical list.
package fusion

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/reelscout/discovery-cli/internal/model"
)

// DefaultLimit caps the ranked output when no explicit limit is given.
const DefaultLimit = 20

// Weights are the named, tunable ranking factors. The five dimension weights
// apply to 0-100 scales; the bonuses are additive points on top.
type Weights struct {
	Popularity        float64 `yaml:"popularity" mapstructure:"popularity"`
	Rating            float64 `yaml:"rating" mapstructure:"rating"`
	Confidence        float64 `yaml:"confidence" mapstructure:"confidence"`
	CulturalRelevance float64 `yaml:"cultural_relevance" mapstructure:"cultural_relevance"`
	Trending          float64 `yaml:"trending" mapstructure:"trending"`

	// CorroborationBonus points per contributing source, capped at
	// CorroborationCap total.
	CorroborationBonus float64 `yaml:"corroboration_bonus" mapstructure:"corroboration_bonus"`
	CorroborationCap   float64 `yaml:"corroboration_cap" mapstructure:"corroboration_cap"`

	// RecencyBonus points for a current-year release, fading by RecencyDecay
	// per year of age and flooring at zero.
	RecencyBonus float64 `yaml:"recency_bonus" mapstructure:"recency_bonus"`
	RecencyDecay float64 `yaml:"recency_decay" mapstructure:"recency_decay"`
}

// DefaultWeights returns the standard ranking parameters.
func DefaultWeights() Weights {
	return Weights{
		Popularity:         0.30,
		Rating:             0.25,
		Confidence:         0.20,
		CulturalRelevance:  0.15,
		Trending:           0.10,
		CorroborationBonus: 5,
		CorroborationCap:   20,
		RecencyBonus:       5,
		RecencyDecay:       0.5,
	}
}

// Ranker fuses per-source result maps. Safe for concurrent use.
type Ranker struct {
	weights Weights
	limit   int
	nowFunc func() time.Time
}

// New creates a ranker. A non-positive limit falls back to DefaultLimit.
func New(weights Weights, limit int) *Ranker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ranker{weights: weights, limit: limit, nowFunc: time.Now}
}

// WithNow sets a fixed clock for testing the recency bonus.
func (r *Ranker) WithNow(now func() time.Time) *Ranker {
	r.nowFunc = now
	return r
}

type entity struct {
	model.EnhancedResult
	ratingSum   float64
	ratingCount int
	sourceSet   map[string]bool
}

// Fuse merges the per-source raw results into one ranked list. Entities
// sharing a canonical id are merged: sources union, confidence and cultural
// relevance take the maximum across duplicates so corroboration can only
// raise them. Malformed entities (no canonical id) are dropped, never abort
// the batch. Limit may override the ranker default; pass 0 to keep it.
func (r *Ranker) Fuse(raw map[string][]model.RawResult, limit int) []model.EnhancedResult {
	if limit <= 0 {
		limit = r.limit
	}

	// Iterate sources in sorted order so merge side effects (first-writer
	// wins for title/overview) are reproducible.
	sourceIDs := make([]string, 0, len(raw))
	for id := range raw {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	merged := make(map[string]*entity)
	dropped := 0
	for _, sid := range sourceIDs {
		for _, rr := range raw[sid] {
			key := canonicalKey(rr.CanonicalID)
			if key == "" {
				dropped++
				continue
			}
			ent := merged[key]
			if ent == nil {
				ent = &entity{sourceSet: make(map[string]bool)}
				ent.CanonicalID = rr.CanonicalID
				merged[key] = ent
			}
			mergeInto(ent, sid, rr)
		}
	}
	if dropped > 0 {
		zap.L().Debug("fusion: dropped malformed entities", zap.Int("count", dropped))
	}

	now := r.nowFunc()
	ranked := make([]model.EnhancedResult, 0, len(merged))
	for _, ent := range merged {
		ent.Sources = setToSorted(ent.sourceSet)
		if ent.ratingCount > 0 {
			ent.Rating = ent.ratingSum / float64(ent.ratingCount)
		}
		ent.Score = r.score(ent, now)
		ranked = append(ranked, ent.EnhancedResult)
	}

	// Deterministic total order: score desc, corroboration desc, id asc.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if len(ranked[i].Sources) != len(ranked[j].Sources) {
			return len(ranked[i].Sources) > len(ranked[j].Sources)
		}
		return ranked[i].CanonicalID < ranked[j].CanonicalID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func mergeInto(ent *entity, sourceID string, rr model.RawResult) {
	ent.sourceSet[sourceID] = true

	if ent.Title == "" {
		ent.Title = rr.Title
	}
	if ent.Overview == "" {
		ent.Overview = rr.Overview
	}
	if ent.ReleaseYear == 0 {
		ent.ReleaseYear = rr.ReleaseYear
	}
	if len(ent.Genres) == 0 {
		ent.Genres = rr.Genres
	}

	// Corroboration raises, never dilutes.
	ent.Confidence = max(ent.Confidence, rr.Confidence)
	ent.CulturalRelevance = max(ent.CulturalRelevance, rr.CulturalRelevance)
	ent.TrendingScore = max(ent.TrendingScore, rr.TrendingScore)
	ent.Popularity = max(ent.Popularity, rr.Popularity)

	if rr.Rating > 0 {
		ent.ratingSum += rr.Rating
		ent.ratingCount++
	}

	// Enrichment blocks: keep the first of each, append regional lists.
	if ent.Ratings == nil {
		ent.Ratings = rr.Ratings
	}
	if ent.Social == nil {
		ent.Social = rr.Social
	}
	ent.Availability = append(ent.Availability, rr.Availability...)
	ent.Showtimes = append(ent.Showtimes, rr.Showtimes...)
}

// score computes the weighted composite. Rating averages sit on a 0-10 scale
// and are lifted to 0-100 before weighting so every dimension is comparable.
func (r *Ranker) score(ent *entity, now time.Time) float64 {
	w := r.weights
	s := w.Popularity*ent.Popularity +
		w.Rating*(ent.Rating*10) +
		w.Confidence*ent.Confidence +
		w.CulturalRelevance*ent.CulturalRelevance +
		w.Trending*ent.TrendingScore

	corroboration := w.CorroborationBonus * float64(len(ent.sourceSet))
	if corroboration > w.CorroborationCap {
		corroboration = w.CorroborationCap
	}
	s += corroboration

	if ent.ReleaseYear > 0 {
		age := float64(now.Year() - ent.ReleaseYear)
		if recency := w.RecencyBonus - w.RecencyDecay*age; recency > 0 {
			s += recency
		}
	}
	return s
}

func setToSorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
