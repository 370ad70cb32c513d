package model

import "time"

// RawResult is one candidate entity as returned by a single source adapter.
// Adapters are responsible for mapping provider payloads into this canonical
// schema; the hub never sees provider wire formats.
type RawResult struct {
	CanonicalID       string   `json:"canonical_id"`
	Title             string   `json:"title"`
	Overview          string   `json:"overview,omitempty"`
	ReleaseYear       int      `json:"release_year,omitempty"`
	Rating            float64  `json:"rating,omitempty"`     // 0-10
	Popularity        float64  `json:"popularity,omitempty"` // 0-100
	Genres            []string `json:"genres,omitempty"`
	Confidence        float64  `json:"confidence"`                   // 0-100
	CulturalRelevance float64  `json:"cultural_relevance,omitempty"` // 0-100
	TrendingScore     float64  `json:"trending_score,omitempty"`     // 0-100

	Ratings      *RatingsConsensus `json:"ratings,omitempty"`
	Availability []Availability    `json:"availability,omitempty"`
	Showtimes    []Showtime        `json:"showtimes,omitempty"`
	Social       *SocialMetrics    `json:"social,omitempty"`
}

// RatingsConsensus aggregates critic and audience scores from review sources.
type RatingsConsensus struct {
	CriticScore   float64 `json:"critic_score,omitempty"`
	AudienceScore float64 `json:"audience_score,omitempty"`
	ReviewCount   int     `json:"review_count,omitempty"`
}

// Availability describes where content can be watched in a region.
type Availability struct {
	Region  string `json:"region"`
	Service string `json:"service"`
	Kind    string `json:"kind,omitempty"` // stream, rent, buy
}

// Showtime is a theatrical screening in a region.
type Showtime struct {
	Region   string    `json:"region"`
	Theater  string    `json:"theater"`
	StartsAt time.Time `json:"starts_at"`
}

// SocialMetrics holds social-buzz signals contributed by social sources.
type SocialMetrics struct {
	Mentions  int     `json:"mentions,omitempty"`
	Sentiment float64 `json:"sentiment,omitempty"` // -1..1
}

// EnhancedResult is a fused entity: one canonical entry backed by one or more
// contributing sources. Corroboration across sources raises confidence, never
// dilutes it.
type EnhancedResult struct {
	CanonicalID       string   `json:"canonical_id"`
	Title             string   `json:"title"`
	Overview          string   `json:"overview,omitempty"`
	ReleaseYear       int      `json:"release_year,omitempty"`
	Rating            float64  `json:"rating,omitempty"`
	Popularity        float64  `json:"popularity,omitempty"`
	Genres            []string `json:"genres,omitempty"`
	Sources           []string `json:"sources"`
	Confidence        float64  `json:"confidence"`
	CulturalRelevance float64  `json:"cultural_relevance,omitempty"`
	TrendingScore     float64  `json:"trending_score,omitempty"`
	Score             float64  `json:"score"`

	Ratings      *RatingsConsensus `json:"ratings,omitempty"`
	Availability []Availability    `json:"availability,omitempty"`
	Showtimes    []Showtime        `json:"showtimes,omitempty"`
	Social       *SocialMetrics    `json:"social,omitempty"`
}

// SearchMetadata describes how a SearchResult was produced.
type SearchMetadata struct {
	TotalResults int      `json:"total_results"`
	SourcesUsed  []string `json:"sources_used"`
	SearchTimeMs int64    `json:"search_time_ms"`
	Confidence   float64  `json:"confidence"`
	Strategy     Strategy `json:"strategy"`
	CostIncurred float64  `json:"cost_incurred"`
	CacheHit     bool     `json:"cache_hit,omitempty"`
}

// RequestAnalytics is the operational snapshot attached to each response.
type RequestAnalytics struct {
	SourcePerformance map[string]float64 `json:"source_performance,omitempty"`
	CacheHitRate      float64            `json:"cache_hit_rate"`
	FailoverEvents    int64              `json:"failover_events"`
}

// SearchResult is the fused, ranked answer to one SearchRequest.
type SearchResult struct {
	Results   []EnhancedResult `json:"results"`
	Metadata  SearchMetadata   `json:"metadata"`
	Analytics RequestAnalytics `json:"analytics"`
}
