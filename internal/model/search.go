package model

// Strategy selects how aggressively a search fans out across sources.
type Strategy string

const (
	// StrategyFast queries only the primary low-latency source.
	StrategyFast Strategy = "fast"
	// StrategyComprehensive adds enrichment and regional availability sources.
	StrategyComprehensive Strategy = "comprehensive"
	// StrategyPremium adds enrichment sources for deeper semantic matching.
	StrategyPremium Strategy = "premium"
)

// Valid reports whether s is a recognized strategy value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFast, StrategyComprehensive, StrategyPremium:
		return true
	}
	return false
}

// ContentType narrows a search to a kind of entertainment content.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// Filters holds optional narrowing criteria for a search.
type Filters struct {
	Genres      []string    `json:"genres,omitempty"`
	YearFrom    int         `json:"year_from,omitempty"`
	YearTo      int         `json:"year_to,omitempty"`
	RatingMin   float64     `json:"rating_min,omitempty"`
	RatingMax   float64     `json:"rating_max,omitempty"`
	Region      string      `json:"region,omitempty"`
	Language    string      `json:"language,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
}

// UserContext carries optional caller context that influences planning.
type UserContext struct {
	Region        string            `json:"region,omitempty"`
	Language      string            `json:"language,omitempty"`
	RecentQueries []string          `json:"recent_queries,omitempty"`
	Preferences   map[string]string `json:"preferences,omitempty"`
}

// SearchRequest is a single federated search. Requests own no persistent
// state; they are created per call and discarded with the response.
type SearchRequest struct {
	Query    string       `json:"query"`
	Filters  *Filters     `json:"filters,omitempty"`
	User     *UserContext `json:"user,omitempty"`
	Strategy Strategy     `json:"strategy,omitempty"`
	Limit    int          `json:"limit,omitempty"`
}

// Region returns the caller's region, or "" when no user context was supplied.
func (r *SearchRequest) Region() string {
	if r.User == nil {
		return ""
	}
	return r.User.Region
}

// TargetsMovies reports whether the request explicitly targets movie content.
func (r *SearchRequest) TargetsMovies() bool {
	return r.Filters != nil && r.Filters.ContentType == ContentTypeMovie
}
