// Package cache provides the result cache contract the hub consults before
// fanning out, plus an in-memory implementation. Eviction and tiering policy
// stay behind the interface; only the concurrent get/set contract matters to
// callers.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reelscout/discovery-cli/internal/model"
)

// Cache is the collaborator contract. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key string) (*model.SearchResult, bool)
	Set(key string, value *model.SearchResult, ttl time.Duration)
}

// Key derives the stable cache key for a request under a resolved strategy:
// SHA-256 hex over the normalized query, strategy, filters, and region, so
// identical searches map to identical keys regardless of field ordering.
func Key(req *model.SearchRequest, strategy model.Strategy) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(req.Query)),
		string(strategy),
		req.Region(),
	}
	if f := req.Filters; f != nil {
		genres := append([]string(nil), f.Genres...)
		sort.Strings(genres)
		parts = append(parts,
			strings.Join(genres, ","),
			fmt.Sprintf("%d-%d", f.YearFrom, f.YearTo),
			fmt.Sprintf("%.1f-%.1f", f.RatingMin, f.RatingMax),
			f.Region,
			f.Language,
			string(f.ContentType),
		)
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", h)
}
