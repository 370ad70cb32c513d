// Package source defines the capability interface every provider adapter
// implements, and the adapter set the hub queries through. Adapters own
// protocol, auth, and transport; the hub treats them uniformly.
package source

import (
	"context"
	"sort"
	"sync"

	"github.com/reelscout/discovery-cli/internal/model"
)

// Capability names advertised by sources and matched by the planner.
const (
	CapabilitySearch          = "search"
	CapabilityCommunityRating = "community_ratings"
	CapabilityCriticConsensus = "critic_consensus"
	CapabilityAvailability    = "availability"
	CapabilityShowtimes       = "showtimes"
	CapabilitySocial          = "social"
)

// Query is the provider-facing slice of a search request.
type Query struct {
	Text    string
	Filters *model.Filters
	Limit   int
}

// Adapter is the minimal contract every source adapter satisfies.
type Adapter interface {
	// ID matches the source id registered in the registry.
	ID() string
	// Search returns raw candidate entities for the query. Implementations
	// must honor ctx cancellation.
	Search(ctx context.Context, q Query) ([]model.RawResult, error)
}

// Prober is implemented by adapters that support a cheap health probe.
type Prober interface {
	Probe(ctx context.Context) error
}

// AvailabilityProvider is implemented by adapters that can report regional
// streaming or theatrical availability.
type AvailabilityProvider interface {
	Availability(ctx context.Context, region string) ([]model.Availability, error)
}

// Set holds the adapters available to the hub, keyed by source id.
type Set struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewSet creates an empty adapter set.
func NewSet() *Set {
	return &Set{adapters: make(map[string]Adapter)}
}

// Register adds an adapter, replacing any previous adapter with the same id.
func (s *Set) Register(a Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[a.ID()] = a
}

// Get returns the adapter for a source id, or nil if none is registered.
func (s *Set) Get(id string) Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapters[id]
}

// IDs returns all registered adapter ids, sorted.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.adapters))
	for id := range s.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
