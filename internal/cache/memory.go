package cache

import (
	"sync"
	"time"

	"github.com/reelscout/discovery-cli/internal/model"
)

type entry struct {
	value     *model.SearchResult
	expiresAt time.Time
}

// Memory is a concurrency-safe in-process TTL cache. Expired entries are
// rejected on read and swept opportunistically on write.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	writes  int

	nowFunc func() time.Time
}

// sweepEvery controls how many writes pass between expiry sweeps.
const sweepEvery = 64

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (m *Memory) WithNow(now func() time.Time) *Memory {
	m.nowFunc = now
	return m
}

// Get implements Cache.
func (m *Memory) Get(key string) (*model.SearchResult, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.nowFunc().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set implements Cache. A non-positive ttl stores nothing.
func (m *Memory) Set(key string, value *model.SearchResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, expiresAt: m.nowFunc().Add(ttl)}
	m.writes++
	if m.writes%sweepEvery == 0 {
		now := m.nowFunc()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
}

// Len returns the number of stored entries, expired included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
