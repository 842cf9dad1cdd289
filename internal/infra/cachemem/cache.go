package cachemem

import (
	"context"
	"sync"
	"time"

	"ballotd/internal/domain"
	"ballotd/internal/usecase"
)

// Cache is an in-process TTL cache for analytics snapshots, keyed by
// election id. Reads evict expired entries lazily.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     domain.AnalyticsSnapshot
	expiresAt time.Time
	hasExpiry bool
}

func New() *Cache {
	return &Cache{
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// NewWithClock is for tests that need to control expiry.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	if now != nil {
		c.now = now
	}
	return c
}

func (c *Cache) Get(ctx context.Context, electionID string) (*domain.AnalyticsSnapshot, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[electionID]
	if !ok {
		return nil, false, nil
	}
	if entry.hasExpiry && c.now().After(entry.expiresAt) {
		delete(c.entries, electionID)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *Cache) Put(ctx context.Context, electionID string, snap domain.AnalyticsSnapshot, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: snap}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[electionID] = entry
	return nil
}

func (c *Cache) Evict(ctx context.Context, electionID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, electionID)
	c.mu.Unlock()
}

var _ usecase.SnapshotCache = (*Cache)(nil)
