package cache

import (
	"context"
	"sync"
	"time"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

type memoryEntry struct {
	result    providers.CreditResult
	expiresAt time.Time
}

// InMemoryCache is a map-backed Cache for single-instance deployments and
// tests. Expired entries are evicted lazily on read.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// InMemoryCacheOption configures an InMemoryCache.
type InMemoryCacheOption func(*InMemoryCache)

// WithClock overrides the time source, used by tests to step past TTLs.
func WithClock(now func() time.Time) InMemoryCacheOption {
	return func(c *InMemoryCache) {
		c.now = now
	}
}

func NewInMemoryCache(opts ...InMemoryCacheOption) *InMemoryCache {
	c := &InMemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *InMemoryCache) Get(_ context.Context, taxID string) (*providers.CreditResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[taxID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have raced the eviction.
		if current, ok := c.entries[taxID]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, taxID)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	result := entry.result
	return &result, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, taxID string, result *providers.CreditResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[taxID] = memoryEntry{
		result:    *result,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, taxID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, taxID)
	return nil
}

// Len reports the number of live entries, used by tests.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
