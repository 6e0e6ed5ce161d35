// Package cache stores finished extraction results keyed by URL.
// Rendered results are kept longer than direct ones: a browser render
// costs an order of magnitude more to refresh.
package cache

import (
	"sync"
	"time"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// Cache is the result-cache contract shared by the in-memory and redis
// backends.
type Cache interface {
	Get(url string) (*models.ProductRecord, bool)
	Set(url string, record *models.ProductRecord, strategy models.Strategy)
	Close() error
}

type entry struct {
	record     *models.ProductRecord
	insertedAt time.Time
	expiresAt  time.Time
}

// MemoryCache is a capacity-bounded FIFO cache: when full, the
// oldest-inserted entry is evicted regardless of access recency.
type MemoryCache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	order       []string
	capacity    int
	directTTL   time.Duration
	renderedTTL time.Duration
	now         func() time.Time
}

func NewMemoryCache(capacity int, directTTL, renderedTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:     make(map[string]*entry, capacity),
		order:       make([]string, 0, capacity),
		capacity:    capacity,
		directTTL:   directTTL,
		renderedTTL: renderedTTL,
		now:         time.Now,
	}
}

func (c *MemoryCache) Get(url string) (*models.ProductRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	if !ok {
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.removeLocked(url)
		return nil, false
	}

	return e.record, true
}

func (c *MemoryCache) Set(url string, record *models.ProductRecord, strategy models.Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.directTTL
	if strategy == models.StrategyRendered {
		ttl = c.renderedTTL
	}

	if _, exists := c.entries[url]; exists {
		c.removeLocked(url)
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	now := c.now()
	c.entries[url] = &entry{
		record:     record,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.order = append(c.order, url)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) removeLocked(url string) {
	delete(c.entries, url)
	for i, key := range c.order {
		if key == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
