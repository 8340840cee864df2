package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riftword/autocomplete/internal/metrics"
)

type cacheItem struct {
	results []string
	expiry  time.Time
}

// InMemoryCache is a process-local Adapter, used as a fallback when no
// Redis instance is configured. It adds a bounded recent-query history
// FIFO alongside the plain key/value cache the Adapter contract needs.
type InMemoryCache struct {
	mu      sync.Mutex
	data    map[string]cacheItem
	history []string
	ttl     time.Duration
	bound   int
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewInMemoryCache builds an InMemoryCache with the given TTL and
// history bound (DefaultHistoryBound if historyBound <= 0), starting a
// background goroutine that periodically evicts expired entries.
func NewInMemoryCache(ttl time.Duration, historyBound int, logger *logrus.Logger, metricsInstance *metrics.Metrics) *InMemoryCache {
	if historyBound <= 0 {
		historyBound = DefaultHistoryBound
	}
	c := &InMemoryCache{
		data:    make(map[string]cacheItem),
		ttl:     ttl,
		bound:   historyBound,
		logger:  logger,
		metrics: metricsInstance,
	}
	go c.cleanup()
	return c
}

// Get returns the cached results for query if present and unexpired.
func (c *InMemoryCache) Get(ctx context.Context, query string) ([]string, bool) {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.data[query]
	c.metrics.RecordCacheOperation("get", "memory", time.Since(start))

	if !exists || time.Now().After(item.expiry) {
		if exists {
			delete(c.data, query)
		}
		c.metrics.RecordCacheMiss("memory")
		return nil, false
	}
	c.metrics.RecordCacheHit("memory")
	return item.results, true
}

// Set stores results for query with the cache's configured TTL.
func (c *InMemoryCache) Set(ctx context.Context, query string, results []string) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[query] = cacheItem{results: results, expiry: time.Now().Add(c.ttl)}
	c.metrics.RecordCacheOperation("set", "memory", time.Since(start))
	return nil
}

// Delete evicts query.
func (c *InMemoryCache) Delete(ctx context.Context, query string) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, query)
	c.metrics.RecordCacheOperation("delete", "memory", time.Since(start))
	return nil
}

// PushHistory prepends query to the history list, trimming to the
// configured bound.
func (c *InMemoryCache) PushHistory(ctx context.Context, query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append([]string{query}, c.history...)
	if len(c.history) > c.bound {
		c.history = c.history[:c.bound]
	}
	return nil
}

// GetHistory returns up to limit of the most recently pushed queries.
func (c *InMemoryCache) GetHistory(ctx context.Context, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	out := make([]string, limit)
	copy(out, c.history[:limit])
	return out, nil
}

func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiry) {
				delete(c.data, key)
			}
		}
		c.mu.Unlock()
	}
}
