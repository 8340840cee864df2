// Package cache defines the CacheAdapter contract the autocomplete
// service uses to short-circuit repeated queries, plus a bounded
// recent-query history a client can page through. It generalizes the
// teacher's internal/cache package, whose Cache interface only had
// Get/Set/Delete over []models.Suggestion; this version caches the
// pipeline's flat ranked-term results and adds the history FIFO the
// original's Flask app exposed for "recent searches" style UI.
package cache

import "context"

// Adapter is the contract a caching backend must satisfy.
type Adapter interface {
	// Get returns the cached suggestion list for query, and whether it
	// was present (a cache hit).
	Get(ctx context.Context, query string) ([]string, bool)
	// Set stores results for query.
	Set(ctx context.Context, query string, results []string) error
	// Delete evicts query from the cache.
	Delete(ctx context.Context, query string) error
	// PushHistory records query as the most recently seen search,
	// trimming the stored history to its configured bound.
	PushHistory(ctx context.Context, query string) error
	// GetHistory returns up to limit of the most recently pushed
	// queries, most recent first.
	GetHistory(ctx context.Context, limit int) ([]string, error)
}

// DefaultHistoryBound is the number of recent queries kept when a
// backend isn't configured with an explicit bound.
const DefaultHistoryBound = 100
