// Package service wires the query pipeline, cache, and persistence
// layers behind a single façade the HTTP layer calls into: one service
// struct owning the pipeline, cache, and metrics, logging through
// logrus, returning a typed response object.
//
// The pipeline and index have no internal locking (see
// internal/trieindex's package doc): this service supplies the single
// serializing point, holding a sync.RWMutex around every pipeline
// call so concurrent HTTP handlers don't race on the trie.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riftword/autocomplete/internal/cache"
	"github.com/riftword/autocomplete/internal/metrics"
	"github.com/riftword/autocomplete/internal/persistence"
	"github.com/riftword/autocomplete/internal/pipeline"
	"github.com/riftword/autocomplete/internal/spell"
	"github.com/riftword/autocomplete/internal/trieindex"
	apierrors "github.com/riftword/autocomplete/pkg/errors"
	"github.com/riftword/autocomplete/pkg/models"
	"github.com/riftword/autocomplete/pkg/utils"
)

// Config holds service-level tuning knobs.
type Config struct {
	MaxSuggestions   int
	TopK             int
	RebuildThreshold int
	FuzzyThreshold   int
	CacheEnabled     bool
}

// AutocompleteService is the single entry point for query, mutation,
// and sync operations over the ranked-prefix index.
type AutocompleteService struct {
	mu sync.RWMutex

	pipeline     *pipeline.QueryPipeline
	cache        cache.Adapter
	persistence  persistence.Adapter
	logger       *logrus.Logger
	fuzzyMatcher *utils.FuzzyMatcher
	metrics      *metrics.Metrics
	config       Config
}

// NewAutocompleteService builds a service over a fresh index and the
// given Expander, cache, and persistence adapter.
func NewAutocompleteService(cfg Config, expander pipeline.Expander, cacheAdapter cache.Adapter, persistenceAdapter persistence.Adapter, logger *logrus.Logger, metricsInstance *metrics.Metrics) *AutocompleteService {
	idx := trieindex.New(cfg.TopK, cfg.RebuildThreshold)
	return &AutocompleteService{
		pipeline:     pipeline.New(idx, expander, cfg.MaxSuggestions),
		cache:        cacheAdapter,
		persistence:  persistenceAdapter,
		logger:       logger,
		fuzzyMatcher: utils.NewFuzzyMatcher(cfg.FuzzyThreshold).WithModel(spellModelOf(expander)),
		metrics:      metricsInstance,
		config:       cfg,
	}
}

// spellModelOf extracts the spelling model backing expander, if any, so
// the fuzzy fallback can consult the same stem index the pipeline
// itself expands against.
func spellModelOf(expander pipeline.Expander) *spell.Model {
	switch e := expander.(type) {
	case *pipeline.SpellExpander:
		return e.Model
	case *pipeline.HybridExpander:
		return e.Model
	default:
		return nil
	}
}

// GetSuggestions runs the query pipeline for req.Query, preferring a
// cache hit when one exists, and returns a ranked suggestion list.
func (s *AutocompleteService) GetSuggestions(ctx context.Context, req models.AutocompleteRequest) (*models.AutocompleteResponse, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordRequest("autocomplete", "service", "200", time.Since(start))
	}()

	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return &models.AutocompleteResponse{Query: req.Query, Suggestions: nil, Latency: time.Since(start).String(), Source: "empty"}, nil
	}
	if req.Limit <= 0 {
		req.Limit = s.config.MaxSuggestions
	}

	var terms []string
	var source string

	if s.cache != nil {
		if cached, found := s.cache.Get(ctx, query); found {
			terms = cached
			source = "cache"
			s.logger.WithField("query", query).Debug("cache hit")
		}
	}

	if len(terms) == 0 {
		s.mu.Lock()
		results, err := s.pipeline.Search(ctx, query)
		s.mu.Unlock()
		if err != nil {
			return nil, apierrors.MapCoreError("search", err)
		}
		terms = results
		source = "pipeline"
		s.metrics.RecordTrieSearch(len(terms))

		if s.cache != nil && len(terms) > 0 {
			go func() {
				if err := s.cache.Set(context.Background(), query, terms); err != nil {
					s.logger.WithError(err).Error("failed to cache results")
					s.metrics.RecordError("service", "cache_set_failed")
				}
			}()
		}

		if len(terms) == 0 {
			s.metrics.RecordFuzzySearch()
			if fuzzy := s.fuzzyFallback(ctx, query); len(fuzzy) > 0 {
				terms = fuzzy
				source = "fuzzy"
				s.metrics.RecordFuzzyMatch()
			}
		}
	}

	if s.cache != nil {
		go func() {
			if err := s.cache.PushHistory(context.Background(), query); err != nil {
				s.logger.WithError(err).Error("failed to push search history")
			}
		}()
	}

	if len(terms) > req.Limit {
		terms = terms[:req.Limit]
	}

	suggestions := make([]models.Suggestion, 0, len(terms))
	for _, term := range terms {
		suggestions = append(suggestions, models.Suggestion{Term: term, UpdatedAt: time.Now()})
	}

	return &models.AutocompleteResponse{
		Query:       req.Query,
		Suggestions: suggestions,
		Latency:     time.Since(start).String(),
		Source:      source,
	}, nil
}

// AddTerm inserts and bumps term directly, bypassing the expansion
// pipeline. Used for seeding the index from a batch load.
func (s *AutocompleteService) AddTerm(term string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.pipeline.Index.InsertBump(strings.ToLower(strings.TrimSpace(term)))
	if err != nil {
		return apierrors.MapCoreError("insert", err)
	}
	s.metrics.RecordTrieInsert()
	s.metrics.UpdateTrieSize(s.pipeline.Index.NodeCount())
	return nil
}

// BatchAddTerms inserts many terms, logging but not aborting on a
// per-term failure.
func (s *AutocompleteService) BatchAddTerms(terms []string) {
	for _, term := range terms {
		if err := s.AddTerm(term); err != nil {
			s.logger.WithError(err).WithField("term", term).Error("failed to add term")
		}
	}
}

// BumpTerm adds delta to term's usage count in a single step, used by
// the analytics pipeline to fold an aggregated batch of identical
// queries into the index without replaying it one bump at a time.
func (s *AutocompleteService) BumpTerm(term string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.pipeline.Index.BumpBy(strings.ToLower(strings.TrimSpace(term)), delta); err != nil {
		return apierrors.MapCoreError("bump", err)
	}
	return nil
}

// DeleteTerm removes term from the index and invalidates any cached
// results that might contain it.
func (s *AutocompleteService) DeleteTerm(term string) {
	s.mu.Lock()
	s.pipeline.Index.Delete(strings.ToLower(strings.TrimSpace(term)))
	s.metrics.RecordTrieDelete()
	s.metrics.UpdateTrieSize(s.pipeline.Index.NodeCount())
	s.mu.Unlock()

	if s.cache != nil {
		go s.invalidateCacheForTerm(term)
	}
}

// fuzzyFallback consults the recent-search history for queries whose
// edit distance to query falls within the configured fuzzy threshold,
// used as a last resort when the pipeline's own spell-expansion found
// nothing — e.g. a prefix typo that isn't a known edit-1/edit-2 of any
// indexed term but did get searched for recently.
func (s *AutocompleteService) fuzzyFallback(ctx context.Context, query string) []string {
	if s.cache == nil {
		return nil
	}
	history, err := s.cache.GetHistory(ctx, 200)
	if err != nil || len(history) == 0 {
		return nil
	}

	var matches []string
	for _, candidate := range history {
		if candidate == query {
			continue
		}
		if s.fuzzyMatcher.IsMatch(query, candidate) {
			matches = append(matches, candidate)
		}
	}
	return matches
}

func (s *AutocompleteService) invalidateCacheForTerm(term string) {
	ctx := context.Background()
	term = strings.ToLower(term)
	for i := 1; i <= len(term); i++ {
		if err := s.cache.Delete(ctx, term[:i]); err != nil {
			s.logger.WithError(err).WithField("prefix", term[:i]).Error("failed to invalidate cache")
		}
	}
}

// SyncFull replaces the index's persisted snapshot with its current
// in-memory contents, rebuilding top-results first so the persisted
// counts are current. The live index is not path-compressed.
func (s *AutocompleteService) SyncFull(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}
	s.mu.Lock()
	rebuildStart := time.Now()
	s.pipeline.Index.RebuildTopResults()
	s.metrics.RecordRebuild(time.Since(rebuildStart))
	err := s.pipeline.Index.Snapshot(ctx, s.persistence)
	s.mu.Unlock()
	if err != nil {
		return apierrors.NewCacheError("full sync", err)
	}
	return nil
}

// SyncIncremental restores the index from its last persisted snapshot
// and replays terms atop it, used on startup when the in-process index
// is empty but a prior snapshot exists.
func (s *AutocompleteService) SyncIncremental(ctx context.Context, terms []string) error {
	if s.persistence == nil {
		return nil
	}
	restored, err := trieindex.Restore(ctx, s.persistence, s.config.TopK, s.config.RebuildThreshold)
	if err != nil {
		return apierrors.MapCoreError("restore", err)
	}

	s.mu.Lock()
	s.pipeline.Index = restored
	s.mu.Unlock()

	for _, term := range terms {
		if err := s.AddTerm(term); err != nil {
			s.logger.WithError(err).WithField("term", term).Error("failed to replay term during incremental sync")
		}
	}
	return nil
}

// GetStats returns the service's shared metrics instance.
func (s *AutocompleteService) GetStats() *metrics.Metrics {
	return s.metrics
}

// GetIndexStats returns index-level statistics.
func (s *AutocompleteService) GetIndexStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"node_count": s.pipeline.Index.NodeCount(),
	}
}

// RecentSearches returns the cache's recent-query history, ranked most
// recent first.
func (s *AutocompleteService) RecentSearches(ctx context.Context, limit int) ([]models.RecentSearch, error) {
	if s.cache == nil {
		return nil, nil
	}
	queries, err := s.cache.GetHistory(ctx, limit)
	if err != nil {
		return nil, apierrors.NewCacheError("get_history", err)
	}
	out := make([]models.RecentSearch, len(queries))
	for i, q := range queries {
		out[i] = models.RecentSearch{Query: q, Rank: i + 1}
	}
	return out, nil
}

// NewSpellModelFromTerms builds a spell.Model seeded from a flat term
// list, used to bootstrap an Expander before any real corpus is
// loaded.
func NewSpellModelFromTerms(terms []string) *spell.Model {
	return spell.LoadWords(terms)
}
