package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/riftword/autocomplete/internal/metrics"
	"github.com/riftword/autocomplete/internal/persistence/persistencetest"
	"github.com/riftword/autocomplete/internal/pipeline"
	"github.com/riftword/autocomplete/internal/spell"
	"github.com/riftword/autocomplete/pkg/models"
)

func newTestService() *AutocompleteService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	model := spell.LoadWords([]string{"apple", "apple", "apple", "application"})
	expander := pipeline.NewSpellExpander(model)

	cfg := Config{MaxSuggestions: 10, TopK: 10, RebuildThreshold: 1, FuzzyThreshold: 2}
	return NewAutocompleteService(cfg, expander, nil, nil, logger, metrics.NewMetrics())
}

func TestAutocompleteService_GetSuggestions_EmptyQuery(t *testing.T) {
	svc := newTestService()
	resp, err := svc.GetSuggestions(context.Background(), models.AutocompleteRequest{Query: "  "})
	assert.NoError(t, err)
	assert.Equal(t, "empty", resp.Source)
	assert.Empty(t, resp.Suggestions)
}

func TestAutocompleteService_GetSuggestions_ReturnsInsertedTerm(t *testing.T) {
	svc := newTestService()
	assert.NoError(t, svc.AddTerm("apple"))

	// The rebuild threshold is 1, so a search's own insert is folded
	// into top-results only after that search completes; the second
	// call is the first to see it, matching the pipeline's
	// search-then-rebuild ordering.
	_, err := svc.GetSuggestions(context.Background(), models.AutocompleteRequest{Query: "apple"})
	assert.NoError(t, err)

	resp, err := svc.GetSuggestions(context.Background(), models.AutocompleteRequest{Query: "apple"})
	assert.NoError(t, err)
	found := false
	for _, s := range resp.Suggestions {
		if s.Term == "apple" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAutocompleteService_DeleteTerm(t *testing.T) {
	svc := newTestService()
	assert.NoError(t, svc.AddTerm("banana"))
	svc.DeleteTerm("banana")

	stats := svc.GetIndexStats()
	assert.NotNil(t, stats["node_count"])
}

func TestAutocompleteService_SyncFullAndIncremental(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	model := spell.LoadWords([]string{"cat"})
	expander := pipeline.NewSpellExpander(model)
	cfg := Config{MaxSuggestions: 10, TopK: 10, RebuildThreshold: 1}

	adapter := persistencetest.NewMemoryAdapter()
	svc := NewAutocompleteService(cfg, expander, nil, adapter, logger, metrics.NewMetrics())

	assert.NoError(t, svc.AddTerm("cat"))
	assert.NoError(t, svc.SyncFull(context.Background()))
	assert.NoError(t, svc.SyncIncremental(context.Background(), nil))

	resp, err := svc.GetSuggestions(context.Background(), models.AutocompleteRequest{Query: "cat"})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Suggestions)
}
