package utils

import (
	"strings"

	"github.com/riftword/autocomplete/internal/spell"
)

// FuzzyMatcher decides whether two strings are "close enough" to treat
// as the same query, used by the autocomplete service as a last-resort
// fallback over recent-search history when the pipeline's own spell
// expansion finds nothing. A plain edit-distance threshold misses a
// query whose stem matches a candidate's stem but whose edit distance
// exceeds the threshold (e.g. "running" vs "run"); attaching a spelling
// model via WithModel lets IsMatch consult that model's stem index
// first.
type FuzzyMatcher struct {
	threshold int
	model     *spell.Model
}

// NewFuzzyMatcher creates a new fuzzy matcher with given threshold
func NewFuzzyMatcher(threshold int) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = 2 // Default threshold
	}

	return &FuzzyMatcher{
		threshold: threshold,
	}
}

// WithModel attaches a spelling model whose stem index IsMatch
// consults before falling back to plain edit distance. Returns the
// matcher for chaining.
func (f *FuzzyMatcher) WithModel(model *spell.Model) *FuzzyMatcher {
	f.model = model
	return f
}

// LevenshteinDistance calculates the Levenshtein distance between two strings
func (f *FuzzyMatcher) LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Create a 2D slice to store distances
	d := make([][]int, len(s1)+1)
	for i := range d {
		d[i] = make([]int, len(s2)+1)
	}

	// Initialize first row and column
	for i := 0; i <= len(s1); i++ {
		d[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		d[0][j] = j
	}

	// Fill the distance matrix
	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			d[i][j] = min(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[len(s1)][len(s2)]
}

// IsMatch reports whether s1 and s2 should be considered the same
// query: either they share a stem (when a model is attached) or their
// edit distance falls within the configured threshold.
func (f *FuzzyMatcher) IsMatch(s1, s2 string) bool {
	a, b := strings.ToLower(s1), strings.ToLower(s2)
	if f.model != nil {
		for _, stemmed := range f.model.KnownByStem(a) {
			if stemmed == b {
				return true
			}
		}
	}
	return f.LevenshteinDistance(a, b) <= f.threshold
}

// GetSimilarity returns a similarity score between 0 and 1
func (f *FuzzyMatcher) GetSimilarity(s1, s2 string) float64 {
	distance := f.LevenshteinDistance(strings.ToLower(s1), strings.ToLower(s2))
	maxLen := max(len(s1), len(s2))

	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(distance)/float64(maxLen)
}
