// Package spell implements the frequency-table spelling corrector the
// query pipeline uses to expand a raw token into a short list of likely
// whole-word candidates. It is a direct port of the classic Norvig
// corrector (see original_source/src/Spell.py). It also indexes corpus
// words by stem via github.com/kljensen/snowball; KnownByStem exposes
// that index as a standalone lookup, separate from Candidates' own
// four-tier fallback chain, for callers such as pipeline.HybridExpander
// that want a further fallback once Candidates has already missed.
package spell

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/kljensen/snowball"
)

var tokenPattern = regexp.MustCompile(`\w+`)

const lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"

// Model is an immutable-after-load frequency table built from a reference
// corpus. The zero value is not usable; construct with New or Load.
type Model struct {
	words      map[string]int64
	stems      map[string][]string // stem -> known words sharing that stem
	totalWords int64
}

// New returns an empty model (no known words). Candidates on an empty
// model always fall back to the input word itself.
func New() *Model {
	return &Model{
		words: make(map[string]int64),
		stems: make(map[string][]string),
	}
}

// Load builds a model from corpus text: tokenize by word-character runs,
// lowercase, count occurrences. Immutable once returned.
func Load(corpus io.Reader) (*Model, error) {
	text, err := io.ReadAll(corpus)
	if err != nil {
		return nil, err
	}
	m := New()
	for _, tok := range tokenPattern.FindAllString(string(text), -1) {
		word := strings.ToLower(tok)
		m.words[word]++
		m.totalWords++
	}
	m.indexStems()
	return m, nil
}

// LoadWords builds a model directly from a slice of (already tokenized)
// words, used when seeding from in-memory suggestion data rather than raw
// corpus text.
func LoadWords(words []string) *Model {
	m := New()
	for _, w := range words {
		word := strings.ToLower(strings.TrimSpace(w))
		if word == "" {
			continue
		}
		m.words[word]++
		m.totalWords++
	}
	m.indexStems()
	return m
}

func (m *Model) indexStems() {
	for word := range m.words {
		stem, err := snowball.Stem(word, "english", true)
		if err != nil {
			continue
		}
		m.stems[stem] = append(m.stems[stem], word)
	}
}

// Probability returns freq(word)/total, or 0 for an unknown word or an
// empty model.
func (m *Model) Probability(word string) float64 {
	if m.totalWords == 0 {
		return 0
	}
	return float64(m.words[word]) / float64(m.totalWords)
}

// Known filters words to those present in the frequency table, in no
// particular order.
func (m *Model) Known(words map[string]struct{}) []string {
	known := make([]string, 0, len(words))
	for w := range words {
		if _, ok := m.words[w]; ok {
			known = append(known, w)
		}
	}
	return known
}

// KnownByStem filters words to those whose snowball stem matches word's
// stem, returning the matching corpus words (not the input). Not part of
// Candidates; callers that want a stem-based fallback beyond Candidates'
// own four tiers call this directly.
func (m *Model) KnownByStem(word string) []string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil {
		return nil
	}
	return m.stems[stem]
}

// EditOne returns the set of all strings reachable from word by a single
// insertion, deletion, transposition, or substitution over the lowercase
// alphabet.
func EditOne(word string) map[string]struct{} {
	result := make(map[string]struct{})
	for i := 0; i <= len(word); i++ {
		left, right := word[:i], word[i:]

		if right != "" {
			// deletion
			result[left+right[1:]] = struct{}{}
		}
		if len(right) > 1 {
			// transposition of the first two characters of right
			result[left+string(right[1])+string(right[0])+right[2:]] = struct{}{}
		}
		for _, c := range lowercaseLetters {
			// insertion
			result[left+string(c)+right] = struct{}{}
			if right != "" {
				// substitution
				result[left+string(c)+right[1:]] = struct{}{}
			}
		}
	}
	return result
}

// EditTwo returns the union of EditOne applied to every element of
// EditOne(word).
func EditTwo(word string) map[string]struct{} {
	result := make(map[string]struct{})
	for edit1 := range EditOne(word) {
		for edit2 := range EditOne(edit1) {
			result[edit2] = struct{}{}
		}
	}
	return result
}

// Candidates returns the first non-empty of: the word itself if known,
// its known edit-1 neighborhood, its known edit-2 neighborhood, or the
// word as a last-resort singleton.
func (m *Model) Candidates(word string) []string {
	if known := m.Known(map[string]struct{}{word: {}}); len(known) > 0 {
		return known
	}
	if known := m.Known(EditOne(word)); len(known) > 0 {
		return known
	}
	if known := m.Known(EditTwo(word)); len(known) > 0 {
		return known
	}
	return []string{word}
}

// Correction returns the single most probable candidate for word, using
// max-by-probability semantics (the original's `correction` method).
func (m *Model) Correction(word string) string {
	candidates := m.Candidates(word)
	best := candidates[0]
	bestProb := m.Probability(best)
	for _, c := range candidates[1:] {
		if p := m.Probability(c); p > bestProb {
			best, bestProb = c, p
		}
	}
	return best
}

// MostLikelyReplacements returns candidates sorted ascending by
// probability, truncated to n. This mirrors the observed source
// behavior (Spell.py sorts ascending), which appears to contradict
// Correction's max-based semantics above; both are kept deliberately, see
// DESIGN.md.
func (m *Model) MostLikelyReplacements(word string, n int) []string {
	candidates := m.Candidates(word)
	sort.SliceStable(candidates, func(i, j int) bool {
		return m.Probability(candidates[i]) < m.Probability(candidates[j])
	})
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

// TotalWords returns the total token count the model was built from.
func (m *Model) TotalWords() int64 {
	return m.totalWords
}
