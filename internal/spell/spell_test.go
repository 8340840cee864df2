package spell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModel_Probability(t *testing.T) {
	m := LoadWords([]string{"apple", "apple", "app", "banana"})

	assert.InDelta(t, 2.0/4.0, m.Probability("apple"), 1e-9, "apple appears twice of four tokens")
	assert.Equal(t, float64(0), m.Probability("unknown"), "unknown word has zero probability")
}

func TestModel_EditOneContainsKnownCorrection(t *testing.T) {
	edits := EditOne("aple")
	_, ok := edits["apple"]
	assert.True(t, ok, "inserting 'p' into 'aple' should reach 'apple'")
}

func TestModel_EditTwoReachesTwoEditsAway(t *testing.T) {
	edits := EditTwo("apl")
	_, ok := edits["apple"]
	assert.True(t, ok, "'apl' is two insertions from 'apple'")
}

func TestModel_Candidates_FallsBackThroughTiers(t *testing.T) {
	m := LoadWords([]string{"democracy"})

	assert.Equal(t, []string{"democracy"}, m.Candidates("democracy"), "exact match wins")
	assert.Contains(t, m.Candidates("democrac"), "democracy", "edit-1 should recover the corpus word")
	assert.Equal(t, []string{"xyzxyzxyz"}, m.Candidates("xyzxyzxyz"), "unknown word falls back to itself")
}

func TestModel_Correction_PicksHighestProbability(t *testing.T) {
	m := LoadWords([]string{"the", "the", "the", "teh"})
	assert.Equal(t, "the", m.Correction("teh"), "correction should prefer the more frequent candidate")
}

func TestModel_MostLikelyReplacements_SortsAscending(t *testing.T) {
	m := LoadWords(strings.Split("a a a b b c", " "))
	// "d" is unknown and one substitution from each of "a", "b" and "c";
	// "a" is most frequent, "c" least. Ascending sort puts "c" first.
	replacements := m.MostLikelyReplacements("d", 3)
	assert.NotEmpty(t, replacements)
	for i := 1; i < len(replacements); i++ {
		assert.LessOrEqual(t, m.Probability(replacements[i-1]), m.Probability(replacements[i]))
	}
}

func TestModel_KnownByStem(t *testing.T) {
	m := LoadWords([]string{"running", "runner"})
	matches := m.KnownByStem("runs")
	assert.NotEmpty(t, matches, "stem of 'runs' should match 'running'/'runner' family")
}

func BenchmarkModel_Candidates(b *testing.B) {
	m := LoadWords([]string{"apple", "application", "app", "amazon", "android"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Candidates("aple")
	}
}
