package pipeline

import (
	"context"
	"testing"

	"github.com/riftword/autocomplete/internal/spell"
	"github.com/riftword/autocomplete/internal/trieindex"
	"github.com/stretchr/testify/assert"
)

func TestQueryPipeline_Search_ExactToken(t *testing.T) {
	idx := trieindex.New(10, 1)
	idx.DescendingMerge = true
	model := spell.LoadWords([]string{"apple", "apple", "apple"})

	p := New(idx, NewSpellExpander(model), 10)

	// Search merges before the rebuild that folds in its own bump, so
	// the first search of a fresh index returns nothing; the second is
	// the first to see the term.
	_, err := p.Search(context.Background(), "apple")
	assert.NoError(t, err)

	results, err := p.Search(context.Background(), "apple")
	assert.NoError(t, err)
	assert.Contains(t, results, "apple")
}

func TestQueryPipeline_Search_EmptyQuery(t *testing.T) {
	idx := trieindex.New(10, 1)
	model := spell.New()
	p := New(idx, NewSpellExpander(model), 10)

	results, err := p.Search(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryPipeline_Search_ExpandsMisspelling(t *testing.T) {
	idx := trieindex.New(10, 1)
	idx.DescendingMerge = true
	model := spell.LoadWords([]string{"banana", "banana"})

	p := New(idx, NewSpellExpander(model), 10)

	// As above, the first search's bump is only visible to the next one.
	_, err := p.Search(context.Background(), "banan")
	assert.NoError(t, err)

	results, err := p.Search(context.Background(), "banan")
	assert.NoError(t, err)
	assert.Contains(t, results, "banana")
}

func TestCartesian_ProducesAllCombinations(t *testing.T) {
	phrases := cartesian([][]string{{"a", "b"}, {"x", "y"}})
	assert.ElementsMatch(t, []string{"a x", "a y", "b x", "b y"}, phrases)
}

func TestCartesian_EmptyInput(t *testing.T) {
	assert.Nil(t, cartesian(nil))
}

func TestTokenize_LowercasesAndSplits(t *testing.T) {
	assert.Equal(t, []string{"new", "york"}, tokenize("New   York"))
}
