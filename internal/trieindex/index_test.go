package trieindex

import (
	"testing"

	"github.com/riftword/autocomplete/internal/trienode"
	"github.com/stretchr/testify/assert"
)

func TestIndex_InsertAndRebuild(t *testing.T) {
	idx := New(10, 1)

	for i := 0; i < 5; i++ {
		_, err := idx.InsertBump("apple")
		assert.NoError(t, err)
	}
	_, err := idx.InsertBump("app")
	assert.NoError(t, err)

	idx.RebuildTopResults()

	root := idx.Root()
	assert.Equal(t, int64(5), root.TopResults["apple"], "apple should be bumped 5 times")
	assert.Equal(t, int64(1), root.TopResults["app"], "app should be bumped once")
}

func TestIndex_Insert_RejectsEmptyTerm(t *testing.T) {
	idx := New(10, 1)
	_, err := idx.Insert("", true, 0, false)
	assert.ErrorIs(t, err, ErrEmptyTerm)
}

func TestIndex_Delete_RemovesWordAndPrunesTopResults(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")
	_, _ = idx.InsertBump("app")
	idx.RebuildTopResults()

	idx.Delete("apple")
	idx.RebuildTopResults()

	root := idx.Root()
	_, stillThere := root.TopResults["apple"]
	assert.False(t, stillThere, "apple should be purged from ancestor top-results after delete")
	assert.Equal(t, int64(1), root.TopResults["app"], "app should survive deleting a sibling word")
}

func TestIndex_Delete_NonExistentTermIsNoop(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")
	idx.Delete("banana")
	assert.Equal(t, 6, idx.NodeCount(), "deleting a missing term should not change node count")
}

func TestIndex_Delete_PrunesDeadAncestorChain(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")
	before := idx.NodeCount()
	assert.Equal(t, 6, before) // root + a,p,p,l,e

	idx.Delete("apple")
	assert.Equal(t, 1, idx.NodeCount(), "the whole dead chain down to root should be pruned")
}

func TestIndex_SetTopK_RejectsNonPositive(t *testing.T) {
	idx := New(10, 1)
	err := idx.SetTopK(0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestIndex_MergeTopResults_Ordering(t *testing.T) {
	idx := New(10, 1)
	idx.DescendingMerge = true

	for i := 0; i < 3; i++ {
		_, _ = idx.InsertBump("cat")
	}
	_, _ = idx.InsertBump("car")
	idx.RebuildTopResults()

	results := idx.MergeTopResults([]*trienode.Node{idx.Root()})
	assert.Equal(t, "cat", results[0], "descending merge should rank the higher-frequency word first")
}

func TestIndex_PathCompression_CollapsesSingleChildChains(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")

	idx.PathCompression()

	rootChild, ok := idx.Root().Children['a']
	assert.True(t, ok)
	assert.Equal(t, "apple", rootChild.Prefix, "the whole a-p-p-l-e chain should collapse into one node")
}

func TestIndex_Serialize_MatchesLiteralWireFormat(t *testing.T) {
	idx := New(10, 1)
	_, err := idx.InsertBump("time machine is here")
	assert.NoError(t, err)
	idx.RebuildTopResults()
	idx.PathCompression()

	records := idx.Serialize(10)
	assert.Equal(t, []Record{
		{Prefix: "", IsWord: false, TopResults: "time_machine_is_here 1", ChildCount: 1},
		{Prefix: "time machine is here", IsWord: true, TopResults: "time_machine_is_here 1", ChildCount: 0},
	}, records)
}

func TestIndex_AsPatriciaTrie_ContainsInsertedWords(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")
	_, _ = idx.InsertBump("app")
	idx.RebuildTopResults()

	trie := idx.AsPatriciaTrie()
	assert.Equal(t, int64(1), trie.Get([]byte("apple")))
	assert.Equal(t, int64(1), trie.Get([]byte("app")))
	assert.Nil(t, trie.Get([]byte("ap")))
}

func TestIndex_SerializeDeserialize_RoundTrips(t *testing.T) {
	idx := New(10, 1)
	_, _ = idx.InsertBump("apple")
	_, _ = idx.InsertBump("app")
	_, _ = idx.InsertBump("apply")
	idx.RebuildTopResults()

	records := idx.Serialize(10)
	restored, err := Deserialize(records, 10, 1)
	assert.NoError(t, err)
	assert.Equal(t, idx.NodeCount(), restored.NodeCount())

	assert.Equal(t, idx.Root().TopResults["apple"], restored.Root().TopResults["apple"])
}

func TestDeserialize_RejectsEmptyRecordList(t *testing.T) {
	_, err := Deserialize(nil, 10, 1)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestDeserialize_RejectsTrailingRecords(t *testing.T) {
	records := []Record{
		{Prefix: "", IsWord: false, ChildCount: 0},
		{Prefix: "a", IsWord: true, ChildCount: 0},
	}
	_, err := Deserialize(records, 10, 1)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestDeserialize_RejectsNonExtendingChildPrefix(t *testing.T) {
	records := []Record{
		{Prefix: "", IsWord: false, ChildCount: 1},
		{Prefix: "xyz", IsWord: true, ChildCount: 0},
	}
	_, err := Deserialize(records, 10, 1)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestEncodeDecodeTopResults_RoundTrips(t *testing.T) {
	original := map[string]int64{"new york": 5, "new": 3}
	encoded := encodeTopResults(original, 10)
	decoded, err := decodeTopResults(encoded)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}
