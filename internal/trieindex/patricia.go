package trieindex

import (
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/riftword/autocomplete/internal/trienode"
)

// AsPatriciaTrie walks the index's word nodes and inserts each term
// into a patricia.Trie keyed by its bytes, with the node's total usage
// count as the item. Callers typically call PathCompression first so
// the radix structure mirrors the index's own compressed shape; this
// is an alternate, prefix-match-only view of the same word set, handy
// for exporting to code that only needs Match/MatchSubtree semantics
// without the top-K ranking this package otherwise carries.
func (idx *Index) AsPatriciaTrie() *patricia.Trie {
	trie := patricia.NewTrie()
	var walk func(node *trienode.Node)
	walk = func(node *trienode.Node) {
		if node.IsWord {
			trie.Set(patricia.Prefix(node.Prefix), node.TotalCount())
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(idx.root)
	return trie
}
