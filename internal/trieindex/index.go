// Package trieindex implements the ranked-prefix index: a trie where
// each node carries an aggregated top-K frequency multiset over the
// terms in its subtree. An insert bumps a pending count on the term's
// node; a bottom-up rebuild, run on demand, folds those pending counts
// into every ancestor's multiset. It is grounded on
// original_source/src/Server.py (class Server), storing an aggregated
// multiset per node instead of a flat per-node suggestion slice.
//
// The index is single-writer, single-threaded by design: it holds no
// internal lock. Callers that front it with concurrent request
// handlers must serialize access themselves — see internal/service,
// which wraps an Index in a sync.RWMutex.
package trieindex

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/riftword/autocomplete/internal/trienode"
)

// DefaultTopK is the bound applied to a node's TopResults after a
// rebuild when the caller does not specify one.
const DefaultTopK = trienode.TopK

// DefaultRebuildThreshold triggers a rebuild after every search, matching
// the original's Server.trie_update_frequency = 1. Production deployments
// should raise this; it is a tunable, not a correctness property.
const DefaultRebuildThreshold = 1

// Index is the ranked-prefix trie.
type Index struct {
	root             *trienode.Node
	topK             int
	rebuildThreshold int
	searchCount      int
	nodeCount        int

	// DescendingMerge controls the sort order search-result merging
	// uses. The original source sorts ascending by frequency before
	// truncating — which reads as a bug against the stated purpose of
	// "top results" (spec.md §9). Default false reproduces the observed
	// source behavior; set true for the corrected ordering.
	DescendingMerge bool
}

// New creates an empty index with the given top-K bound and rebuild
// threshold. A non-positive topK or rebuildThreshold falls back to the
// documented defaults rather than erroring, since these are tunables
// supplied by the hosting layer's config, not user input.
func New(topK, rebuildThreshold int) *Index {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if rebuildThreshold <= 0 {
		rebuildThreshold = DefaultRebuildThreshold
	}
	return &Index{
		root:             trienode.New("", nil),
		topK:             topK,
		rebuildThreshold: rebuildThreshold,
		nodeCount:        1,
	}
}

// NodeCount returns the number of nodes currently in the trie, including
// the root.
func (idx *Index) NodeCount() int {
	return idx.nodeCount
}

// SetTopK changes the bound applied to TopResults after a rebuild.
// Returns ErrInvalidTopK (ConfigBounds) and leaves the prior value in
// place if val < 1.
func (idx *Index) SetTopK(val int) error {
	if val < 1 {
		return ErrInvalidTopK
	}
	idx.topK = val
	return nil
}

// Insert adds term to the trie, creating nodes as needed along its
// path. If fromSnapshot is true, the terminal node's count is set to
// countOverride as a pending delta for the next RebuildTopResults pass
// (seeding historical frequency from a restored snapshot without
// double-counting against any prior TopResults); otherwise the
// terminal node's count is incremented by one, representing a fresh
// usage bump. isWord marks the terminal node as a complete term.
// Returns ErrEmptyTerm if term is empty.
func (idx *Index) Insert(term string, isWord bool, countOverride int64, fromSnapshot bool) (*trienode.Node, error) {
	if term == "" {
		return nil, ErrEmptyTerm
	}

	node := idx.root
	for _, ch := range term {
		child, ok := node.Children[ch]
		if !ok {
			child = trienode.New(node.Prefix+string(ch), node)
			node.Children[ch] = child
			idx.nodeCount++
		}
		node = child
	}

	if fromSnapshot {
		node.Count = countOverride
	} else {
		node.Count++
	}
	if isWord {
		node.IsWord = true
	}
	return node, nil
}

// InsertBump is the common usage-tracking path: insert-or-traverse term
// and bump its count by one, marking it a complete word.
func (idx *Index) InsertBump(term string) (*trienode.Node, error) {
	return idx.Insert(term, true, 0, false)
}

// BumpBy inserts-or-traverses term and adds delta to its usage count in
// one step, marking it a complete word. Used when a caller already
// knows an aggregate increment (e.g. a batch of identical queries)
// rather than bumping one at a time.
func (idx *Index) BumpBy(term string, delta int64) (*trienode.Node, error) {
	node, err := idx.Insert(term, true, 0, false)
	if err != nil {
		return nil, err
	}
	if delta > 1 {
		node.Count += delta - 1
	}
	return node, nil
}

// Delete removes term from the trie: the subtree rooted at term's
// terminal node is detached from its parent, any now-childless,
// non-word ancestor chain is pruned, and every word collected from the
// removed subtree is purged from the TopResults of every surviving
// ancestor. A missing term, or a terminal node that is not itself a
// word, is silently a no-op (spec.md's NotFound is not an error).
func (idx *Index) Delete(term string) {
	if term == "" {
		return
	}

	target := idx.root
	for _, ch := range term {
		child, ok := target.Children[ch]
		if !ok {
			return
		}
		target = child
	}
	if !target.IsWord {
		return
	}

	removedWords := collectWords(target)

	parent := target.Parent
	if parent == nil {
		// term == "" already rejected above, so target is never root.
		return
	}
	delete(parent.Children, target.LastChar())
	idx.nodeCount -= subtreeSize(target)

	cursor := parent
	for cursor.Parent != nil && cursor.Leaf() && !cursor.IsWord {
		next := cursor.Parent
		delete(next.Children, cursor.LastChar())
		idx.nodeCount--
		cursor = next
	}

	for n := cursor; n != nil; n = n.Parent {
		for _, word := range removedWords {
			delete(n.TopResults, word)
		}
	}
}

// collectWords performs the BFS spec.md §4.1 describes: every
// word-terminating descendant of node, node included.
func collectWords(node *trienode.Node) []string {
	var words []string
	queue := []*trienode.Node{node}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.IsWord {
			words = append(words, cur.Prefix)
		}
		for _, child := range cur.Children {
			queue = append(queue, child)
		}
	}
	return words
}

func subtreeSize(node *trienode.Node) int {
	size := 1
	for _, child := range node.Children {
		size += subtreeSize(child)
	}
	return size
}

// RebuildTopResults performs the post-order aggregation: at each leaf,
// fold its own count (if it is a word) into a fresh multiset, then walk
// up the parent chain folding each ancestor's own count in turn and
// merging the multiset additively into TopResults. The multiset
// reaching a node is every fresh increment observed along any path
// through that node since the last rebuild; TopResults accumulates
// across rebuilds, so the net effect is the historical total. An empty
// trie (root with no children) is a no-op; a leaf that is not a word
// still causes its ancestors to be visited (with no fresh bump from the
// leaf itself).
func (idx *Index) RebuildTopResults() {
	var walk func(node *trienode.Node)
	walk = func(node *trienode.Node) {
		if node.Leaf() {
			foldUp(node, make(map[string]int64))
			return
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(idx.root)

	idx.truncateAll(idx.root)
}

func foldUp(node *trienode.Node, fresh map[string]int64) {
	if node.IsWord {
		fresh[node.Prefix] += node.Count
		node.Count = 0
	}
	for term, count := range fresh {
		node.TopResults[term] += count
	}
	if node.Parent != nil {
		foldUp(node.Parent, fresh)
	}
}

func (idx *Index) truncateAll(node *trienode.Node) {
	if len(node.TopResults) > idx.topK {
		node.TopResults = topKMap(node.TopResults, idx.topK)
	}
	for _, child := range node.Children {
		idx.truncateAll(child)
	}
}

// topKMap returns a copy of m holding only its k highest-frequency
// entries (ties broken lexicographically for determinism).
func topKMap(m map[string]int64, k int) map[string]int64 {
	entries := topEntries(m, k)
	out := make(map[string]int64, len(entries))
	for _, e := range entries {
		out[e.Term] = e.Freq
	}
	return out
}

// topEntries returns the n highest-frequency (term, freq) pairs from m,
// descending by frequency, ties broken lexicographically by term.
func topEntries(m map[string]int64, n int) []trienode.TopEntry {
	entries := make([]trienode.TopEntry, 0, len(m))
	for term, freq := range m {
		entries = append(entries, trienode.TopEntry{Term: term, Freq: freq})
	}
	slices.SortFunc(entries, func(a, b trienode.TopEntry) int {
		switch {
		case a.Freq > b.Freq:
			return -1
		case a.Freq < b.Freq:
			return 1
		case a.Term < b.Term:
			return -1
		case a.Term > b.Term:
			return 1
		}
		return 0
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// PathCompression collapses chains of non-word, single-child nodes
// beneath each direct child of the root into their single descendant,
// repeating until a word or branching node is reached, then recurses
// into the result's children. The root itself is never collapsed. This
// is a structural optimization applied before serialization; it is not
// reversible (intermediate prefixes are not rediscoverable afterward),
// so callers that still need per-character traversal must compress a
// copy or compress only just before Serialize.
func (idx *Index) PathCompression() {
	for _, child := range idx.root.Children {
		compress(child)
	}
}

func compress(node *trienode.Node) {
	if node.Leaf() {
		return
	}
	for !node.IsWord && len(node.Children) == 1 {
		var only *trienode.Node
		for _, c := range node.Children {
			only = c
		}
		node.Prefix = only.Prefix
		node.Children = only.Children
		node.IsWord = only.IsWord
		node.Count = only.Count
		node.TopResults = only.TopResults
		for _, grandchild := range node.Children {
			grandchild.Parent = node
		}
	}
	for _, child := range node.Children {
		compress(child)
	}
}

// MergeTopResults unions the top-K MostCommon entries of every given
// node, sorts by the index's configured merge order, and returns the
// first K terms — the merge rule spec.md §4.1 assigns to Search.
func (idx *Index) MergeTopResults(nodes []*trienode.Node) []string {
	pool := make([]trienode.TopEntry, 0)
	for _, node := range nodes {
		pool = append(pool, topEntries(node.TopResults, idx.topK)...)
	}
	if idx.DescendingMerge {
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].Freq > pool[j].Freq })
	} else {
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].Freq < pool[j].Freq })
	}
	out := make([]string, 0, idx.topK)
	for i := 0; i < len(pool) && i < idx.topK; i++ {
		out = append(out, pool[i].Term)
	}
	return out
}

// MarkSearched increments the search counter and reports whether a
// rebuild threshold has been reached; if so the counter is reset. The
// caller (QueryPipeline) is responsible for actually invoking
// RebuildTopResults when this returns true.
func (idx *Index) MarkSearched() bool {
	idx.searchCount++
	if idx.searchCount >= idx.rebuildThreshold {
		idx.searchCount = 0
		return true
	}
	return false
}

// Root exposes the root node for read-only traversal by callers in the
// same module boundary (serialization, persistence adapters).
func (idx *Index) Root() *trienode.Node {
	return idx.root
}
