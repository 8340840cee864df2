// Package trienode defines the node record shared by the ranked-prefix
// index. A TrieNode carries enough state to be aggregated bottom-up and
// walked top-down without any package outside trieindex touching it
// directly.
package trienode

// TopK is the default bound on the number of entries kept in a node's
// TopResults multiset after a rebuild.
const TopK = 10

// Node is a single trie node. Children are keyed by rune so that terms
// with embedded spaces or unicode letters branch like any other
// character; a space is not special, it is simply another edge.
type Node struct {
	Prefix      string
	Children    map[rune]*Node
	Parent      *Node
	IsWord      bool
	Count       int64
	TopResults  map[string]int64
}

// New allocates a node for the given prefix. Parent may be nil only for
// the root.
func New(prefix string, parent *Node) *Node {
	return &Node{
		Prefix:     prefix,
		Children:   make(map[rune]*Node),
		Parent:     parent,
		TopResults: make(map[string]int64),
	}
}

// TotalCount returns the historical count recorded for this node's own
// prefix, recoverable from TopResults once the node has been through at
// least one rebuild (or was seeded from a snapshot).
func (n *Node) TotalCount() int64 {
	return n.TopResults[n.Prefix]
}

// SetTotalCount seeds the historical count for this node's own prefix,
// used when restoring from a snapshot or an external store.
func (n *Node) SetTotalCount(val int64) {
	n.TopResults[n.Prefix] = val
}

// LastChar returns the final rune of Prefix, or the zero rune for the
// root (empty prefix).
func (n *Node) LastChar() rune {
	if len(n.Prefix) == 0 {
		return 0
	}
	r := []rune(n.Prefix)
	return r[len(r)-1]
}

// Leaf reports whether the node has no children.
func (n *Node) Leaf() bool {
	return len(n.Children) == 0
}

// TopEntry is one (term, frequency) pair, used when callers need an
// ordered view of a node's TopResults.
type TopEntry struct {
	Term string
	Freq int64
}
