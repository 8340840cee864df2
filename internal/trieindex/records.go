package trieindex

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/riftword/autocomplete/internal/trienode"
)

// Record is one pre-order entry of a serialized trie: a node's prefix,
// whether it terminates a word, its encoded top-results multiset, and
// the number of children that immediately follow it in the record
// stream. Deserialize walks the stream recursively using ChildCount to
// know how many subsequent records belong to each node, the same shape
// original_source/src/Server.py's server_serialization/
// server_deserialization pair uses for its four-column CSV rows.
type Record struct {
	Prefix     string
	IsWord     bool
	TopResults string
	ChildCount int
}

const (
	topResultsSep = " "
	spaceEscape   = "_"
)

// encodeTopResults renders m as alternating space-separated tokens —
// term1 freq1 term2 freq2 ... — matching the original's
// counter_to_str. A space within a term is escaped to "_" so the
// token stream stays unambiguous.
func encodeTopResults(m map[string]int64, topK int) string {
	entries := topEntries(m, topK)
	tokens := make([]string, 0, len(entries)*2)
	for _, e := range entries {
		term := strings.ReplaceAll(e.Term, " ", spaceEscape)
		tokens = append(tokens, term, strconv.FormatInt(e.Freq, 10))
	}
	return strings.Join(tokens, topResultsSep)
}

func decodeTopResults(encoded string) (map[string]int64, error) {
	out := make(map[string]int64)
	if encoded == "" {
		return out, nil
	}
	tokens := strings.Split(encoded, topResultsSep)
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("%w: odd token count in top-results %q", ErrMalformedSnapshot, encoded)
	}
	for i := 0; i < len(tokens); i += 2 {
		freq, err := strconv.ParseInt(tokens[i+1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad frequency in %q: %v", ErrMalformedSnapshot, encoded, err)
		}
		term := strings.ReplaceAll(tokens[i], spaceEscape, " ")
		out[term] = freq
	}
	return out, nil
}

// Serialize flattens the trie into a pre-order record list, each node's
// TopResults truncated to topKPerNode entries. Call PathCompression
// first if a compact snapshot is wanted; Serialize itself does not
// compress.
func (idx *Index) Serialize(topKPerNode int) []Record {
	var records []Record
	var walk func(node *trienode.Node)
	walk = func(node *trienode.Node) {
		records = append(records, Record{
			Prefix:     node.Prefix,
			IsWord:     node.IsWord,
			TopResults: encodeTopResults(node.TopResults, topKPerNode),
			ChildCount: len(node.Children),
		})
		for _, child := range orderedChildren(node) {
			walk(child)
		}
	}
	walk(idx.root)
	return records
}

// orderedChildren returns a node's children sorted by rune key, giving
// Serialize a deterministic pre-order independent of Go's map
// iteration order.
func orderedChildren(node *trienode.Node) []*trienode.Node {
	keys := make([]rune, 0, len(node.Children))
	for k := range node.Children {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	children := make([]*trienode.Node, 0, len(keys))
	for _, k := range keys {
		children = append(children, node.Children[k])
	}
	return children
}

// Deserialize reconstructs an Index from a pre-order record list
// produced by Serialize. It validates structural consistency — the
// record count implied by each node's ChildCount must exactly match
// the stream length, every child's prefix must extend its parent's by
// exactly one rune, and no two siblings may share a last rune — and
// returns ErrMalformedSnapshot on any violation.
func Deserialize(records []Record, topK, rebuildThreshold int) (*Index, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty record list", ErrMalformedSnapshot)
	}

	idx := New(topK, rebuildThreshold)
	pos := 0

	var build func(parent *trienode.Node) (*trienode.Node, error)
	build = func(parent *trienode.Node) (*trienode.Node, error) {
		if pos >= len(records) {
			return nil, fmt.Errorf("%w: record stream exhausted", ErrMalformedSnapshot)
		}
		rec := records[pos]
		pos++

		var node *trienode.Node
		if parent == nil {
			node = idx.root
			node.Prefix = rec.Prefix
		} else {
			if !strings.HasPrefix(rec.Prefix, parent.Prefix) || utf8.RuneCountInString(rec.Prefix) != utf8.RuneCountInString(parent.Prefix)+1 {
				return nil, fmt.Errorf("%w: child prefix %q does not extend parent %q by one rune", ErrMalformedSnapshot, rec.Prefix, parent.Prefix)
			}
			last := []rune(rec.Prefix)[len([]rune(rec.Prefix))-1]
			if _, dup := parent.Children[last]; dup {
				return nil, fmt.Errorf("%w: duplicate child %q under %q", ErrMalformedSnapshot, rec.Prefix, parent.Prefix)
			}
			node = trienode.New(rec.Prefix, parent)
			parent.Children[last] = node
			idx.nodeCount++
		}

		node.IsWord = rec.IsWord
		topResults, err := decodeTopResults(rec.TopResults)
		if err != nil {
			return nil, err
		}
		node.TopResults = topResults

		if rec.ChildCount < 0 {
			return nil, fmt.Errorf("%w: negative child count for %q", ErrMalformedSnapshot, rec.Prefix)
		}
		for i := 0; i < rec.ChildCount; i++ {
			if _, err := build(node); err != nil {
				return nil, err
			}
		}
		return node, nil
	}

	if _, err := build(nil); err != nil {
		return nil, err
	}
	if pos != len(records) {
		return nil, fmt.Errorf("%w: %d trailing record(s) not consumed", ErrMalformedSnapshot, len(records)-pos)
	}
	return idx, nil
}
