// Package pipeline implements the query-time search flow: tokenize a
// raw query, expand each token into a short list of spelling
// candidates, take the Cartesian product of those candidate lists,
// insert-and-bump every resulting phrase into the trie, and merge the
// top-results multisets collected along the way into a single ranked
// suggestion list. It is grounded on original_source/src/Server.py's
// `search` method.
package pipeline

import (
	"context"
	"strings"

	"github.com/riftword/autocomplete/internal/trieindex"
	"github.com/riftword/autocomplete/internal/trienode"
)

// Expander turns a single query token into an ordered list of
// candidate whole words to try in its place. Search takes the
// Cartesian product of each token's candidates, so implementations
// should keep the list short (spec.md caps it at 2 per token).
//
// Two concrete implementations are provided: SpellExpander, which
// consults only a spelling model, and HybridExpander, which also
// consults a next-word oracle. Neither embeds the other — the
// interface itself is the extension point, matching spec.md §9's note
// that query expansion is a pluggable capability, not a type
// hierarchy.
type Expander interface {
	Expand(ctx context.Context, token string, precedingTokens []string) []string
}

// MaxCandidatesPerToken bounds how many alternatives Expand may return
// for a single token; Search truncates beyond this regardless of what
// an Expander returns.
const MaxCandidatesPerToken = 2

// QueryPipeline ties a trie index and an Expander together into the
// end-to-end search operation.
type QueryPipeline struct {
	Index  *trieindex.Index
	Expand Expander
	TopK   int
}

// New builds a pipeline over idx using expander for candidate
// generation, returning up to topK results per search.
func New(idx *trieindex.Index, expander Expander, topK int) *QueryPipeline {
	if topK <= 0 {
		topK = trieindex.DefaultTopK
	}
	return &QueryPipeline{Index: idx, Expand: expander, TopK: topK}
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	return fields
}

// cartesian computes the Cartesian product of per-token candidate
// lists, joining each combination with a single space to form a
// phrase. An empty input yields no phrases.
func cartesian(tokenCandidates [][]string) []string {
	if len(tokenCandidates) == 0 {
		return nil
	}
	phrases := []string{""}
	for _, candidates := range tokenCandidates {
		if len(candidates) == 0 {
			continue
		}
		next := make([]string, 0, len(phrases)*len(candidates))
		for _, prefix := range phrases {
			for _, cand := range candidates {
				if prefix == "" {
					next = append(next, cand)
				} else {
					next = append(next, prefix+" "+cand)
				}
			}
		}
		phrases = next
	}
	return phrases
}

// Search tokenizes query, expands each token through the pipeline's
// Expander (capped at MaxCandidatesPerToken candidates each), inserts
// and bumps every resulting phrase into the trie, collects the
// terminal node of every inserted phrase, merges their top-results
// multisets, and returns up to TopK suggestion terms. If the
// configured rebuild threshold is reached, the trie's aggregated
// top-results are rebuilt before returning. An empty query yields an
// empty result with no error.
func (p *QueryPipeline) Search(ctx context.Context, query string) ([]string, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	candidateLists := make([][]string, len(tokens))
	for i, token := range tokens {
		candidates := p.Expand.Expand(ctx, token, tokens[:i])
		if len(candidates) > MaxCandidatesPerToken {
			candidates = candidates[:MaxCandidatesPerToken]
		}
		if len(candidates) == 0 {
			candidates = []string{token}
		}
		candidateLists[i] = candidates
	}

	phrases := cartesian(candidateLists)

	terminals := make([]*trienode.Node, 0, len(phrases))
	for _, phrase := range phrases {
		node, err := p.Index.InsertBump(phrase)
		if err != nil {
			return nil, err
		}
		terminals = append(terminals, node)
	}

	results := p.Index.MergeTopResults(terminals)

	if p.Index.MarkSearched() {
		p.Index.RebuildTopResults()
	}

	if len(results) > p.TopK {
		results = results[:p.TopK]
	}
	return results, nil
}
