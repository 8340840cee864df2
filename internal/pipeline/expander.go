package pipeline

import (
	"context"

	"github.com/riftword/autocomplete/internal/nextword"
	"github.com/riftword/autocomplete/internal/spell"
)

// SpellExpander expands a token using only a spelling model's ranked
// replacement list. This is the "basic" pipeline variant
// original_source/src/Server.py implements directly.
type SpellExpander struct {
	Model *spell.Model
}

// NewSpellExpander wraps model as an Expander.
func NewSpellExpander(model *spell.Model) *SpellExpander {
	return &SpellExpander{Model: model}
}

// Expand ignores precedingTokens and returns model's most likely
// replacements for token, capped at MaxCandidatesPerToken.
func (e *SpellExpander) Expand(_ context.Context, token string, _ []string) []string {
	return e.Model.MostLikelyReplacements(token, MaxCandidatesPerToken)
}

// HybridExpander layers a next-word oracle on top of a spelling model:
// when at least one preceding token is available, it asks the oracle
// for the nearest neighbors of the last preceding token and folds them
// in alongside the spelling candidates, matching
// original_source/src/advanced_trie_server.py's AdvancedServer, which
// consults a word2vec BallTree in addition to Spell.
type HybridExpander struct {
	Model  *spell.Model
	Oracle *nextword.Oracle
}

// NewHybridExpander wraps model and oracle as an Expander. oracle may
// be nil, in which case Expand returns only the spelling candidates
// (including the stem fallback described on Expand) and no next-word
// predictions.
func NewHybridExpander(model *spell.Model, oracle *nextword.Oracle) *HybridExpander {
	return &HybridExpander{Model: model, Oracle: oracle}
}

// Expand returns the spelling model's replacements for token. If
// Candidates missed entirely (token has no known exact/edit-1/edit-2
// match), it falls back to a stem match before giving up on spelling
// altogether. If an oracle is configured and at least one preceding
// token exists, the oracle's top next-word predictions for the last
// preceding token are appended before truncation, giving the spelling
// corrections priority but allowing a semantically-likely continuation
// to fill a remaining candidate slot.
func (e *HybridExpander) Expand(ctx context.Context, token string, precedingTokens []string) []string {
	candidates := e.Model.MostLikelyReplacements(token, MaxCandidatesPerToken)
	if len(candidates) == 1 && candidates[0] == token && e.Model.Probability(token) == 0 {
		if stemmed := e.Model.KnownByStem(token); len(stemmed) > 0 {
			candidates = stemmed
			if len(candidates) > MaxCandidatesPerToken {
				candidates = candidates[:MaxCandidatesPerToken]
			}
		}
	}
	if e.Oracle == nil || len(precedingTokens) == 0 {
		return candidates
	}
	if len(candidates) >= MaxCandidatesPerToken {
		return candidates
	}
	last := precedingTokens[len(precedingTokens)-1]
	predictions := e.Oracle.NearestNeighbors(last, MaxCandidatesPerToken-len(candidates))
	return append(candidates, predictions...)
}
