package trieindex

import "errors"

// Sentinel errors for the failure modes spec.md §7 names for the core:
// InputShape, ConfigBounds, and SnapshotDecode. AdapterFailure and
// NotFound are not represented here — adapter errors are whatever the
// persistence/cache package returns, and a missing term is not an error
// at all (delete/search on it is silently a no-op).
var (
	// ErrEmptyTerm is InputShape: an operation that requires a non-empty
	// term was given one.
	ErrEmptyTerm = errors.New("trieindex: term must not be empty")

	// ErrInvalidTopK is ConfigBounds: a result-count configuration was
	// set below 1.
	ErrInvalidTopK = errors.New("trieindex: top-K must be at least 1")

	// ErrMalformedSnapshot is SnapshotDecode: a serialized record list
	// could not be reconstructed into a valid trie.
	ErrMalformedSnapshot = errors.New("trieindex: malformed snapshot")
)
