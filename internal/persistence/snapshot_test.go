package persistence_test

import (
	"context"
	"testing"

	"github.com/riftword/autocomplete/internal/persistence"
	"github.com/riftword/autocomplete/internal/persistence/persistencetest"
	"github.com/riftword/autocomplete/internal/trieindex"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotRestore_RoundTripsThroughAdapter(t *testing.T) {
	idx := trieindex.New(10, 1)
	for i := 0; i < 3; i++ {
		_, _ = idx.InsertBump("apple")
	}
	_, _ = idx.InsertBump("app")
	idx.RebuildTopResults()

	adapter := persistencetest.NewMemoryAdapter()
	ctx := context.Background()

	assert.NoError(t, idx.Snapshot(ctx, adapter))

	restored, err := trieindex.Restore(ctx, adapter, 10, 1)
	assert.NoError(t, err)

	assert.Equal(t, idx.Root().TopResults["apple"], restored.Root().TopResults["apple"])
	assert.Equal(t, idx.Root().TopResults["app"], restored.Root().TopResults["app"])
}

func TestSnapshotRestore_EmptyTrie(t *testing.T) {
	idx := trieindex.New(10, 1)
	adapter := persistencetest.NewMemoryAdapter()
	ctx := context.Background()

	assert.NoError(t, idx.Snapshot(ctx, adapter))

	restored, err := trieindex.Restore(ctx, adapter, 10, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, restored.NodeCount())
}

var _ persistence.Adapter = (*persistencetest.MemoryAdapter)(nil)
