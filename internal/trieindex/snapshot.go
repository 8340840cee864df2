package trieindex

import (
	"context"
	"fmt"

	"github.com/riftword/autocomplete/internal/persistence"
	"github.com/riftword/autocomplete/internal/trienode"
)

// Snapshot dumps the trie into adapter as a labeled-node/directed-edge
// graph: one node per trie node (the root carries persistence.RootLabel
// in addition to persistence.NodeLabel), one edge per parent-child
// pair, all inside a single transaction. It mirrors
// original_source/src/Database.py's save_trie.
func (idx *Index) Snapshot(ctx context.Context, adapter persistence.Adapter) error {
	if err := adapter.ClearAll(ctx); err != nil {
		return fmt.Errorf("trieindex: clear before snapshot: %w", err)
	}
	tx, err := adapter.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("trieindex: begin snapshot transaction: %w", err)
	}

	var walk func(node *trienode.Node, parentHandle string) error
	walk = func(node *trienode.Node, parentHandle string) error {
		labels := []string{persistence.NodeLabel}
		if node.Parent == nil {
			labels = append(labels, persistence.RootLabel)
		}
		handle, err := adapter.CreateNode(ctx, tx, labels, persistence.NodeAttrs{
			Name:   node.Prefix,
			IsWord: node.IsWord,
			Count:  node.TotalCount(),
		})
		if err != nil {
			return fmt.Errorf("trieindex: create node %q: %w", node.Prefix, err)
		}
		if parentHandle != "" {
			if err := adapter.CreateEdge(ctx, tx, parentHandle, handle); err != nil {
				return fmt.Errorf("trieindex: create edge to %q: %w", node.Prefix, err)
			}
		}
		for _, child := range orderedChildren(node) {
			if err := walk(child, handle); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(idx.root, ""); err != nil {
		return err
	}
	return adapter.Commit(ctx, tx)
}

// Restore rebuilds an Index by reading adapter's labeled-node/
// directed-edge graph breadth-first from its root, seeding each node's
// historical count from NodeAttrs.Count (fromSnapshot Insert) rather
// than bumping it, then performing one RebuildTopResults pass so
// TopResults reflects the restored totals.
func Restore(ctx context.Context, adapter persistence.Adapter, topK, rebuildThreshold int) (*Index, error) {
	rootHandle, rootAttrs, err := adapter.FindRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("trieindex: find root: %w", err)
	}

	idx := New(topK, rebuildThreshold)
	idx.root.SetTotalCount(rootAttrs.Count)
	idx.root.IsWord = rootAttrs.IsWord

	type queued struct {
		handle string
		node   *trienode.Node
	}
	queue := []queued{{handle: rootHandle, node: idx.root}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		childHandles, err := adapter.ChildrenOf(ctx, cur.handle)
		if err != nil {
			return nil, fmt.Errorf("trieindex: children of %q: %w", cur.node.Prefix, err)
		}
		for _, childHandle := range childHandles {
			_, attrs, found, err := adapter.FindByName(ctx, childHandle)
			if err != nil {
				return nil, fmt.Errorf("trieindex: lookup child %q: %w", childHandle, err)
			}
			if !found {
				return nil, fmt.Errorf("%w: dangling child handle %q", ErrMalformedSnapshot, childHandle)
			}
			childNode, err := idx.Insert(attrs.Name, attrs.IsWord, attrs.Count, true)
			if err != nil {
				return nil, fmt.Errorf("trieindex: restore node %q: %w", attrs.Name, err)
			}
			queue = append(queue, queued{handle: childHandle, node: childNode})
		}
	}

	idx.RebuildTopResults()
	return idx, nil
}
