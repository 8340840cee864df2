// Package persistencetest provides an in-memory persistence.Adapter
// for use in tests elsewhere in the module, so package tests that
// exercise Snapshot/Restore don't need a running Postgres or LevelDB
// instance.
package persistencetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/riftword/autocomplete/internal/persistence"
)

// MemoryAdapter is a persistence.Adapter backed by in-process maps.
type MemoryAdapter struct {
	mu       sync.Mutex
	nodes    map[string]persistence.NodeAttrs
	children map[string][]string
	root     string
	nextID   int64
}

// NewMemoryAdapter returns an empty adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		nodes:    make(map[string]persistence.NodeAttrs),
		children: make(map[string][]string),
	}
}

// ClearAll resets all state.
func (m *MemoryAdapter) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]persistence.NodeAttrs)
	m.children = make(map[string][]string)
	m.root = ""
	m.nextID = 0
	return nil
}

type memoryTx struct{}

// BeginTransaction returns a no-op transaction handle; writes take
// effect immediately since this adapter has no real transactional
// isolation to offer.
func (m *MemoryAdapter) BeginTransaction(ctx context.Context) (persistence.Tx, error) {
	return &memoryTx{}, nil
}

// CreateNode allocates the next handle and records attrs under it.
func (m *MemoryAdapter) CreateNode(ctx context.Context, tx persistence.Tx, labels []string, attrs persistence.NodeAttrs) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := strconv.FormatInt(m.nextID, 10)
	m.nextID++
	m.nodes[handle] = attrs
	for _, l := range labels {
		if l == persistence.RootLabel {
			m.root = handle
		}
	}
	return handle, nil
}

// CreateEdge appends childHandle to parentHandle's children list.
func (m *MemoryAdapter) CreateEdge(ctx context.Context, tx persistence.Tx, parentHandle, childHandle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parentHandle] = append(m.children[parentHandle], childHandle)
	return nil
}

// Commit is a no-op; CreateNode/CreateEdge already mutated state.
func (m *MemoryAdapter) Commit(ctx context.Context, tx persistence.Tx) error {
	return nil
}

// FindRoot returns the handle and attrs recorded as root.
func (m *MemoryAdapter) FindRoot(ctx context.Context) (string, persistence.NodeAttrs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.nodes[m.root]
	if !ok {
		return "", persistence.NodeAttrs{}, fmt.Errorf("persistencetest: no root recorded")
	}
	return m.root, attrs, nil
}

// FindByName looks up a node by handle.
func (m *MemoryAdapter) FindByName(ctx context.Context, handle string) (string, persistence.NodeAttrs, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.nodes[handle]
	return handle, attrs, ok, nil
}

// ChildrenOf returns the children recorded for handle.
func (m *MemoryAdapter) ChildrenOf(ctx context.Context, handle string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.children[handle], nil
}
