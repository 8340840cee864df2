// Package persistence defines the contract the ranked-prefix index uses
// to snapshot itself to, and rehydrate itself from, an external
// labeled-node/directed-edge store (originally a neo4j graph via py2neo,
// see original_source/src/Database.py; this package also ships two
// concrete Go adapters: a relational one over lib/pq and an embedded one
// over syndtr/goleveldb).
package persistence

import "context"

// NodeAttrs are the properties attached to a TrieNode label when it is
// dumped to the external store.
type NodeAttrs struct {
	Name   string
	IsWord bool
	Count  int64
}

// Tx is an opaque transaction handle; adapters decide what it wraps.
type Tx interface{}

// Adapter is the contract a persistence backend must satisfy. The core
// never assumes a specific store — only labeled-node + directed-edge
// semantics with attribute attachment.
type Adapter interface {
	ClearAll(ctx context.Context) error
	BeginTransaction(ctx context.Context) (Tx, error)
	CreateNode(ctx context.Context, tx Tx, labels []string, attrs NodeAttrs) (string, error)
	CreateEdge(ctx context.Context, tx Tx, parentHandle, childHandle string) error
	Commit(ctx context.Context, tx Tx) error
	FindRoot(ctx context.Context) (string, NodeAttrs, error)
	FindByName(ctx context.Context, name string) (string, NodeAttrs, bool, error)
	ChildrenOf(ctx context.Context, handle string) ([]string, error)
}

// RootLabel distinguishes the root node from ordinary TrieNode labels,
// matching the original's Node('TrieNode', 'ROOT', ...).
const RootLabel = "ROOT"

// NodeLabel is the label every persisted node carries.
const NodeLabel = "TrieNode"
