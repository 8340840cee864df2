package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrDangling indicates a handle is referenced (as a root pointer or a
// child edge) but has no corresponding node record.
var ErrDangling = errors.New("persistence: dangling handle reference")

// levelDBNode is the on-disk record for a single trie node, keyed by
// its generated handle under the "node:" prefix.
type levelDBNode struct {
	Name     string
	IsRoot   bool
	IsWord   bool
	Count    int64
	ParentID string
	Children []string
}

const (
	levelDBNodePrefix = "node:"
	levelDBRootKey    = "meta:root"
	levelDBNextIDKey  = "meta:next_id"
)

// LevelDBAdapter is an embedded, single-process persistence backend
// over github.com/syndtr/goleveldb, standing in for a deployment that
// wants snapshot durability without running a separate database
// server. Nodes are msgpack-encoded records keyed by a monotonic
// handle; edges are represented by each node storing its own
// children's handles, since LevelDB has no native graph/edge
// primitive.
type LevelDBAdapter struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelDBAdapter opens (or creates) a LevelDB database at path.
func OpenLevelDBAdapter(path string) (*LevelDBAdapter, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: open leveldb at %s: %w", path, err)
	}
	return &LevelDBAdapter{db: db}, nil
}

// Close closes the underlying LevelDB handle.
func (l *LevelDBAdapter) Close() error {
	return l.db.Close()
}

// ClearAll drops every key under the node prefix and resets the
// handle counter and root pointer.
func (l *LevelDBAdapter) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		key := append([]byte{}, iter.Key()...)
		batch.Delete(key)
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("persistence: iterate for clear: %w", err)
	}
	return l.db.Write(batch, nil)
}

// leveldbTx batches writes in memory until Commit flushes them, giving
// Snapshot an all-or-nothing view even though LevelDB itself has no
// multi-key transaction primitive.
type leveldbTx struct {
	batch  *leveldb.Batch
	nextID int64
	staged map[string][]byte
}

// BeginTransaction starts a fresh write batch, seeded with the next
// free handle counter.
func (l *LevelDBAdapter) BeginTransaction(ctx context.Context) (Tx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := int64(0)
	if raw, err := l.db.Get([]byte(levelDBNextIDKey), nil); err == nil {
		next, _ = strconv.ParseInt(string(raw), 10, 64)
	} else if err != leveldb.ErrNotFound {
		return nil, fmt.Errorf("persistence: read next-id counter: %w", err)
	}
	return &leveldbTx{batch: new(leveldb.Batch), nextID: next}, nil
}

// CreateNode allocates the next handle, msgpack-encodes a node record,
// and stages it into the transaction's batch.
func (l *LevelDBAdapter) CreateNode(ctx context.Context, tx Tx, labels []string, attrs NodeAttrs) (string, error) {
	t, ok := tx.(*leveldbTx)
	if !ok {
		return "", fmt.Errorf("persistence: unexpected tx type %T", tx)
	}
	isRoot := false
	for _, lbl := range labels {
		if lbl == RootLabel {
			isRoot = true
		}
	}

	handle := strconv.FormatInt(t.nextID, 10)
	t.nextID++

	record := levelDBNode{Name: attrs.Name, IsRoot: isRoot, IsWord: attrs.IsWord, Count: attrs.Count}
	encoded, err := msgpack.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("persistence: encode node: %w", err)
	}
	key := levelDBNodePrefix + handle
	t.batch.Put([]byte(key), encoded)
	if t.staged == nil {
		t.staged = make(map[string][]byte)
	}
	t.staged[key] = encoded
	if isRoot {
		t.batch.Put([]byte(levelDBRootKey), []byte(handle))
	}
	return handle, nil
}

// CreateEdge sets childHandle's ParentID and appends childHandle to
// parentHandle's Children, re-encoding both records into the batch.
// Since writes within one transaction only ever touch records created
// earlier in the same transaction, it reads back whatever is already
// staged rather than the committed database.
func (l *LevelDBAdapter) CreateEdge(ctx context.Context, tx Tx, parentHandle, childHandle string) error {
	t, ok := tx.(*leveldbTx)
	if !ok {
		return fmt.Errorf("persistence: unexpected tx type %T", tx)
	}

	parentKey := []byte(levelDBNodePrefix + parentHandle)
	parentRaw, err := l.batchOrDBGet(t, parentKey)
	if err != nil {
		return fmt.Errorf("persistence: load parent %s: %w", parentHandle, err)
	}
	var parent levelDBNode
	if err := msgpack.Unmarshal(parentRaw, &parent); err != nil {
		return fmt.Errorf("persistence: decode parent %s: %w", parentHandle, err)
	}
	parent.Children = append(parent.Children, childHandle)
	parentEncoded, err := msgpack.Marshal(parent)
	if err != nil {
		return fmt.Errorf("persistence: encode parent %s: %w", parentHandle, err)
	}
	t.batch.Put(parentKey, parentEncoded)
	t.staged[string(parentKey)] = parentEncoded

	childKey := []byte(levelDBNodePrefix + childHandle)
	childRaw, err := l.batchOrDBGet(t, childKey)
	if err != nil {
		return fmt.Errorf("persistence: load child %s: %w", childHandle, err)
	}
	var child levelDBNode
	if err := msgpack.Unmarshal(childRaw, &child); err != nil {
		return fmt.Errorf("persistence: decode child %s: %w", childHandle, err)
	}
	child.ParentID = parentHandle
	childEncoded, err := msgpack.Marshal(child)
	if err != nil {
		return fmt.Errorf("persistence: encode child %s: %w", childHandle, err)
	}
	t.batch.Put(childKey, childEncoded)
	t.staged[string(childKey)] = childEncoded
	return nil
}

// batchOrDBGet reads a key from whatever is already staged in the
// batch if present there, falling back to the committed database. The
// batch type does not expose a lookup API, so this tracks staged
// records in a side map instead of scanning the batch.
func (l *LevelDBAdapter) batchOrDBGet(t *leveldbTx, key []byte) ([]byte, error) {
	if t.staged == nil {
		t.staged = make(map[string][]byte)
	}
	if v, ok := t.staged[string(key)]; ok {
		return v, nil
	}
	v, err := l.db.Get(key, nil)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Commit flushes the batch's writes and persists the updated handle
// counter.
func (l *LevelDBAdapter) Commit(ctx context.Context, tx Tx) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := tx.(*leveldbTx)
	if !ok {
		return fmt.Errorf("persistence: unexpected tx type %T", tx)
	}
	t.batch.Put([]byte(levelDBNextIDKey), []byte(strconv.FormatInt(t.nextID, 10)))
	return l.db.Write(t.batch, nil)
}

// FindRoot reads the root pointer and decodes its record.
func (l *LevelDBAdapter) FindRoot(ctx context.Context) (string, NodeAttrs, error) {
	handle, err := l.db.Get([]byte(levelDBRootKey), nil)
	if err != nil {
		return "", NodeAttrs{}, fmt.Errorf("persistence: find root: %w", err)
	}
	_, attrs, found, err := l.FindByName(ctx, string(handle))
	if err != nil {
		return "", NodeAttrs{}, err
	}
	if !found {
		return "", NodeAttrs{}, fmt.Errorf("%w: root handle %s has no record", ErrDangling, handle)
	}
	return string(handle), attrs, nil
}

// FindByName decodes the node record stored under handle.
func (l *LevelDBAdapter) FindByName(ctx context.Context, handle string) (string, NodeAttrs, bool, error) {
	raw, err := l.db.Get([]byte(levelDBNodePrefix+handle), nil)
	if err == leveldb.ErrNotFound {
		return "", NodeAttrs{}, false, nil
	}
	if err != nil {
		return "", NodeAttrs{}, false, fmt.Errorf("persistence: get node %s: %w", handle, err)
	}
	var record levelDBNode
	if err := msgpack.Unmarshal(raw, &record); err != nil {
		return "", NodeAttrs{}, false, fmt.Errorf("persistence: decode node %s: %w", handle, err)
	}
	return handle, NodeAttrs{Name: record.Name, IsWord: record.IsWord, Count: record.Count}, true, nil
}

// ChildrenOf decodes handle's record and returns its Children list.
func (l *LevelDBAdapter) ChildrenOf(ctx context.Context, handle string) ([]string, error) {
	raw, err := l.db.Get([]byte(levelDBNodePrefix+handle), nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: get node %s: %w", handle, err)
	}
	var record levelDBNode
	if err := msgpack.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("persistence: decode node %s: %w", handle, err)
	}
	return record.Children, nil
}
