/*
Package store defines the document-store contract and its backends.

This file implements MemStore, the in-process backend. It is the reference
implementation for the contract's semantics (snapshot delivery, serialized
callbacks, idempotent cancellation, atomic updates) and the backend the test
suite runs against.
*/
package store

import (
	"context"
	"encoding/json"
	"sync"

	"geochat/internal/pkg/randx"
)

// MemStore is an in-memory Client. All mutations notify matching watchers
// with a freshly computed snapshot; per-watcher delivery is serialized and
// coalesced to the latest snapshot when the consumer is slow.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	watchers    map[int64]*memWatcher
	nextWatcher int64
	closed      bool
}

// memWatcher is one live subscription over a MemStore query.
type memWatcher struct {
	query   Query
	fn      SnapshotFunc
	mailbox chan []Document
	done    chan struct{}
	once    sync.Once
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string]map[string]json.RawMessage),
		watchers:    make(map[int64]*memWatcher),
	}
}

func (m *MemStore) collection(name string) map[string]json.RawMessage {
	col, ok := m.collections[name]
	if !ok {
		col = make(map[string]json.RawMessage)
		m.collections[name] = col
	}
	return col
}

// snapshotLocked computes the current result set for q. Callers hold m.mu.
func (m *MemStore) snapshotLocked(q Query) []Document {
	col := m.collections[q.Collection]

	docs := make([]Document, 0, len(col))
	for id, data := range col {
		clone := make(json.RawMessage, len(data))
		copy(clone, data)
		docs = append(docs, Document{ID: id, Data: clone})
	}

	return applyQuery(docs, q)
}

// notifyLocked offers fresh snapshots to every watcher on the collection.
// A full mailbox is drained first so only the latest snapshot is pending.
func (m *MemStore) notifyLocked(collection string) {
	for _, w := range m.watchers {
		if w.query.Collection != collection {
			continue
		}

		snap := m.snapshotLocked(w.query)

		select {
		case w.mailbox <- snap:
		default:
			select {
			case <-w.mailbox:
			default:
			}
			select {
			case w.mailbox <- snap:
			default:
			}
		}
	}
}

// Get implements Client.
func (m *MemStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Document{}, ErrClosed
	}

	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}

	clone := make(json.RawMessage, len(data))
	copy(clone, data)
	return Document{ID: id, Data: clone}, nil
}

// Add implements Client. The identity is store-generated.
func (m *MemStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := randx.DocID()
	if err := m.Put(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Put implements Client with overwrite semantics.
func (m *MemStore) Put(ctx context.Context, collection, id string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.collection(collection)[id] = encoded
	m.notifyLocked(collection)
	return nil
}

// Merge implements Client with shallow-merge semantics.
// An absent document is created from the given fields alone.
func (m *MemStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	body := make(map[string]any)
	if existing, ok := m.collections[collection][id]; ok {
		if err := json.Unmarshal(existing, &body); err != nil {
			return err
		}
	}

	for name, value := range fields {
		body[name] = value
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	m.collection(collection)[id] = encoded
	m.notifyLocked(collection)
	return nil
}

// Delete implements Client. Deleting an absent document is success.
func (m *MemStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	col, ok := m.collections[collection]
	if !ok {
		return nil
	}

	if _, ok := col[id]; !ok {
		return nil
	}

	delete(col, id)
	m.notifyLocked(collection)
	return nil
}

// Find implements Client.
func (m *MemStore) Find(ctx context.Context, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	return m.snapshotLocked(q), nil
}

// Update implements Client. fn runs while the store lock is held, so no
// concurrent writer can interleave between the read and the write-back.
func (m *MemStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	current, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}

	replacement, err := fn(current)
	if err != nil {
		return err
	}

	m.collection(collection)[id] = replacement
	m.notifyLocked(collection)
	return nil
}

// Subscribe implements Client. The initial snapshot is queued before Subscribe
// returns, so the first callback fires as soon as the delivery goroutine runs.
func (m *MemStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	w := &memWatcher{
		query:   q,
		fn:      fn,
		mailbox: make(chan []Document, 1),
		done:    make(chan struct{}),
	}

	m.nextWatcher++
	id := m.nextWatcher
	m.watchers[id] = w

	w.mailbox <- m.snapshotLocked(q)
	m.mu.Unlock()

	go w.run()

	cancel := func() {
		w.once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
			close(w.done)
		})
	}

	return cancel, nil
}

// run delivers snapshots to the callback one at a time.
func (w *memWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case snap := <-w.mailbox:
			w.fn(snap)
		}
	}
}

// Close implements Client. Outstanding watchers are stopped.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for id, w := range m.watchers {
		delete(m.watchers, id)
		close(w.done)
	}

	return nil
}
