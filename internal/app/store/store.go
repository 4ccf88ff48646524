/*
Package store defines the document-store contract the synchronization engine is built on,
along with the backends that implement it.

The contract mirrors what the engine requires of any backing store: point reads by identity,
writes with either overwrite or shallow-merge semantics, equality queries with a result-count
limit, idempotent deletion, an atomic read-modify-write primitive, and live change
subscriptions that deliver the full matching result set on every change (snapshot delivery,
not diffs). Per-document consistency is last-writer-wins.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// TimeLayout is the fixed-width UTC timestamp format used inside documents.
// Unlike RFC3339Nano it never drops trailing zeros, so lexicographic order
// of encoded values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Sentinel errors returned by store backends.
var (
	// ErrNotFound indicates a point read or update referenced a document that does not exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("store: client is closed")
)

// Document is a single stored record: an identity plus an opaque JSON body.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into dst.
func (d Document) Decode(dst any) error {
	return json.Unmarshal(d.Data, dst)
}

// Query selects documents from one collection.
// Field/Equals apply an optional equality filter on a top-level string field.
// OrderBy sorts by a top-level field's encoded value (use TimeLayout timestamps
// for chronological ordering); Limit truncates the result after ordering.
type Query struct {
	Collection string
	Field      string
	Equals     string
	OrderBy    string
	Descending bool
	Limit      int
}

// UpdateFunc transforms the current document body into its replacement.
// It runs under the backend's atomicity guarantee: no concurrent writer can
// interleave between the read and the write-back.
type UpdateFunc func(current json.RawMessage) (json.RawMessage, error)

// SnapshotFunc receives the full matching result set of a subscription.
// Invocations for a single subscription are serialized, never concurrent.
type SnapshotFunc func(docs []Document)

// CancelFunc tears down a subscription. Calling it more than once is safe.
type CancelFunc func()

// Client is the backing document store as seen by the synchronization engine.
// Implementations: MemStore (in-process), RedisStore (go-redis), PGStore (pgx).
type Client interface {
	// Get performs a point read by identity. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Add inserts a document with a store-generated identity and returns that identity.
	Add(ctx context.Context, collection string, data any) (string, error)

	// Put fully overwrites the document (creating it when absent).
	Put(ctx context.Context, collection, id string, data any) error

	// Merge shallow-merges the named top-level fields into the document,
	// preserving all other fields. An absent document is created.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document. Deleting an absent document is success, not an error.
	Delete(ctx context.Context, collection, id string) error

	// Find runs a one-shot query.
	Find(ctx context.Context, q Query) ([]Document, error)

	// Update atomically applies fn to the document body. Returns ErrNotFound
	// when the document does not exist.
	Update(ctx context.Context, collection, id string, fn UpdateFunc) error

	// Subscribe establishes a live subscription over q. fn fires once immediately
	// with the current snapshot and again on every subsequent change to the
	// collection. Establishment failure is returned once; there is no silent retry.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error)

	// Close releases the backend's resources and cancels outstanding subscriptions.
	Close() error
}

// FormatTime encodes t for storage inside a document body.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a document timestamp. The zero time is returned for
// malformed values so a corrupt record sorts first instead of failing a read.
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// fieldString extracts a top-level field from a JSON body as its string form.
// Non-string scalars are not needed by any query in this codebase.
func fieldString(data json.RawMessage, field string) (string, bool) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return "", false
	}

	raw, ok := body[field]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// applyQuery filters, orders, and truncates docs according to q.
// Backends without server-side query support share this implementation.
func applyQuery(docs []Document, q Query) []Document {
	matched := make([]Document, 0, len(docs))

	for _, doc := range docs {
		if q.Field != "" {
			value, ok := fieldString(doc.Data, q.Field)
			if !ok || value != q.Equals {
				continue
			}
		}
		matched = append(matched, doc)
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			vi, _ := fieldString(matched[i].Data, q.OrderBy)
			vj, _ := fieldString(matched[j].Data, q.OrderBy)
			if q.Descending {
				return vi > vj
			}
			return vi < vj
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched
}
