package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Query describes the only filter shapes the system needs: an optional
// single-field equality filter, an optional order-by, and a limit.
type Query struct {
	Field      string // equality filter field; empty means no filter
	Value      any
	OrderBy    string // field to order by; empty means storage order
	Descending bool
	Limit      int // 0 means no limit
}

// Store is the uniform document-store contract everything persists
// through. Documents are JSON objects addressed by (collection, key).
//
// Increment, ArrayUnion, ArrayRemove, ArrayAppend and UpdateIf are atomic
// read-modify-write primitives: concurrent callers never observe or
// produce lost updates through them.
type Store interface {
	// Get returns the raw document, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)

	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, key string, doc any) error

	// Update merges the given top-level fields into an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, key string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, key string) error

	// Query returns raw documents matching q.
	Query(ctx context.Context, collection string, q Query) ([]json.RawMessage, error)

	// Increment atomically adds delta to a numeric field and returns the
	// new value. A missing document or field is treated as zero and the
	// document is created if absent.
	Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error)

	// ArrayAppend atomically appends value to an array field, creating
	// the document and the field as needed. Duplicates are allowed.
	ArrayAppend(ctx context.Context, collection, key, field string, value any) error

	// ArrayUnion atomically appends value to an array field only if it is
	// not already present. Returns true if the value was added.
	// Returns ErrNotFound if the document does not exist.
	ArrayUnion(ctx context.Context, collection, key, field string, value any) (bool, error)

	// ArrayRemove atomically removes all occurrences of value from an
	// array field. Removing an absent value is a no-op.
	ArrayRemove(ctx context.Context, collection, key, field string, value any) error

	// UpdateIf merges fields only if condField currently equals condValue,
	// in a single atomic operation. Returns true if the update applied.
	// This is the guard primitive for state transitions.
	UpdateIf(ctx context.Context, collection, key, condField string, condValue any, fields map[string]any) (bool, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int64, error)
}
