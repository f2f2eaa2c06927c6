// Package esstream turns a paged data source into a lazy, one-document-at-a-time
// stream, suitable for feeding bulk indexing pipelines without holding the whole
// data set in memory.
package esstream

import (
	"context"
	"encoding/json"
)

// Loader wraps fetching one page of items from a backing source.
//
// Load returns an empty page exactly when no data exists at or beyond offset;
// otherwise it returns up to limit items in the order they should be emitted.
// The offset a Stream passes in advances by a full limit per fetch, even when
// an earlier page came back short of limit, so implementations must treat
// offset as a page-sized stride rather than a count of items already returned.
type Loader[T any] interface {
	Load(
		ctx context.Context,
		source any, // opaque descriptor of what to iterate, passed through untouched
		offset int,
		limit int,
	) ([]T, error)
}

// LoaderFunc adapts an ordinary function to the Loader interface.
type LoaderFunc[T any] func(ctx context.Context, source any, offset, limit int) ([]T, error)

func (f LoaderFunc[T]) Load(ctx context.Context, source any, offset, limit int) ([]T, error) {
	return f(ctx, source, offset, limit)
}

// Meta identifies a document within a cluster.
type Meta struct {
	ID    string `json:"_id"`
	Type  string `json:"_type,omitempty"`
	Index string `json:"_index"`
}

// Doc is a single document pulled out of a source: identity plus raw body.
type Doc struct {
	Meta   Meta
	Source json.RawMessage
}
