package esstream

import (
	"context"
	"errors"
)

// ErrInvalidPageSize is returned by New when the configured page size is not
// a positive integer.
var ErrInvalidPageSize = errors.New("esstream: page size must be positive")

// Stream pulls items out of a Loader one at a time. It buffers a single page
// and serves it head-first, fetching the next page only when the buffer runs
// dry, so nothing is read from the source ahead of what the consumer asked
// for. A Stream is forward-only and cannot be rewound; build a new one to
// replay from the start.
//
// A Stream is not safe for concurrent use. One consumer drives it, or callers
// serialize access themselves.
type Stream[T any] struct {
	// Configuration
	source   any
	loader   Loader[T]
	pageSize int

	// Cursor state
	buffer []T
	offset int
	cur    T
	done   bool
	err    error
}

// New builds a Stream over source. The loader is not called until the first
// Next, so construction is free and never touches the backing store.
func New[T any](source any, loader Loader[T], pageSize int) (*Stream[T], error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	return &Stream[T]{
		source:   source,
		loader:   loader,
		pageSize: pageSize,
	}, nil
}

// Next advances the stream to the next item, fetching a page from the loader
// if the buffer is empty. It returns false once the source is exhausted or a
// load failed; after exhaustion the loader is never invoked again. Check Err
// to tell the two apart.
func (s *Stream[T]) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}
	if len(s.buffer) == 0 {
		page, err := s.loader.Load(ctx, s.source, s.offset, s.pageSize)
		if err != nil {
			// Cursor untouched: offset only advances on a successful fetch.
			s.err = err
			return false
		}
		if len(page) == 0 {
			s.done = true
			return false
		}
		s.buffer = page
		// Full page-size stride per fetch, regardless of how many items the
		// page actually held. See the Loader contract.
		s.offset += s.pageSize
	}
	s.cur = s.buffer[0]
	s.buffer = s.buffer[1:]
	return true
}

// Value returns the item produced by the last successful Next.
func (s *Stream[T]) Value() T { return s.cur }

// Err returns the loader failure that stopped the stream, or nil if the
// stream is still live or ended by normal exhaustion. The failure is the
// loader's error verbatim; nothing is wrapped or retried here.
func (s *Stream[T]) Err() error { return s.err }

// Close marks the stream exhausted. There is no underlying resource to
// release, so Close never fails and abandoning a stream without calling it
// is also safe.
func (s *Stream[T]) Close() error {
	s.done = true
	return nil
}
