package esstream

import (
	"context"
	"iter"
)

// All exposes the stream as a range-over-func sequence:
//
//	for doc, err := range stream.All(ctx) {
//		if err != nil {
//			return err
//		}
//		// use doc
//	}
//
// A loader failure is yielded as the final pair and iteration stops there.
// Breaking out of the loop early is equivalent to abandoning the stream.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for s.Next(ctx) {
			if !yield(s.Value(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}
