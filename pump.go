package esstream

import "context"

// Pump drains a stream into a channel so a consumer goroutine can range over
// it. The items channel is closed when the stream ends, for any reason; if a
// load failed, the failure is delivered on the error channel before both are
// closed. Cancelling ctx stops the pump between items.
func Pump[T any](ctx context.Context, s *Stream[T]) (<-chan T, <-chan error) {
	items := make(chan T)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)
		for s.Next(ctx) {
			select {
			case items <- s.Value():
			case <-ctx.Done():
				return
			}
		}
		if err := s.Err(); err != nil {
			errs <- err
		}
	}()

	return items, errs
}
