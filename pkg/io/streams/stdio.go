// Package streams holds sinks for the consumer end of a document pipeline.
package streams

import (
	"context"
	"io"
	"os"

	"github.com/jgautsch/esstream"
)

// StdIO writes document bodies as newline-delimited JSON, one doc per line.
// Out defaults to stdout when nil.
type StdIO struct {
	Out io.Writer

	docswritten int
}

// Write consumes docs until the channel closes or ctx is cancelled. Write
// failures are reported on the returned channel, which closes when the docs
// channel does; a failed doc is skipped, not retried.
func (s *StdIO) Write(ctx context.Context, docs <-chan esstream.Doc) <-chan error {
	errs := make(chan error)

	go func() {
		out := s.Out
		if out == nil {
			out = os.Stdout
		}
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-docs:
				if !ok {
					close(errs)
					return
				}
				if _, err := out.Write(append(d.Source, '\n')); err != nil {
					errs <- err
					continue
				}
				s.docswritten++
			}
		}
	}()

	return errs
}

// Written reports how many documents have been flushed. Only meaningful once
// the error channel has closed.
func (s *StdIO) Written() int {
	return s.docswritten
}
