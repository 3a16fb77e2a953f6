package exec

import (
	"context"
	"io"
	"sync"
)

// StdinHandle owns the writable end of a child's stdin and, optionally, a
// channel from which lines are forwarded. It is single-owner: it cannot be
// cloned, and at most one StdinHandle exists per process.
type StdinHandle struct {
	mu     sync.Mutex
	w      io.WriteCloser
	closed bool
	source <-chan string
}

func newStdinHandle(w io.WriteCloser, source <-chan string) *StdinHandle {
	return &StdinHandle{w: w, source: source}
}

// Write writes raw bytes to the child's stdin.
func (s *StdinHandle) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}

	return s.w.Write(p)
}

// WriteLine writes text followed by a newline.
func (s *StdinHandle) WriteLine(text string) error {
	_, err := s.Write([]byte(text + "\n"))

	return err
}

// Close drops the writer, signalling EOF to the child. Idempotent.
func (s *StdinHandle) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.w.Close()
}

// ForwardChannel consumes the attached source channel, writing each chunk
// verbatim to stdin, until the channel closes or ctx is done, then closes
// stdin. It is a no-op if no source channel was attached to the Command.
// Exactly one of direct Write calls or ForwardChannel should be active at a
// time; mixing the two is permitted but their relative ordering is undefined.
func (s *StdinHandle) ForwardChannel(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-s.source:
			if !ok {
				return nil
			}

			if _, err := s.Write([]byte(chunk)); err != nil {
				return err
			}
		}
	}
}
