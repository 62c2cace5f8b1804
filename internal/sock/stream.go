package sock

import (
	"context"
	"io"
	"sync"

	ncerr "asyncnet/internal/errors"
)

// Stream adapts a connected Channel to blocking io.Reader/io.Writer
// semantics.  Reads wait for the manager's readiness callback instead
// of spinning, and give up when ctx is done.
type Stream struct {
	ch    *Channel
	ctx   context.Context
	ready chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

var _ io.ReadWriteCloser = (*Stream)(nil)

// NewStream starts watching ch for reads.  The manager must be running
// for Read to make progress once the socket buffer is drained.
func NewStream(ctx context.Context, ch *Channel) (*Stream, error) {
	s := &Stream{
		ch:    ch,
		ctx:   ctx,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	if err := ch.WatchForNonBlockingRead(s.notify); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stream) notify(*Channel) {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Read blocks until data arrives, the peer hangs up, ctx is done or the
// stream is closed.
func (s *Stream) Read(p []byte) (int, error) {
	for {
		n, err := s.ch.Recv(p)
		if err != ncerr.ErrWouldBlock {
			return n, err
		}
		select {
		case <-s.ready:
		case <-s.ctx.Done():
			return 0, s.ctx.Err()
		case <-s.done:
			return 0, ncerr.ErrClosed
		}
	}
}

// Write sends all of p.
func (s *Stream) Write(p []byte) (int, error) { return s.ch.Send(p) }

// CloseWrite half-closes the connection.
func (s *Stream) CloseWrite() error { return s.ch.CloseWrite() }

// Close stops watching and closes the channel.  A blocked Read returns
// ErrClosed.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.ch.StopWatching()
	return s.ch.Close()
}

// Channel returns the underlying channel.
func (s *Stream) Channel() *Channel { return s.ch }
