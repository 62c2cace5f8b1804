package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	ncerr "asyncnet/internal/errors"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Conn is the connection side of a relay.  Both *net.TCPConn and
// *sock.Stream satisfy it.
type Conn interface {
	io.ReadWriteCloser
	CloseWrite() error
}

// BidirectionalCopy shuffles data between a connection and an arbitrary
// reader/writer pair (typically stdin/stdout) until the remote side
// finishes, a copy fails or the context is cancelled.
//
// EOF on r half-closes the connection so the remote can finish sending.
// The reader goroutine is not waited for once the remote is done, since
// r may be a terminal that never returns.
func BidirectionalCopy(ctx context.Context, conn Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	inErr := make(chan error, 1)
	outErr := make(chan error, 1)

	// network → writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		outErr <- copyPooled(w, conn)
		cancel()
	}()

	// reader → network
	go func() {
		err := copyPooled(conn, r)
		conn.CloseWrite() //nolint:errcheck
		inErr <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	wg.Wait()

	if err := <-outErr; !isHarmless(err) {
		return err
	}
	select {
	case err := <-inErr:
		if !isHarmless(err) {
			return err
		}
	default:
	}
	return nil
}

func copyPooled(dst io.Writer, src io.Reader) error {
	buf := GetBuf()
	defer PutBuf(buf)
	_, err := io.CopyBuffer(dst, src, *buf)
	return err
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	if errors.Is(err, ncerr.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
