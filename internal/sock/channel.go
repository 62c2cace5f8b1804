package sock

import (
	"fmt"
	"io"
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"

	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/metrics"
)

// sendWaitSliceMs bounds each wait for write readiness so a concurrent
// Close is noticed.
const sendWaitSliceMs = 100

// Channel owns exactly one socket descriptor.
//
// It is returned by the connector either connected or closed, never in
// between.  Close is idempotent and safe on a channel whose descriptor
// was never valid.
type Channel struct {
	addr    string // "host:port" as requested, for diagnostics
	mgr     Manager
	metrics *metrics.Collector

	mu        sync.RWMutex
	fd        int
	closed    bool
	connected bool
	watching  bool
}

// newChannel wraps fd.  A negative fd yields a channel that is already
// closed and owns nothing.
func newChannel(fd int, addr string, mgr Manager, m *metrics.Collector) *Channel {
	return &Channel{
		addr:    addr,
		mgr:     mgr,
		metrics: m,
		fd:      fd,
		closed:  fd < 0,
	}
}

func (c *Channel) markConnected() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
}

// IsValid reports whether the descriptor is open and was verified
// connected.
func (c *Channel) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.connected && c.fd >= 0
}

// Fd returns the descriptor, or -1 once the channel is closed.
func (c *Channel) Fd() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return -1
	}
	return c.fd
}

// Addr returns the target the channel was created for.
func (c *Channel) Addr() string { return c.addr }

// Close releases the descriptor.  Calling it more than once, or on a
// channel that never owned a descriptor, does nothing.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.watching {
		c.mgr.StopWatchingFileDescriptor(c.fd) //nolint:errcheck
		c.watching = false
	}
	if c.connected {
		unix.Shutdown(c.fd, unix.SHUT_RDWR) //nolint:errcheck
		c.metrics.ChannelClosed()
	}
	err := unix.Close(c.fd)
	c.fd = -1
	if err != nil {
		return ncerr.Wrap("close", c.addr, err)
	}
	return nil
}

// ── Addresses ────────────────────────────────────────────────────────

// RemoteAddr returns the peer address bound to the descriptor.
func (c *Channel) RemoteAddr() (netip.AddrPort, error) {
	return c.sockaddr(unix.Getpeername)
}

// LocalAddr returns the local address bound to the descriptor.
func (c *Channel) LocalAddr() (netip.AddrPort, error) {
	return c.sockaddr(unix.Getsockname)
}

func (c *Channel) sockaddr(get func(int) (unix.Sockaddr, error)) (netip.AddrPort, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return netip.AddrPort{}, ncerr.ErrClosed
	}
	sa, err := get(c.fd)
	if err != nil {
		return netip.AddrPort{}, err
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), nil
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port)), nil
	default:
		return netip.AddrPort{}, fmt.Errorf("unexpected socket address %T", sa)
	}
}

// ── I/O ──────────────────────────────────────────────────────────────

// Recv reads whatever is available without blocking.  It returns
// ErrWouldBlock when nothing is ready and io.EOF once the peer has shut
// down its side.
func (c *Channel) Recv(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, ncerr.ErrClosed
	}
	if !c.connected {
		return 0, ncerr.ErrNotConnected
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return 0, ncerr.ErrWouldBlock
		case err != nil:
			return 0, ncerr.Wrap("recv", c.addr, err)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		c.metrics.BytesReceived(int64(n))
		return n, nil
	}
}

// Send writes all of p, waiting for write readiness whenever the socket
// buffer is full.
func (c *Channel) Send(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := c.write(p[total:])
		total += n
		switch {
		case err == nil:
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			if werr := c.waitWritable(); werr != nil {
				return total, ncerr.Wrap("send", c.addr, werr)
			}
		case err == ncerr.ErrClosed || err == ncerr.ErrNotConnected:
			return total, err
		default:
			return total, ncerr.Wrap("send", c.addr, err)
		}
	}
	return total, nil
}

func (c *Channel) write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, ncerr.ErrClosed
	}
	if !c.connected {
		return 0, ncerr.ErrNotConnected
	}
	for {
		n, err := unix.Write(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		c.metrics.BytesSent(int64(n))
		return n, err
	}
}

// waitWritable blocks for at most one wait slice; the caller re-checks
// the channel state on every iteration.
func (c *Channel) waitWritable() error {
	fd := c.Fd()
	if fd < 0 {
		return ncerr.ErrClosed
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(fds, sendWaitSliceMs)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// CloseWrite shuts down the sending side of the connection.
func (c *Channel) CloseWrite() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ncerr.ErrClosed
	}
	if err := unix.Shutdown(c.fd, unix.SHUT_WR); err != nil {
		return ncerr.Wrap("shutdown", c.addr, err)
	}
	return nil
}

// ── Readiness ────────────────────────────────────────────────────────

// WatchForNonBlockingRead asks the manager to call cb whenever new data
// (or a hang-up) arrives.  A previous watch is replaced.
func (c *Channel) WatchForNonBlockingRead(cb func(*Channel)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ncerr.ErrClosed
	}
	if c.mgr == nil {
		return ncerr.Wrap("watch", c.addr, ncerr.New("no manager"))
	}
	if c.watching {
		c.mgr.StopWatchingFileDescriptor(c.fd) //nolint:errcheck
		c.watching = false
	}
	if err := c.mgr.WatchFdForNonBlockingReads(c.fd, func(int) { cb(c) }); err != nil {
		return ncerr.Wrap("watch", c.addr, err)
	}
	c.watching = true
	return nil
}

// StopWatching cancels WatchForNonBlockingRead.
func (c *Channel) StopWatching() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watching {
		c.mgr.StopWatchingFileDescriptor(c.fd) //nolint:errcheck
		c.watching = false
	}
}
