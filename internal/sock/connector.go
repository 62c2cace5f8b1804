package sock

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/metrics"
	"asyncnet/internal/resolve"
	"asyncnet/util"
)

// Connector opens outbound TCP connections.  It holds no per-call state,
// so one Connector may be used from many goroutines at once.
type Connector struct {
	mgr      Manager
	resolver resolve.Resolver
	logger   *util.Logger
	metrics  *metrics.Collector

	poll pollFunc
	now  func() time.Time
}

// Option configures a Connector.
type Option func(*Connector)

// WithResolver replaces the system resolver.
func WithResolver(r resolve.Resolver) Option {
	return func(c *Connector) { c.resolver = r }
}

// WithLogger sets the logger used for attempt and failure lines.
func WithLogger(l *util.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// WithMetrics records every attempt and channel in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Connector) { c.metrics = m }
}

// NewConnector returns a Connector whose channels report readiness
// through mgr.  mgr may be nil when callers never watch channels.
func NewConnector(mgr Manager, opts ...Option) *Connector {
	c := &Connector{
		mgr:      mgr,
		resolver: resolve.System(),
		poll:     unix.Poll,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = util.NewLogger(0)
	}
	return c
}

// ConnectToRemoteServer connects to server:port, waiting at most
// timeout for the handshake.  It never fails loudly: the returned
// Channel is connected on success and already closed on any failure.
//
// A timeout of zero or less does not wait; the connection must already
// be established when the socket is first checked.
func (c *Connector) ConnectToRemoteServer(server string, port int, timeout time.Duration) *Channel {
	ch, _ := c.Dial(server, port, timeout)
	return ch
}

// Dial behaves like ConnectToRemoteServer and also reports why a failed
// attempt failed.  The Channel is never nil; on error it is closed and
// the error is a *errors.ConnectError.
func (c *Connector) Dial(server string, port int, timeout time.Duration) (*Channel, error) {
	c.logger.Verbose("connecting to %s:%d in %d ms", server, port, timeout.Milliseconds())
	c.metrics.ConnectAttempt()

	fd, err := newSocket()
	ch := newChannel(fd, util.FormatAddr(server, port), c.mgr, c.metrics)
	if err != nil {
		return ch, c.fail(ch, ncerr.OutcomeSocket, server, port, err)
	}

	addr, err := resolve.First4(context.Background(), c.resolver, server)
	if err != nil {
		return ch, c.fail(ch, ncerr.OutcomeResolve, server, port, err)
	}
	c.logger.Debug("%s resolved to %s", server, addr)

	sa := &unix.SockaddrInet4{Port: port, Addr: addr.As4()}
	deadline := c.now().Add(timeout)
	if err := unix.Connect(fd, sa); err != nil && !inProgress(err) {
		return ch, c.fail(ch, ncerr.OutcomeConnect, server, port, err)
	}

	n, err := waitReady(c.poll, c.now, fd, deadline)
	if n <= 0 {
		if err == nil {
			err = ncerr.ErrTimeout
		}
		return ch, c.fail(ch, ncerr.OutcomePoll, server, port, err)
	}

	// Readiness alone does not prove the handshake completed: a refused
	// connect is also "ready".  Only a socket with a peer is connected.
	if _, err := unix.Getpeername(fd); err != nil {
		if soErr, qerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); qerr == nil && soErr != 0 {
			err = unix.Errno(soErr)
		}
		return ch, c.fail(ch, ncerr.OutcomePeer, server, port, err)
	}

	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return ch, c.fail(ch, ncerr.OutcomeSockErr, server, port, err)
	}
	if soErr != 0 {
		return ch, c.fail(ch, ncerr.OutcomeSockErr, server, port, unix.Errno(soErr))
	}

	ch.markConnected()
	c.metrics.ConnectDone(ncerr.OutcomeConnected, "")
	c.logger.Verbose("connected to %s:%d (%d)", server, port, fd)
	return ch, nil
}

// fail closes ch (unless it never owned a descriptor), logs and counts
// the failure, and builds the error Dial returns.
func (c *Connector) fail(ch *Channel, outcome ncerr.Outcome, server string, port int, err error) error {
	if outcome != ncerr.OutcomeSocket {
		ch.Close() //nolint:errcheck
	}
	cerr := ncerr.Connect(outcome, server, port, err)
	c.logger.Info("failed to connect to %s:%d: %s: %v", server, port, outcome, err)
	c.metrics.ConnectDone(outcome, cerr.Error())
	return cerr
}

// inProgress reports whether a connect error means the handshake is
// still under way.  An interrupted connect keeps going in the kernel.
func inProgress(err error) bool {
	return err == unix.EINPROGRESS || err == unix.EAGAIN ||
		err == unix.EWOULDBLOCK || err == unix.EINTR
}
