package transport

import (
	"context"
	"net"
	"net/netip"

	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/resolve"
	"asyncnet/util"
)

// TCPDialer establishes connections through the runtime's dialer.  It
// resolves targets the same way as the connector so both transports
// accept the same hosts.
type TCPDialer struct {
	Options
}

// Dial connects to the first IPv4 address of host.  A non-positive
// timeout leaves the attempt bounded by ctx alone.
func (d *TCPDialer) Dial(ctx context.Context, host string, port int) (util.Conn, error) {
	log := d.logger().Named("tcp")
	log.Verbose("connecting to %s:%d in %d ms", host, port, d.Timeout.Milliseconds())
	d.Metrics.ConnectAttempt()

	addr, err := resolve.First4(ctx, d.resolver(), host)
	if err != nil {
		return nil, d.fail(ncerr.OutcomeResolve, host, port, err)
	}

	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp4", netip.AddrPortFrom(addr, uint16(port)).String())
	if err != nil {
		return nil, d.fail(ncerr.OutcomeConnect, host, port, err)
	}

	d.Metrics.ConnectDone(ncerr.OutcomeConnected, "")
	log.Verbose("connected to %s:%d", host, port)
	return conn.(*net.TCPConn), nil
}

func (d *TCPDialer) fail(outcome ncerr.Outcome, host string, port int, err error) error {
	cerr := ncerr.Connect(outcome, host, port, err)
	d.logger().Named("tcp").Info("failed to connect to %s:%d: %s: %v", host, port, outcome, err)
	d.Metrics.ConnectDone(outcome, cerr.Error())
	return cerr
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
