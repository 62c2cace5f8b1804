package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"asyncnet/internal/capability"
	"asyncnet/internal/metrics"
	"asyncnet/internal/session"
	"asyncnet/internal/transport"
	"asyncnet/util"
)

// ConnectMode dials a remote address and runs a capability on the
// resulting connection, the default client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Host       string
	Port       int
	Logger     *util.Logger
	Metrics    *metrics.Collector // optional

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the target, creates a session, and hands it to the
// capability.  The transport is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()
	defer m.logMetrics()

	target := util.FormatAddr(m.Host, m.Port)
	conn, err := m.Dialer.Dial(ctx, m.Host, m.Port)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	defer conn.Close()

	sess := session.New(conn, target, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}

func (m *ConnectMode) logMetrics() {
	if m.Metrics != nil {
		m.Logger.Debug("metrics: %s", m.Metrics.JSON())
	}
}
