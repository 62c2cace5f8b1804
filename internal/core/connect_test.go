package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"asyncnet/internal/capability"
	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/metrics"
	"asyncnet/internal/transport"
	"asyncnet/util"
)

func newDialer(t *testing.T, m *metrics.Collector) transport.Dialer {
	t.Helper()
	d, err := transport.New(transport.Options{Timeout: 2 * time.Second, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// TestConnectMode_Receive verifies end-to-end connect mode with Relay.
func TestConnectMode_Receive(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept one conn, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	output := &bytes.Buffer{}
	stdin, stdinW := io.Pipe() // a terminal that never sends
	defer stdinW.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	m := metrics.New()
	mode := &ConnectMode{
		Dialer:     newDialer(t, m),
		Capability: &capability.Relay{},
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		Logger:     util.NewLogger(0),
		Metrics:    m,
		Stdin:      stdin,
		Stdout:     output,
	}

	if err := mode.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := output.String(); got != "hello from server\n" {
		t.Errorf("output = %q, want %q", got, "hello from server\n")
	}
	if m.Count(ncerr.OutcomeConnected) != 1 {
		t.Errorf("connected count = %d, want 1", m.Count(ncerr.OutcomeConnected))
	}
	if _, ok := mode.Dialer.(*transport.ReactorDialer); ok && m.ActiveChannels() != 0 {
		t.Errorf("active channels = %d after Run", m.ActiveChannels())
	}
}

// TestConnectMode_SendData verifies data flows from client to server.
func TestConnectMode_SendData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf bytes.Buffer
		io.Copy(&buf, conn) //nolint:errcheck
		received <- buf.String()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mode := &ConnectMode{
		Dialer:     newDialer(t, nil),
		Capability: &capability.Relay{},
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		Logger:     util.NewLogger(0),
		Stdin:      bytes.NewBufferString("payload from client"),
		Stdout:     io.Discard,
	}

	if err := mode.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case got := <-received:
		if got != "payload from client" {
			t.Errorf("server got %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for data")
	}
}

// TestConnectMode_Refused verifies a failed connect surfaces the
// categorised error.
func TestConnectMode_Refused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	mode := &ConnectMode{
		Dialer:     newDialer(t, nil),
		Capability: &capability.Relay{},
		Host:       "127.0.0.1",
		Port:       port,
		Logger:     util.NewLogger(0),
		Stdin:      bytes.NewReader(nil),
		Stdout:     io.Discard,
	}

	err = mode.Run(context.Background())
	var ce *ncerr.ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConnectError", err)
	}
	if ce.Port != port {
		t.Errorf("Port = %d, want %d", ce.Port, port)
	}
}
