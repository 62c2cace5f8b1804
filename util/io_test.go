package util

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	ncerr "asyncnet/internal/errors"
)

// TestBidirectionalCopy verifies input reaches the peer and the echo
// comes back to the writer.
func TestBidirectionalCopy(t *testing.T) {
	// Set up a TCP server that echoes data.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) // echo
	}()

	// Connect as client.
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	tc := conn.(*net.TCPConn)

	input := bytes.NewBufferString("hello world\n")
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// BidirectionalCopy: input → conn → echo → output
	// When input is exhausted the write side half-closes; the echo
	// server then sees EOF and closes its side, ending the copy.
	err = BidirectionalCopy(ctx, tc, input, output)
	if err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}

	if got := output.String(); got != "hello world\n" {
		t.Errorf("output = %q, want %q", got, "hello world\n")
	}
}

// TestBidirectionalCopy_RemoteFinishesFirst verifies the relay returns
// when the remote closes even though the local reader never does.
func TestBidirectionalCopy_RemoteFinishesFirst(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("bye\n")) //nolint:errcheck
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	stdin, stdinW := io.Pipe()
	defer stdinW.Close()
	output := &bytes.Buffer{}

	done := make(chan error, 1)
	go func() {
		done <- BidirectionalCopy(context.Background(), conn.(*net.TCPConn), stdin, output)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BidirectionalCopy: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not return after the remote closed")
	}
	if got := output.String(); got != "bye\n" {
		t.Errorf("output = %q, want %q", got, "bye\n")
	}
}

// TestBidirectionalCopy_Cancel verifies cancellation ends an idle relay.
func TestBidirectionalCopy_Cancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	stdin, stdinW := io.Pipe()
	defer stdinW.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := BidirectionalCopy(ctx, conn.(*net.TCPConn), stdin, io.Discard); err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("relay outlived its context")
	}
}

func TestIsHarmless(t *testing.T) {
	if !isHarmless(nil) {
		t.Error("nil should be harmless")
	}
	if !isHarmless(io.EOF) {
		t.Error("io.EOF should be harmless")
	}
	if !isHarmless(net.ErrClosed) {
		t.Error("net.ErrClosed should be harmless")
	}
	if !isHarmless(ncerr.ErrClosed) {
		t.Error("closed channel should be harmless")
	}
	if !isHarmless(ncerr.Wrap("recv", "h:1", context.Canceled)) {
		t.Error("wrapped context.Canceled should be harmless")
	}
	if isHarmless(io.ErrUnexpectedEOF) {
		t.Error("ErrUnexpectedEOF should NOT be harmless")
	}
}
