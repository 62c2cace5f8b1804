// Package session represents a single connection lifecycle, binding a
// connection with I/O endpoints and shared context.
//
// Capabilities operate on sessions rather than raw streams, so they do
// not care whether they read from os.Stdin or a test buffer.
package session

import (
	"io"

	"asyncnet/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	Conn   util.Conn
	Target string // "host:port" as requested
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger
}

// New creates a Session bound to the given connection and I/O pair.
func New(conn util.Conn, target string, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:   conn,
		Target: target,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
}
