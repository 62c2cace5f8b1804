// Package errors provides domain-specific error types for asyncnet.
//
// The connector itself never returns an error to callers of
// ConnectToRemoteServer; these types exist so that the outcome of an
// attempt can be logged, counted, and surfaced by the layers above it.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrClosed       = errors.New("channel is closed")
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("operation timed out")
	ErrWouldBlock   = errors.New("operation would block")
)

// ── Connect outcomes ─────────────────────────────────────────────────

// Outcome classifies how a single connect attempt ended.  Every value
// other than OutcomeConnected leaves the returned channel closed.
type Outcome int

const (
	OutcomeConnected Outcome = iota
	OutcomeSocket            // descriptor allocation failed
	OutcomeResolve           // name resolution failed
	OutcomeConnect           // connect() failed with a non in-progress errno
	OutcomePoll              // readiness wait timed out or poll failed
	OutcomePeer              // getpeername failed: the peer never accepted
	OutcomeSockErr           // SO_ERROR query failed or reported an error
)

// Outcomes lists every outcome in declaration order.
var Outcomes = []Outcome{
	OutcomeConnected, OutcomeSocket, OutcomeResolve, OutcomeConnect,
	OutcomePoll, OutcomePeer, OutcomeSockErr,
}

func (o Outcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeSocket:
		return "socket-creation-failed"
	case OutcomeResolve:
		return "resolution-failed"
	case OutcomeConnect:
		return "connect-failed"
	case OutcomePoll:
		return "timeout-or-poll-failed"
	case OutcomePeer:
		return "peer-unreachable"
	case OutcomeSockErr:
		return "socket-error-detected"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes appear by name in JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ── Structured error types ───────────────────────────────────────────

// ConnectError describes a failed connect attempt.
type ConnectError struct {
	Outcome Outcome
	Host    string
	Port    int
	Err     error // underlying errno or resolver error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s:%d: %s: %v", e.Host, e.Port, e.Outcome, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NetworkError represents a failure of an I/O operation on an
// established channel.
type NetworkError struct {
	Op   string // "send", "recv", "shutdown", "watch"
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Connect creates a ConnectError.
func Connect(outcome Outcome, host string, port int, err error) *ConnectError {
	return &ConnectError{Outcome: outcome, Host: host, Port: port, Err: err}
}

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// OutcomeOf returns the outcome recorded in err, OutcomeConnected for a
// nil error, and false when err carries no ConnectError.
func OutcomeOf(err error) (Outcome, bool) {
	if err == nil {
		return OutcomeConnected, true
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Outcome, true
	}
	return 0, false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
