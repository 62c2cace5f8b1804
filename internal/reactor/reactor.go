// Package reactor dispatches read-readiness notifications for
// registered file descriptors.
//
// A Manager owns one epoll instance and one dispatch goroutine (Run).
// Channels created by the connector register their descriptor with the
// manager when a caller asks to be told about incoming data; the
// connect operation itself never touches the manager.
//
// Registration is edge-triggered: a callback fires when new data (or a
// hang-up) arrives, not while unread data remains.  Callers must drain
// the descriptor until it would block before waiting for the next
// notification.
//
// Always call StopWatchingFileDescriptor before closing a descriptor so
// a recycled descriptor number never receives a stale callback.
package reactor

import "errors"

// ReadCallback is invoked on the dispatch goroutine when fd becomes
// readable or its peer hangs up.  It must not block.
type ReadCallback func(fd int)

// Standard errors.
var (
	ErrFDOutOfRange        = errors.New("reactor: fd out of range")
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")
	ErrFDNotRegistered     = errors.New("reactor: fd not registered")
	ErrClosed              = errors.New("reactor: manager closed")
	ErrRunning             = errors.New("reactor: already running")
	ErrUnsupported         = errors.New("reactor: unsupported platform")
)
