// Package sock establishes outbound TCP connections on raw,
// non-blocking descriptors and wraps each descriptor in a Channel.
//
// A connect attempt always yields a Channel.  It is either connected
// and ready for asynchronous I/O, or already closed.  Callers check
// IsValid rather than branching on error types; Dial additionally
// reports why an attempt failed.
//
// Readiness notifications for established channels come from a
// Manager supplied at construction time.  The connector only stores
// the manager and hands it to every Channel it creates.
package sock

import "asyncnet/internal/reactor"

// Manager dispatches read readiness for descriptors.  *reactor.Manager
// implements it.
type Manager interface {
	WatchFdForNonBlockingReads(fd int, cb reactor.ReadCallback) error
	StopWatchingFileDescriptor(fd int) error
}
