// Package capability defines what happens over an established
// connection.  Each Capability encapsulates a single behaviour and
// operates on a Session rather than a raw stream.
package capability

import (
	"context"

	"asyncnet/internal/session"
)

// Capability handles a single connection.  Handle blocks until the
// connection is done or the context is cancelled.
type Capability interface {
	Handle(ctx context.Context, sess *session.Session) error
}
