package capability

import (
	"context"
	"fmt"

	"asyncnet/internal/session"
	"asyncnet/util"
)

// Relay copies data bidirectionally between the connection and the
// session's stdin/stdout, the default interactive / pipe behaviour.
type Relay struct{}

// Handle shuttles bytes until the remote finishes, a copy fails or the
// context is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	sess.Logger.Debug("relaying %s", sess.Target)
	if err := util.BidirectionalCopy(ctx, sess.Conn, sess.Stdin, sess.Stdout); err != nil {
		return fmt.Errorf("relay %s: %w", sess.Target, err)
	}
	return nil
}
