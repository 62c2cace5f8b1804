// Package transport provides abstractions for connection establishment.
// Transports handle the "how" of reaching a host (the reactor-driven
// connector, or the runtime's own dialer where no reactor exists)
// independent of what happens over the connection, which is the
// capability layer's job.
package transport

import (
	"context"
	"errors"
	"time"

	"asyncnet/internal/metrics"
	"asyncnet/internal/reactor"
	"asyncnet/internal/resolve"
	"asyncnet/util"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial connects to host:port.  Failures are *errors.ConnectError
	// values carrying the failure category.
	Dial(ctx context.Context, host string, port int) (util.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (the reactor and its goroutine).  Stateless dialers return nil.
	Close() error
}

// Options are shared by every Dialer implementation.
type Options struct {
	Timeout  time.Duration
	Resolver resolve.Resolver   // nil selects the system resolver
	Logger   *util.Logger       // nil selects a quiet logger
	Metrics  *metrics.Collector // optional
}

func (o Options) resolver() resolve.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return resolve.System()
}

func (o Options) logger() *util.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return util.NewLogger(0)
}

// New returns a ReactorDialer, or a TCPDialer on platforms without a
// reactor.
func New(opts Options) (Dialer, error) {
	d, err := NewReactorDialer(opts)
	if errors.Is(err, reactor.ErrUnsupported) {
		opts.logger().Debug("reactor unavailable, using the runtime dialer")
		return &TCPDialer{Options: opts}, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
