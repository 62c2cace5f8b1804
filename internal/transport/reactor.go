package transport

import (
	"context"
	"sync"

	"asyncnet/internal/reactor"
	"asyncnet/internal/sock"
	"asyncnet/util"
)

// ReactorDialer connects with sock.Connector and hands back streams
// whose reads are driven by a reactor it owns.
type ReactorDialer struct {
	mgr       *reactor.Manager
	connector *sock.Connector
	opts      Options

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReactorDialer starts a reactor that runs until Close.
func NewReactorDialer(opts Options) (*ReactorDialer, error) {
	mgr, err := reactor.New()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &ReactorDialer{
		mgr: mgr,
		connector: sock.NewConnector(mgr,
			sock.WithResolver(opts.resolver()),
			sock.WithLogger(opts.logger().Named("sock")),
			sock.WithMetrics(opts.Metrics),
		),
		opts:   opts,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		if err := mgr.Run(ctx); err != nil {
			d.opts.logger().Error("reactor stopped: %v", err)
		}
	}()
	return d, nil
}

// Dial connects to host:port within the configured timeout.  ctx bounds
// the returned stream's reads, not the connect itself.
func (d *ReactorDialer) Dial(ctx context.Context, host string, port int) (util.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, err := d.connector.Dial(host, port, d.opts.Timeout)
	if err != nil {
		return nil, err
	}
	s, err := sock.NewStream(ctx, ch)
	if err != nil {
		ch.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// Connector returns the connector behind the dialer.
func (d *ReactorDialer) Connector() *sock.Connector { return d.connector }

// Close stops the reactor.  Streams still open stop receiving
// readiness callbacks.
func (d *ReactorDialer) Close() error {
	var err error
	d.once.Do(func() {
		d.cancel()
		<-d.done
		err = d.mgr.Close()
	})
	return err
}
