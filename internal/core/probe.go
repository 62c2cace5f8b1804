package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"asyncnet/config"
	ncerr "asyncnet/internal/errors"
	"asyncnet/internal/metrics"
	"asyncnet/internal/sock"
	"asyncnet/util"
)

// Prober makes a single connection attempt.  *sock.Connector satisfies
// it.
type Prober interface {
	Dial(host string, port int, timeout time.Duration) (*sock.Channel, error)
}

// ProbeResult records the outcome of one connection attempt.
type ProbeResult struct {
	Port    int
	Open    bool
	Outcome ncerr.Outcome
	Elapsed time.Duration
	Err     error
}

// ProbeMode attempts a connection to each port of a host and reports
// which accepted.  Every channel is closed straight away.
type ProbeMode struct {
	Prober      Prober
	Host        string
	Ports       []int
	Timeout     time.Duration
	Concurrency int
	Format      string // config.OutputText or config.OutputJSON
	Logger      *util.Logger
	Metrics     *metrics.Collector // optional

	// Output defaults to os.Stdout when nil.
	Output io.Writer
}

func (m *ProbeMode) output() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// Run probes every configured port and writes the results.
func (m *ProbeMode) Run(ctx context.Context) error {
	if len(m.Ports) == 0 {
		return fmt.Errorf("no ports specified for probing")
	}

	m.Logger.Verbose("probing %s - %d port(s)", m.Host, len(m.Ports))

	results, err := ProbePorts(ctx, m.Prober, m.Host, m.Ports, m.Timeout, m.Concurrency)
	if err != nil {
		return err
	}
	if m.Metrics != nil {
		m.Logger.Debug("metrics: %s", m.Metrics.JSON())
	}

	if m.Format == config.OutputJSON {
		return writeProbeJSON(m.output(), m.Host, results)
	}
	return m.writeText(results)
}

// ProbePorts attempts every port with at most limit attempts in flight
// and returns results in the order of ports.  It stops starting new
// attempts once ctx is done.
func ProbePorts(ctx context.Context, p Prober, host string, ports []int, timeout time.Duration, limit int) ([]ProbeResult, error) {
	if limit < 1 {
		limit = config.DefaultMaxConcurrentProbes
	}
	results := make([]ProbeResult, len(ports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, port := range ports {
		if gctx.Err() != nil {
			break
		}
		i, port := i, port
		g.Go(func() error {
			start := time.Now()
			ch, err := p.Dial(host, port, timeout)
			r := ProbeResult{Port: port, Elapsed: time.Since(start)}
			if err != nil {
				r.Outcome, _ = ncerr.OutcomeOf(err)
				r.Err = err
			} else {
				r.Open = true
				r.Outcome = ncerr.OutcomeConnected
				ch.Close() //nolint:errcheck
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", host, err)
	}
	return results, nil
}

// ── output ───────────────────────────────────────────────────────────

func (m *ProbeMode) writeText(results []ProbeResult) error {
	w := m.output()
	open := 0
	for _, r := range results {
		if r.Open {
			open++
			if _, err := fmt.Fprintf(w, "%s %d/tcp open\n", m.Host, r.Port); err != nil {
				return err
			}
		} else {
			m.Logger.Verbose("%s %d/tcp closed - %s: %v", m.Host, r.Port, r.Outcome, unwrapCause(r.Err))
		}
	}
	if open == 0 {
		m.Logger.Info("no open ports found on %s", m.Host)
	}
	return nil
}

type probeJSON struct {
	Host    string            `json:"host"`
	Results []probeResultJSON `json:"results"`
}

type probeResultJSON struct {
	Port      int           `json:"port"`
	Open      bool          `json:"open"`
	Outcome   ncerr.Outcome `json:"outcome"`
	ElapsedMs float64       `json:"elapsed_ms"`
	Error     string        `json:"error,omitempty"`
}

func writeProbeJSON(w io.Writer, host string, results []ProbeResult) error {
	doc := probeJSON{Host: host, Results: make([]probeResultJSON, len(results))}
	for i, r := range results {
		doc.Results[i] = probeResultJSON{
			Port:      r.Port,
			Open:      r.Open,
			Outcome:   r.Outcome,
			ElapsedMs: float64(r.Elapsed.Microseconds()) / 1000,
		}
		if r.Err != nil {
			doc.Results[i].Error = unwrapCause(r.Err).Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// unwrapCause strips the ConnectError wrapper, whose target and
// category are already part of the line being printed.
func unwrapCause(err error) error {
	var ce *ncerr.ConnectError
	if ncerr.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	return err
}
