// Package metrics provides lightweight, lock-free counters for connect
// attempts and channel traffic.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	ncerr "asyncnet/internal/errors"
)

// Collector tracks connector and channel statistics.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	attempts       atomic.Int64
	outcomes       [7]atomic.Int64 // indexed by ncerr.Outcome
	channelsOpen   atomic.Int64
	channelsClosed atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connect metrics ──────────────────────────────────────────────────

// ConnectAttempt records the start of a connect attempt.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.attempts.Add(1)
}

// ConnectDone records how an attempt ended.  Failures also update the
// last-error fields with msg.
func (c *Collector) ConnectDone(o ncerr.Outcome, msg string) {
	if c == nil {
		return
	}
	if int(o) >= 0 && int(o) < len(c.outcomes) {
		c.outcomes[o].Add(1)
	}
	if o == ncerr.OutcomeConnected {
		c.channelsOpen.Add(1)
		return
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// Attempts returns the total number of connect attempts.
func (c *Collector) Attempts() int64 {
	if c == nil {
		return 0
	}
	return c.attempts.Load()
}

// Count returns how many attempts ended with outcome o.
func (c *Collector) Count(o ncerr.Outcome) int64 {
	if c == nil || int(o) < 0 || int(o) >= len(c.outcomes) {
		return 0
	}
	return c.outcomes[o].Load()
}

// Failures returns the number of attempts that did not connect.
func (c *Collector) Failures() int64 {
	if c == nil {
		return 0
	}
	var n int64
	for i := range c.outcomes {
		if ncerr.Outcome(i) != ncerr.OutcomeConnected {
			n += c.outcomes[i].Load()
		}
	}
	return n
}

// ── Channel metrics ──────────────────────────────────────────────────

// ChannelClosed records that a connected channel was closed.
func (c *Collector) ChannelClosed() {
	if c == nil {
		return
	}
	c.channelsClosed.Add(1)
}

// ActiveChannels returns connected channels not yet closed.
func (c *Collector) ActiveChannels() int64 {
	if c == nil {
		return 0
	}
	return c.channelsOpen.Load() - c.channelsClosed.Load()
}

// BytesReceived records n bytes read from a channel.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to a channel.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string           `json:"uptime"`
	Attempts         int64            `json:"attempts"`
	Outcomes         map[string]int64 `json:"outcomes,omitempty"`
	ActiveChannels   int64            `json:"active_channels"`
	BytesIn          int64            `json:"bytes_in"`
	BytesOut         int64            `json:"bytes_out"`
	LastError        string           `json:"last_error,omitempty"`
	LastErrorMessage string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.  Outcomes with a zero
// count are omitted.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		Attempts:       c.attempts.Load(),
		ActiveChannels: c.ActiveChannels(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
	}
	for i := range c.outcomes {
		if n := c.outcomes[i].Load(); n > 0 {
			if s.Outcomes == nil {
				s.Outcomes = make(map[string]int64)
			}
			s.Outcomes[ncerr.Outcome(i).String()] = n
		}
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
