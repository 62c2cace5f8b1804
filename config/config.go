// Package config defines the runtime configuration for asyncnet and
// provides helpers for parsing port ranges.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ncerr "asyncnet/internal/errors"
)

// Config holds every tuneable for a single asyncnet run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host    string
	Port    int         // primary destination port
	Ports   []PortRange // all destination port specs (probing)
	Timeout time.Duration

	// ── Probe mode ───────────────────────────────────────────────────
	Probe       bool
	Concurrency int

	// ── Resolution ───────────────────────────────────────────────────
	DNSCacheTTL  time.Duration // 0 disables the cache
	DNSCacheSize int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Output  string // auto, text or json
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Timeout:      DefaultConnTimeout,
		Concurrency:  DefaultMaxConcurrentProbes,
		DNSCacheSize: DefaultDNSCacheSize,
		Output:       DefaultOutput,
	}
}

// ── Port helpers ─────────────────────────────────────────────────────

// PortRange is an inclusive start–end pair.
type PortRange struct {
	Start int
	End   int
}

// Expand returns every port in the range.
func (pr PortRange) Expand() []int {
	out := make([]int, 0, pr.End-pr.Start+1)
	for p := pr.Start; p <= pr.End; p++ {
		out = append(out, p)
	}
	return out
}

func (pr PortRange) String() string {
	if pr.Start == pr.End {
		return strconv.Itoa(pr.Start)
	}
	return fmt.Sprintf("%d-%d", pr.Start, pr.End)
}

// AllPorts flattens every PortRange into a single slice.
func (c *Config) AllPorts() []int {
	var out []int
	for _, pr := range c.Ports {
		out = append(out, pr.Expand()...)
	}
	return out
}

// ParsePortSpec accepts "80" or "80-90".
func ParsePortSpec(spec string) (PortRange, error) {
	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range start %q", parts[0])
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range end %q", parts[1])
		}
		if start < 1 || end > 65535 || start > end {
			return PortRange{}, fmt.Errorf("invalid port range %d-%d", start, end)
		}
		return PortRange{Start: start, End: end}, nil
	}

	port, err := strconv.Atoi(spec)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return PortRange{}, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return PortRange{Start: port, End: port}, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError values naming the offending flag.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "asyncnet [options] <host> <port>",
		}
	}
	if c.Port == 0 && len(c.Ports) == 0 {
		return &ncerr.ConfigError{
			Field:   "port",
			Message: "destination port is required",
			Hint:    "give a port such as 80 or a range such as 20-25",
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	for _, pr := range c.Ports {
		if pr.Start < 1 || pr.End > 65535 || pr.Start > pr.End {
			return &ncerr.ConfigError{Field: "port", Value: pr.String(), Message: "invalid port range"}
		}
	}
	if !c.Probe && len(c.AllPorts()) > 1 {
		return &ncerr.ConfigError{
			Field:   "probe",
			Message: "several ports given without probe mode",
			Hint:    "add -z to probe each port",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must not be negative",
			Hint:    "use 0 to check the socket once without waiting",
		}
	}
	if c.Probe && c.Concurrency < 1 {
		return &ncerr.ConfigError{Field: "concurrency", Value: c.Concurrency, Message: "must be at least 1"}
	}
	if c.DNSCacheTTL < 0 {
		return &ncerr.ConfigError{Field: "dns-cache-ttl", Value: c.DNSCacheTTL, Message: "must not be negative"}
	}
	if c.DNSCacheTTL > 0 && c.DNSCacheSize < 1 {
		return &ncerr.ConfigError{
			Field:   "dns-cache-size",
			Value:   c.DNSCacheSize,
			Message: "must be at least 1 when caching is enabled",
		}
	}
	switch c.Output {
	case OutputAuto, OutputText, OutputJSON:
	default:
		return &ncerr.ConfigError{
			Field:   "output",
			Value:   c.Output,
			Message: "unknown format",
			Hint:    "one of auto, text, json",
		}
	}
	return nil
}
