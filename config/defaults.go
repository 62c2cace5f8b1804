package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so CLI flags and environment loading
// agree on them.

const (
	// DefaultConnTimeout bounds a single connect attempt.
	DefaultConnTimeout = 30 * time.Second

	// DefaultProbeTimeout is the per-port timeout in probe mode.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultMaxConcurrentProbes limits how many connects probe mode
	// keeps in flight.
	DefaultMaxConcurrentProbes = 100

	// DefaultDNSCacheSize caps the number of cached host answers.
	DefaultDNSCacheSize = 128

	// DefaultDNSNegativeTTL is how long a failed lookup is remembered.
	DefaultDNSNegativeTTL = time.Second

	// DefaultDNSLookupTimeout bounds a single lookup made through the
	// cache.
	DefaultDNSLookupTimeout = 5 * time.Second

	// DefaultOutput selects text on a terminal and JSON otherwise.
	DefaultOutput = OutputAuto
)

// Output formats accepted by --output.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)
