package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the ASYNCNET_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ASYNCNET_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("ASYNCNET_TIMEOUT_MS"); ok && v >= 0 {
		cfg.Timeout = millisDuration(v)
	}
	if envBool("ASYNCNET_PROBE") {
		cfg.Probe = true
	}
	if v, ok := envInt("ASYNCNET_CONCURRENCY"); ok && v > 0 {
		cfg.Concurrency = v
	}
	if v, ok := envInt("ASYNCNET_DNS_CACHE_TTL_MS"); ok && v >= 0 {
		cfg.DNSCacheTTL = millisDuration(v)
	}

	// Output
	if v, ok := envInt("ASYNCNET_VERBOSE"); ok && v > 0 {
		cfg.Verbose = v
	}
	if v := os.Getenv("ASYNCNET_OUTPUT"); v != "" {
		cfg.Output = strings.ToLower(v)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func millisDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
