// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"asyncnet/config"
	"asyncnet/internal/core"
	"asyncnet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X asyncnet/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdoutIsTerminal decides what --output=auto means.  Tests replace it.
var stdoutIsTerminal = func() bool { //nolint:gochecknoglobals
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Execute parses args and runs the appropriate asyncnet mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.New()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("asyncnet", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── connection ───────────────────────────────────────────────
	timeout := timeoutValue(cfg.Timeout)
	fs.VarP(&timeout, "timeout", "w", "Connect timeout (seconds, or a duration such as 1500ms)")
	fs.BoolVarP(&cfg.Probe, "probe", "z", cfg.Probe, "Probe mode: report which ports accept, send no data")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Maximum connects in flight while probing")

	// ── resolution ───────────────────────────────────────────────
	fs.DurationVar(&cfg.DNSCacheTTL, "dns-cache-ttl", cfg.DNSCacheTTL, "Cache resolved names for this long (0 disables)")
	fs.IntVar(&cfg.DNSCacheSize, "dns-cache-size", cfg.DNSCacheSize, "Maximum number of cached names")

	// ── output ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Probe report format: auto, text or json")
	verbose := cfg.Verbose
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration, print it and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "asyncnet %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeout)
	if fs.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cfg.Probe && !fs.Changed("timeout") && os.Getenv("ASYNCNET_TIMEOUT_MS") == "" {
		cfg.Timeout = config.DefaultProbeTimeout
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Output == config.OutputAuto {
		cfg.Output = config.OutputJSON
		if stdoutIsTerminal() {
			cfg.Output = config.OutputText
		}
	}

	if dryRun {
		printConfig(stdout, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if pm, ok := mode.(*core.ProbeMode); ok {
		pm.Output = stdout
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional reads "host port [ports...]".  With ASYNCNET_HOST set,
// the host may be omitted.
func parsePositional(cfg *config.Config, remaining []string) error {
	switch {
	case len(remaining) == 0 && cfg.Host == "":
		return fmt.Errorf("hostname required (use --help for usage)")
	case len(remaining) == 0:
		return fmt.Errorf("port required")
	case len(remaining) == 1 && cfg.Host == "":
		return fmt.Errorf("port required")
	case len(remaining) >= 2 || cfg.Host == "":
		cfg.Host = remaining[0]
		remaining = remaining[1:]
	}

	for _, arg := range remaining {
		pr, err := config.ParsePortSpec(arg)
		if err != nil {
			return fmt.Errorf("port %q: %w", arg, err)
		}
		cfg.Ports = append(cfg.Ports, pr)
	}
	if len(cfg.Ports) > 0 {
		cfg.Port = cfg.Ports[0].Start
	}
	return nil
}

// timeoutValue accepts whole seconds, as netcat's -w does, or any
// time.ParseDuration string.
type timeoutValue time.Duration

func (t *timeoutValue) String() string { return time.Duration(*t).String() }

func (t *timeoutValue) Set(s string) error {
	if n, err := strconv.Atoi(s); err == nil {
		*t = timeoutValue(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid timeout %q", s)
	}
	*t = timeoutValue(d)
	return nil
}

func (t *timeoutValue) Type() string { return "duration" }

func printConfig(w io.Writer, cfg *config.Config) {
	mode := "connect"
	if cfg.Probe {
		mode = "probe"
	}
	fmt.Fprintf(w, "mode:    %s\n", mode)
	fmt.Fprintf(w, "target:  %s\n", cfg.Host)
	fmt.Fprintf(w, "ports:   %v\n", cfg.AllPorts())
	fmt.Fprintf(w, "timeout: %s\n", cfg.Timeout)
	if cfg.DNSCacheTTL > 0 {
		fmt.Fprintf(w, "dns:     cached %s, %d entries\n", cfg.DNSCacheTTL, cfg.DNSCacheSize)
	}
	fmt.Fprintf(w, "output:  %s\n", cfg.Output)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `asyncnet – Asynchronous TCP connector v%s

Opens an outbound TCP connection with a bounded timeout and relays
stdin/stdout over it, or probes which ports accept connections.

Usage:
  asyncnet [options] <host> <port>            Connect and relay
  asyncnet -z [options] <host> <ports...>     Probe

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  asyncnet example.com 80                     TCP connect
  asyncnet -w 1500ms 10.0.0.5 22              Connect with a short timeout
  asyncnet -vz host.example.com 20-25 80 443  Probe ports
  asyncnet -z -o json db.internal 5432        Probe, JSON report
  echo "hello" | asyncnet host 9000           Pipe data
`)
}
