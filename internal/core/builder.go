package core

import (
	"fmt"

	"asyncnet/config"
	"asyncnet/internal/capability"
	"asyncnet/internal/metrics"
	"asyncnet/internal/resolve"
	"asyncnet/internal/sock"
	"asyncnet/internal/transport"
	"asyncnet/util"
)

// Build constructs the appropriate Mode from the given configuration.
// cfg.Output must already be resolved to text or json; auto is treated
// as text.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Probe {
		return buildProbe(cfg, logger), nil
	}
	return buildConnect(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := metrics.New()
	dialer, err := transport.New(transport.Options{
		Timeout:  cfg.Timeout,
		Resolver: buildResolver(cfg),
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	port := cfg.Port
	if port == 0 && len(cfg.Ports) > 0 {
		port = cfg.Ports[0].Start
	}

	return &ConnectMode{
		Dialer:     dialer,
		Capability: &capability.Relay{},
		Host:       cfg.Host,
		Port:       port,
		Logger:     logger,
		Metrics:    m,
	}, nil
}

func buildProbe(cfg *config.Config, logger *util.Logger) Mode {
	ports := cfg.AllPorts()
	if len(ports) == 0 && cfg.Port > 0 {
		ports = []int{cfg.Port}
	}

	m := metrics.New()
	format := config.OutputText
	if cfg.Output == config.OutputJSON {
		format = config.OutputJSON
	}

	return &ProbeMode{
		Prober: sock.NewConnector(nil,
			sock.WithResolver(buildResolver(cfg)),
			sock.WithLogger(logger.Named("probe")),
			sock.WithMetrics(m),
		),
		Host:        cfg.Host,
		Ports:       ports,
		Timeout:     cfg.Timeout,
		Concurrency: cfg.Concurrency,
		Format:      format,
		Logger:      logger,
		Metrics:     m,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildResolver wraps the system resolver in a cache when a TTL is set.
func buildResolver(cfg *config.Config) resolve.Resolver {
	if cfg.DNSCacheTTL <= 0 {
		return resolve.System()
	}
	return resolve.NewCached(resolve.System(), cfg.DNSCacheSize, cfg.DNSCacheTTL,
		config.DefaultDNSNegativeTTL, config.DefaultDNSLookupTimeout)
}
