package core

import (
	"fmt"
	"time"

	"opusrelay/config"
	"opusrelay/internal/capability"
	"opusrelay/internal/codec"
	"opusrelay/internal/metrics"
	"opusrelay/internal/producer"
	"opusrelay/internal/retry"
	"opusrelay/internal/session"
	"opusrelay/internal/transport"
	"opusrelay/tunnel"
	"opusrelay/util"
)

// Build constructs the appropriate Mode from the given configuration.
// The configuration is expected to have passed Validate.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	switch cfg.Mode {
	case config.ModeRelay:
		return buildRelay(cfg, logger, m)
	case config.ModePlay:
		return buildPlay(cfg, logger)
	case config.ModeProduce:
		return buildProduce(cfg, logger, m)
	}
	return nil, fmt.Errorf("unknown mode %v", cfg.Mode)
}

// ── mode builders ────────────────────────────────────────────────────

func buildRelay(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if _, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS); err != nil {
		return nil, err
	}

	if !util.IsLoopback(cfg.RelayHost) {
		logger.Warn("relay host %s is not loopback; decoded audio will be reachable from the network", cfg.RelayHost)
	}

	dialer := buildDialer(cfg, logger, m)
	return &RelayMode{
		Manager:       session.NewManager(SessionConfig(cfg, dialer), logger, m),
		Dialer:        dialer,
		Host:          cfg.Host,
		Port:          cfg.Port,
		Logger:        logger,
		Metrics:       m,
		StatsInterval: cfg.StatsInterval,
		Stats:         cfg.Stats,
	}, nil
}

func buildPlay(cfg *config.Config, logger *util.Logger) (Mode, error) {
	return &PlayMode{
		Address:    cfg.RelayAddr(),
		Backoff:    retry.RendezvousBackoff(),
		Capability: buildCapability(cfg, logger),
		Logger:     logger,
	}, nil
}

func buildProduce(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	enc, err := codec.NewEncoder(cfg.SampleRate, cfg.Channels, cfg.MaxFrameSamples)
	if err != nil {
		return nil, err
	}

	var pace time.Duration
	if cfg.Pace {
		pace = time.Duration(cfg.MaxFrameSamples) * time.Second / time.Duration(cfg.SampleRate)
	}

	return &ProduceMode{
		Address: fmt.Sprintf(":%d", cfg.LocalPort),
		Producer: &producer.Producer{
			Encoder: enc,
			Pace:    pace,
			Logger:  logger,
			Metrics: m,
		},
		Logger: logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// SessionConfig maps the process configuration onto a session.Config
// that opens its upstream with dialer.
func SessionConfig(cfg *config.Config, dialer transport.Dialer) session.Config {
	sc := session.DefaultConfig()
	sc.RelayAddr = cfg.RelayAddr()
	sc.SampleRate = cfg.SampleRate
	sc.Channels = cfg.Channels
	sc.MaxFrameSamples = cfg.MaxFrameSamples
	sc.MaxFrameBytes = cfg.MaxFrameBytes
	sc.AcceptTimeout = cfg.AcceptTimeout
	sc.Downstream = transport.Timeouts{Write: cfg.WriteTimeout}
	sc.RaisePriority = !cfg.NoPriority
	sc.Nice = cfg.Nice
	sc.Dialer = dialer
	return sc
}

// buildCapability selects what the consumer does with the stream.
func buildCapability(cfg *config.Config, logger *util.Logger) capability.Capability {
	if cfg.Execute != "" || cfg.Command != "" {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
			Logger:  logger,
		}
	}
	return &capability.Output{PreRoll: capability.DefaultPreRoll, Logger: logger}
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger, m *metrics.Collector) transport.Dialer {
	timeouts := transport.Timeouts{Read: cfg.ReadTimeout}

	if cfg.TunnelEnabled {
		d := transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnectTimeout,
			KeepAlive:     cfg.KeepAlive,
		}, logger, m)
		d.Timeouts = timeouts
		return d
	}

	return &transport.TCPDialer{
		ConnectTimeout: cfg.ConnectTimeout,
		Timeouts:       timeouts,
	}
}
