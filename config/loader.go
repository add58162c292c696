package config

// loader.go - configuration loading from the environment and .env.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. .env file  (this file; a missing file is not an error)
//   4. Defaults   (defaults.go)

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported variable carries the OPUSRELAY_ prefix, which the
// lookuper adds, so HOST below is read from OPUSRELAY_HOST.  Unset
// variables leave the existing field alone; non-string fields are
// pointers so an explicit 0 or false still overrides.  An empty string
// never overrides.

type envConfig struct {
	Mode           string         `env:"MODE"`
	Host           string         `env:"HOST"`
	Port           *int           `env:"PORT, noinit"`
	NoDNS          *bool          `env:"NO_DNS, noinit"`
	ConnectTimeout *time.Duration `env:"CONNECT_TIMEOUT, noinit"`
	ReadTimeout    *time.Duration `env:"READ_TIMEOUT, noinit"`

	RelayHost     string         `env:"RELAY_HOST"`
	RelayPort     *int           `env:"RELAY_PORT, noinit"`
	AcceptTimeout *time.Duration `env:"ACCEPT_TIMEOUT, noinit"`
	WriteTimeout  *time.Duration `env:"WRITE_TIMEOUT, noinit"`

	SampleRate      *int `env:"SAMPLE_RATE, noinit"`
	Channels        *int `env:"CHANNELS, noinit"`
	MaxFrameSamples *int `env:"FRAME_SAMPLES, noinit"`
	MaxFrameBytes   *int `env:"MAX_FRAME_BYTES, noinit"`

	Nice       *int  `env:"NICE, noinit"`
	NoPriority *bool `env:"NO_PRIORITY, noinit"`

	Execute string `env:"EXEC"`
	Command string `env:"COMMAND"`

	LocalPort *int  `env:"LOCAL_PORT, noinit"`
	Pace      *bool `env:"PACE, noinit"`

	TunnelSpec     string         `env:"TUNNEL"`
	SSHKeyPath     string         `env:"SSH_KEY"`
	SSHPassword    *bool          `env:"SSH_PASSWORD, noinit"`
	UseSSHAgent    *bool          `env:"SSH_AGENT, noinit"`
	StrictHostKey  *bool          `env:"STRICT_HOSTKEY, noinit"`
	KnownHostsPath string         `env:"KNOWN_HOSTS"`
	KeepAlive      *time.Duration `env:"KEEP_ALIVE, noinit"`

	Verbose       *int           `env:"VERBOSE, noinit"`
	Stats         *bool          `env:"STATS, noinit"`
	StatsInterval *time.Duration `env:"STATS_INTERVAL, noinit"`
}

// Load overlays the .env file at envFile and then the process
// environment onto cfg.  An empty envFile skips the file.  This should
// be called BEFORE CLI flag parsing so that flags take precedence.
func Load(ctx context.Context, cfg *Config, envFile string) error {
	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return err
	}
	return LoadWith(ctx, cfg, envconfig.MultiLookuper(
		envconfig.OsLookuper(),
		envconfig.MapLookuper(dotenv),
	))
}

// LoadWith overlays values found by l onto cfg.  Keys are looked up
// with EnvPrefix prepended.
func LoadWith(ctx context.Context, cfg *Config, l envconfig.Lookuper) error {
	var env envConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}

	if env.Mode != "" {
		m, err := ParseMode(env.Mode)
		if err != nil {
			return fmt.Errorf("config: %sMODE: %w", EnvPrefix, err)
		}
		cfg.Mode = m
	}

	overlay(&cfg.Host, env.Host)
	set(&cfg.Port, env.Port)
	set(&cfg.NoDNS, env.NoDNS)
	set(&cfg.ConnectTimeout, env.ConnectTimeout)
	set(&cfg.ReadTimeout, env.ReadTimeout)

	overlay(&cfg.RelayHost, env.RelayHost)
	set(&cfg.RelayPort, env.RelayPort)
	set(&cfg.AcceptTimeout, env.AcceptTimeout)
	set(&cfg.WriteTimeout, env.WriteTimeout)

	set(&cfg.SampleRate, env.SampleRate)
	set(&cfg.Channels, env.Channels)
	set(&cfg.MaxFrameSamples, env.MaxFrameSamples)
	set(&cfg.MaxFrameBytes, env.MaxFrameBytes)

	set(&cfg.Nice, env.Nice)
	set(&cfg.NoPriority, env.NoPriority)

	overlay(&cfg.Execute, env.Execute)
	overlay(&cfg.Command, env.Command)

	set(&cfg.LocalPort, env.LocalPort)
	set(&cfg.Pace, env.Pace)

	overlay(&cfg.TunnelSpec, env.TunnelSpec)
	overlay(&cfg.SSHKeyPath, env.SSHKeyPath)
	set(&cfg.SSHPassword, env.SSHPassword)
	set(&cfg.UseSSHAgent, env.UseSSHAgent)
	set(&cfg.StrictHostKey, env.StrictHostKey)
	overlay(&cfg.KnownHostsPath, env.KnownHostsPath)
	set(&cfg.KeepAlive, env.KeepAlive)

	set(&cfg.Verbose, env.Verbose)
	set(&cfg.Stats, env.Stats)
	set(&cfg.StatsInterval, env.StatsInterval)
	return nil
}

// ParseMode maps "relay", "play" or "produce" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relay":
		return ModeRelay, nil
	case "play":
		return ModePlay, nil
	case "produce":
		return ModeProduce, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want relay, play or produce)", s)
}

// ── helpers ──────────────────────────────────────────────────────────

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	m, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return m, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
