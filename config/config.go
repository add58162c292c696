// Package config defines the runtime configuration for opusrelay and
// provides helpers for parsing gateway specifications and addresses.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	rlerr "opusrelay/internal/errors"
)

// Mode selects what the process does.
type Mode int

const (
	// ModeRelay decodes an upstream Opus stream and relays PCM to one
	// local consumer.
	ModeRelay Mode = iota
	// ModePlay connects to a relay port and copies PCM to stdout.
	ModePlay
	// ModeProduce serves stdin PCM as framed Opus to one upstream client.
	ModeProduce
)

func (m Mode) String() string {
	switch m {
	case ModeRelay:
		return "relay"
	case ModePlay:
		return "play"
	case ModeProduce:
		return "produce"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Config holds every tuneable for a single opusrelay process.
type Config struct {
	Mode Mode

	// ── Upstream ─────────────────────────────────────────────────────
	Host           string
	Port           int
	NoDNS          bool
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // per read on the upstream; 0 blocks forever

	// ── Relay ────────────────────────────────────────────────────────
	RelayHost     string
	RelayPort     int
	AcceptTimeout time.Duration
	WriteTimeout  time.Duration // per write towards the consumer

	// ── Codec ────────────────────────────────────────────────────────
	SampleRate      int
	Channels        int
	MaxFrameSamples int
	MaxFrameBytes   int

	// ── Scheduling ───────────────────────────────────────────────────
	Nice       int
	NoPriority bool

	// ── Playback ─────────────────────────────────────────────────────
	Execute string // -e: player program fed PCM on stdin
	Command string // -c: player shell command fed PCM on stdin

	// ── Producer ─────────────────────────────────────────────────────
	LocalPort int  // -p: listen port in produce mode
	Pace      bool // emit frames at real-time rate

	// ── SSH gateway ──────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string
	KeepAlive      time.Duration

	// ── Output ───────────────────────────────────────────────────────
	Verbose       int
	Stats         bool
	StatsInterval time.Duration
	EnvFile       string
	DryRun        bool
}

// RelayAddr returns the consumer rendezvous address.
func (c *Config) RelayAddr() string {
	return net.JoinHostPort(c.RelayHost, strconv.Itoa(c.RelayPort))
}

// ── Gateway-spec parser ──────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.  An empty
// spec disables the gateway.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &rlerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@host or -T user@host:port",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRelay:
		if c.Host == "" {
			return &rlerr.ConfigError{
				Field:   "host",
				Message: "producer host is required",
				Hint:    "usage: opusrelay [flags] <host> <port>",
			}
		}
		if err := checkPort("port", c.Port); err != nil {
			return err
		}
		if err := checkPort("relay-port", c.RelayPort); err != nil {
			return err
		}
	case ModePlay:
		if err := checkPort("relay-port", c.RelayPort); err != nil {
			return err
		}
		if c.TunnelEnabled {
			return &rlerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "play mode reads a local relay port and cannot use a gateway",
			}
		}
	case ModeProduce:
		if c.LocalPort == 0 {
			return &rlerr.ConfigError{
				Field:   "listen-port",
				Message: "produce mode requires a listen port",
				Hint:    "opusrelay --produce -p 9000 < audio.s16le",
			}
		}
		if err := checkPort("listen-port", c.LocalPort); err != nil {
			return err
		}
		if c.TunnelEnabled {
			return &rlerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "produce mode listens locally and cannot use a gateway",
			}
		}
	default:
		return &rlerr.ConfigError{Field: "mode", Value: c.Mode, Message: "unknown mode"}
	}

	if c.Execute != "" || c.Command != "" {
		if c.Execute != "" && c.Command != "" {
			return &rlerr.ConfigError{Field: "exec", Message: "-e and -c are mutually exclusive"}
		}
		if c.Mode != ModePlay {
			return &rlerr.ConfigError{
				Field:   "exec",
				Message: "a player command only applies to play mode",
				Hint:    "add --play",
			}
		}
	}

	if c.RelayHost == "" {
		return &rlerr.ConfigError{Field: "relay-host", Message: "relay host is required"}
	}

	switch c.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return &rlerr.ConfigError{
			Field:   "rate",
			Value:   c.SampleRate,
			Message: "unsupported sample rate",
			Hint:    "Opus decodes at 8000, 12000, 16000, 24000 or 48000 Hz",
		}
	}
	if c.Channels != 1 && c.Channels != 2 {
		return &rlerr.ConfigError{Field: "channels", Value: c.Channels, Message: "must be 1 or 2"}
	}
	if c.MaxFrameSamples <= 0 {
		return &rlerr.ConfigError{Field: "frame-samples", Value: c.MaxFrameSamples, Message: "must be positive"}
	}
	if c.MaxFrameBytes < 0 {
		return &rlerr.ConfigError{
			Field:   "max-frame-bytes",
			Value:   c.MaxFrameBytes,
			Message: "must not be negative",
			Hint:    "use 0 to disable the limit",
		}
	}
	if c.Nice < -20 || c.Nice > 19 {
		return &rlerr.ConfigError{
			Field:   "nice",
			Value:   c.Nice,
			Message: "must be in -20..19",
		}
	}

	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"connect-timeout", c.ConnectTimeout},
		{"read-timeout", c.ReadTimeout},
		{"accept-timeout", c.AcceptTimeout},
		{"write-timeout", c.WriteTimeout},
		{"keep-alive", c.KeepAlive},
		{"stats-interval", c.StatsInterval},
	} {
		if d.v < 0 {
			return &rlerr.ConfigError{Field: d.field, Value: d.v, Message: "must not be negative"}
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &rlerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.UseSSHAgent && !c.TunnelEnabled {
		return &rlerr.ConfigError{
			Field:   "ssh-agent",
			Message: "only applies to a gateway connection",
			Hint:    "add -T user@host",
		}
	}
	return nil
}

func checkPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &rlerr.ConfigError{
			Field:   field,
			Value:   port,
			Message: "port must be in 1-65535",
		}
	}
	return nil
}
