package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so CLI flags, the environment and
// the .env file start from the same baseline.

const (
	// DefaultRelayHost is the loopback address the consumer connects to.
	DefaultRelayHost = "127.0.0.1"

	// DefaultRelayPort is the consumer rendezvous port.
	DefaultRelayPort = 12345

	// DefaultSampleRate is the decoder output rate in Hz.
	DefaultSampleRate = 48000

	// DefaultChannels is the decoder output channel count.
	DefaultChannels = 2

	// DefaultMaxFrameSamples is the largest frame, per channel, the
	// decoder buffer holds: 2.5 ms at 48 kHz.
	DefaultMaxFrameSamples = 120

	// DefaultMaxFrameBytes rejects length prefixes larger than any
	// sane Opus packet.
	DefaultMaxFrameBytes = 64 * 1024

	// DefaultNice is the niceness requested for the session thread.
	DefaultNice = -16

	// DefaultConnTimeout bounds the upstream TCP/SSH connect.
	DefaultConnTimeout = 10 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAlive is the SSH keepalive interval.
	DefaultKeepAlive = 30 * time.Second

	// DefaultEnvFile is read when present; a missing file is not an error.
	DefaultEnvFile = ".env"

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "OPUSRELAY_"
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		Mode:            ModeRelay,
		ConnectTimeout:  DefaultConnTimeout,
		RelayHost:       DefaultRelayHost,
		RelayPort:       DefaultRelayPort,
		SampleRate:      DefaultSampleRate,
		Channels:        DefaultChannels,
		MaxFrameSamples: DefaultMaxFrameSamples,
		MaxFrameBytes:   DefaultMaxFrameBytes,
		Nice:            DefaultNice,
		KeepAlive:       DefaultKeepAlive,
		EnvFile:         DefaultEnvFile,
	}
}
