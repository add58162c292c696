// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"opusrelay/config"
	"opusrelay/internal/core"
	rlerr "opusrelay/internal/errors"
	"opusrelay/internal/metrics"
	"opusrelay/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X opusrelay/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// options are flags that steer Execute rather than configure a mode.
type options struct {
	play, produce bool
	version, help bool
}

// Execute parses args and runs the appropriate opusrelay mode.
func Execute(ctx context.Context, args []string) error {
	// First pass: find --env-file and handle --help/--version before
	// anything is read from the environment.
	preflight := config.Default()
	fs, opts := newFlagSet(preflight)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.help || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if opts.version {
		fmt.Printf("opusrelay %s\n", version)
		return nil
	}

	// ── defaults < .env < environment < flags ───────────────────
	cfg := config.Default()
	if err := config.Load(ctx, cfg, preflight.EnvFile); err != nil {
		return err
	}
	envVerbose := cfg.Verbose
	fs, opts = newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	// ── mode and positional arguments ────────────────────────────
	if err := applyMode(cfg, opts); err != nil {
		return err
	}
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── gateway spec ─────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	if cfg.DryRun {
		logger.Info("configuration valid: %s mode", cfg.Mode)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	mode, err := core.Build(cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// newFlagSet binds every flag to cfg, using the current field values
// as defaults so that flags only override what they name.
func newFlagSet(cfg *config.Config) (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet("opusrelay", flag.ContinueOnError)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVar(&opts.play, "play", false, "Consume a relay port and write PCM to stdout")
	fs.BoolVar(&opts.produce, "produce", false, "Serve stdin PCM as framed Opus (with -p)")

	// ── playback ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Execute, "exec", "e", cfg.Execute, "Feed PCM to this program's stdin (with --play)")
	fs.StringVarP(&cfg.Command, "command", "c", cfg.Command, "Feed PCM to this shell command's stdin (with --play)")

	// ── upstream ─────────────────────────────────────────────────
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Upstream connect timeout")
	fs.DurationVarP(&cfg.ReadTimeout, "read-timeout", "w", cfg.ReadTimeout, "Per-read upstream timeout (0 = none)")

	// ── relay ────────────────────────────────────────────────────
	fs.StringVar(&cfg.RelayHost, "relay-host", cfg.RelayHost, "Consumer rendezvous address")
	fs.IntVarP(&cfg.RelayPort, "relay-port", "r", cfg.RelayPort, "Consumer rendezvous port")
	fs.DurationVar(&cfg.AcceptTimeout, "accept-timeout", cfg.AcceptTimeout, "Wait for the consumer at most this long (0 = forever)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Per-write consumer timeout (0 = none)")

	// ── codec ────────────────────────────────────────────────────
	fs.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "Output sample rate in Hz")
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "Output channel count")
	fs.IntVar(&cfg.MaxFrameSamples, "frame-samples", cfg.MaxFrameSamples, "Largest frame per channel")
	fs.IntVar(&cfg.MaxFrameBytes, "max-frame-bytes", cfg.MaxFrameBytes, "Reject wire frames longer than this (0 = no limit)")

	// ── scheduling ───────────────────────────────────────────────
	fs.IntVar(&cfg.Nice, "nice", cfg.Nice, "Niceness requested for the session thread")
	fs.BoolVar(&cfg.NoPriority, "no-priority", cfg.NoPriority, "Do not raise the session thread priority")

	// ── producer ─────────────────────────────────────────────────
	fs.IntVarP(&cfg.LocalPort, "listen-port", "p", cfg.LocalPort, "Listen port for --produce")
	fs.BoolVar(&cfg.Pace, "pace", cfg.Pace, "Send frames at playback speed")

	// ── SSH gateway ──────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the producer via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.DurationVar(&cfg.KeepAlive, "keep-alive", cfg.KeepAlive, "SSH keepalive interval (0 = off)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print JSON metrics when the session ends")
	fs.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "Log metrics at this interval with -vvv")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Read OPUSRELAY_* settings from this file if it exists")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Validate configuration and exit")

	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs, opts
}

func applyMode(cfg *config.Config, opts *options) error {
	switch {
	case opts.play && opts.produce:
		return &rlerr.ConfigError{Field: "play", Message: "--play and --produce are mutually exclusive"}
	case opts.play:
		cfg.Mode = config.ModePlay
	case opts.produce:
		cfg.Mode = config.ModeProduce
	}
	return nil
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Mode != config.ModeRelay {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected arguments for %s mode: %v", cfg.Mode, remaining)
		}
		return nil
	}

	switch len(remaining) {
	case 0:
		// host and port may come from the environment
		return nil
	case 2:
	default:
		return fmt.Errorf("expected <host> <port>, got %d arguments (use --help for usage)", len(remaining))
	}

	cfg.Host = remaining[0]
	port, err := strconv.Atoi(remaining[1])
	if err != nil {
		return &rlerr.ConfigError{Field: "port", Value: remaining[1], Message: "not a number"}
	}
	cfg.Port = port
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `opusrelay – Opus stream decode-and-relay v%s

Decodes a length-prefixed Opus stream from a producer and relays raw
16-bit PCM to one local consumer.

Usage:
  opusrelay [options] <host> <port>           Relay
  opusrelay --play [options]                  Consume the relay port
  opusrelay --produce -p <port> [options]     Serve stdin PCM as Opus

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  opusrelay producer.lan 9000                       Relay to 127.0.0.1:12345
  opusrelay --play | aplay -f S16_LE -r 48000 -c 2  Play the relayed stream
  opusrelay --play -c 'aplay -f S16_LE -r 48000 -c 2'  Same, spawned by opusrelay
  opusrelay --produce -p 9000 --pace < tone.s16le   Serve a PCM file
  opusrelay -T admin@bastion producer 9000          Reach the producer via SSH

Settings may also come from OPUSRELAY_* variables or a .env file.
`)
}
