package config

import (
	"errors"
	"strings"
	"testing"

	rlerr "opusrelay/internal/errors"
)

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages naming the offending flag.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
		wantSub   string // substring expected in error
	}{
		{
			name:      "missing host has usage hint",
			cfg:       relayCfg(func(c *Config) { c.Host = "" }),
			wantField: "host",
			wantSub:   "hint: usage:",
		},
		{
			name:      "produce without -p has hint",
			cfg:       relayCfg(func(c *Config) { c.Mode = ModeProduce }),
			wantField: "listen-port",
			wantSub:   "hint:",
		},
		{
			name:      "sample rate lists valid rates",
			cfg:       relayCfg(func(c *Config) { c.SampleRate = 44100 }),
			wantField: "rate",
			wantSub:   "--rate=44100",
		},
		{
			name:      "exec conflict",
			cfg:       relayCfg(func(c *Config) { c.Mode, c.Execute, c.Command = ModePlay, "a", "b" }),
			wantField: "exec",
			wantSub:   "-e and -c are mutually exclusive",
		},
		{
			name:      "negative duration",
			cfg:       relayCfg(func(c *Config) { c.AcceptTimeout = -1 }),
			wantField: "accept-timeout",
			wantSub:   "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *rlerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

// TestParseTunnelSpec_EdgeCases covers additional gateway specs.
func TestParseTunnelSpec_EdgeCases(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"user@host.with.dots:22", false},
		{"user@host-with-dashes", false},
		{"host:0", true},     // port 0 out of range
		{"host:65536", true}, // port too high
		{"user@", false},     // regex treats "user@" as hostname
		{"", true},           // empty string
		{":22", true},        // no host before colon
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, _, _, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTunnelSpec(%q) err = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
