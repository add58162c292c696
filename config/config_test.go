package config

import (
	"testing"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "ops@gw.internal:2022"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "gw.internal" || cfg.TunnelPort != 2022 {
		t.Errorf("tunnel fields = %+v", cfg)
	}

	cfg.TunnelSpec = ""
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if cfg.TunnelEnabled {
		t.Error("empty spec should disable the gateway")
	}

	cfg.TunnelSpec = "host:0"
	if err := cfg.ApplyTunnelSpec(); err == nil {
		t.Error("expected error for port 0")
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if got := cfg.RelayAddr(); got != "127.0.0.1:12345" {
		t.Errorf("RelayAddr = %q", got)
	}
	if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.MaxFrameSamples != 120 {
		t.Errorf("codec defaults = %d Hz, %d ch, %d samples",
			cfg.SampleRate, cfg.Channels, cfg.MaxFrameSamples)
	}
	if cfg.Nice != -16 {
		t.Errorf("Nice = %d, want -16", cfg.Nice)
	}
	if cfg.Mode != ModeRelay {
		t.Errorf("Mode = %v", cfg.Mode)
	}
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		m    Mode
		want string
	}{
		{ModeRelay, "relay"},
		{ModePlay, "play"},
		{ModeProduce, "produce"},
		{Mode(9), "mode(9)"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.m), got, tt.want)
		}
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func relayCfg(mut func(*Config)) Config {
	cfg := Default()
	cfg.Host = "producer.example.com"
	cfg.Port = 9000
	if mut != nil {
		mut(cfg)
	}
	return *cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid relay", relayCfg(nil), false},
		{"relay no host", relayCfg(func(c *Config) { c.Host = "" }), true},
		{"relay no port", relayCfg(func(c *Config) { c.Port = 0 }), true},
		{"relay port too high", relayCfg(func(c *Config) { c.Port = 70000 }), true},
		{"bad relay port", relayCfg(func(c *Config) { c.RelayPort = 0 }), true},
		{"no relay host", relayCfg(func(c *Config) { c.RelayHost = "" }), true},
		{"bad rate", relayCfg(func(c *Config) { c.SampleRate = 44100 }), true},
		{"mono", relayCfg(func(c *Config) { c.Channels = 1 }), false},
		{"three channels", relayCfg(func(c *Config) { c.Channels = 3 }), true},
		{"zero capacity", relayCfg(func(c *Config) { c.MaxFrameSamples = 0 }), true},
		{"no frame limit", relayCfg(func(c *Config) { c.MaxFrameBytes = 0 }), false},
		{"negative frame limit", relayCfg(func(c *Config) { c.MaxFrameBytes = -1 }), true},
		{"nice too low", relayCfg(func(c *Config) { c.Nice = -21 }), true},
		{"negative timeout", relayCfg(func(c *Config) { c.ReadTimeout = -1 }), true},
		{"tunnel", relayCfg(func(c *Config) {
			c.TunnelEnabled, c.TunnelHost, c.UseSSHAgent = true, "gw", true
		}), false},
		{"agent without tunnel", relayCfg(func(c *Config) { c.UseSSHAgent = true }), true},
		{"tunnel no host", relayCfg(func(c *Config) { c.TunnelEnabled = true }), true},
		{"valid play", relayCfg(func(c *Config) { c.Mode, c.Host, c.Port = ModePlay, "", 0 }), false},
		{"play through tunnel", relayCfg(func(c *Config) {
			c.Mode, c.TunnelEnabled, c.TunnelHost = ModePlay, true, "gw"
		}), true},
		{"play with player", relayCfg(func(c *Config) { c.Mode, c.Command = ModePlay, "aplay" }), false},
		{"player outside play", relayCfg(func(c *Config) { c.Execute = "aplay" }), true},
		{"exec and command", relayCfg(func(c *Config) {
			c.Mode, c.Execute, c.Command = ModePlay, "aplay", "aplay -q"
		}), true},
		{"valid produce", relayCfg(func(c *Config) { c.Mode, c.LocalPort = ModeProduce, 9000 }), false},
		{"produce no port", relayCfg(func(c *Config) { c.Mode = ModeProduce }), true},
		{"produce bad port", relayCfg(func(c *Config) { c.Mode, c.LocalPort = ModeProduce, 65536 }), true},
		{"unknown mode", relayCfg(func(c *Config) { c.Mode = Mode(7) }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
