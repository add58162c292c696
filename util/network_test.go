package util

import (
	"errors"
	"testing"

	rlerr "opusrelay/internal/errors"
)

func TestResolveAddr(t *testing.T) {
	tests := []struct {
		host    string
		port    int
		noDNS   bool
		want    string
		wantErr bool
	}{
		{"127.0.0.1", 12345, true, "127.0.0.1:12345", false},
		{"::1", 443, true, "[::1]:443", false},
		{"producer.lan", 8000, false, "producer.lan:8000", false},
		{"producer.lan", 8000, true, "", true}, // hostname with noDNS
	}

	for _, tt := range tests {
		got, err := ResolveAddr(tt.host, tt.port, tt.noDNS)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveAddr(%q,%d,%v) err=%v wantErr=%v",
				tt.host, tt.port, tt.noDNS, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveAddr(%q,%d,%v) = %q, want %q",
				tt.host, tt.port, tt.noDNS, got, tt.want)
		}
	}
}

func TestResolveAddr_ConfigError(t *testing.T) {
	_, err := ResolveAddr("producer.lan", 9000, true)
	var ce *rlerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "no-dns" {
		t.Fatalf("err = %v, want no-dns ConfigError", err)
	}
}

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"1.2.3.4", 22, "1.2.3.4:22"},
		{"::1", 12345, "[::1]:12345"},
		{"producer.lan", 9000, "producer.lan:9000"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"localhost", true},
		{"LOCALHOST.", true},
		{"[::1]", true},
		{"127.1.2.3", true},
		{"0.0.0.0", false},
		{"192.168.1.20", false},
		{"producer.lan", false},
	}
	for _, tt := range tests {
		if got := IsLoopback(tt.host); got != tt.want {
			t.Errorf("IsLoopback(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}
