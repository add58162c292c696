package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"testing"
)

func TestFramingError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  FramingError
		want string
	}{
		{
			name: "short header",
			err:  FramingError{Op: "header", Length: -1, Err: io.ErrUnexpectedEOF},
			want: "framing header: unexpected EOF",
		},
		{
			name: "short payload",
			err:  FramingError{Op: "payload", Length: 4, Err: io.ErrUnexpectedEOF},
			want: "framing payload (length 4): unexpected EOF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnectionError_Unwrap(t *testing.T) {
	err := Connection("connect", "10.0.0.1:4000", io.EOF)
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
	if got, want := err.Error(), "connect 10.0.0.1:4000: EOF"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGatewayError_Format(t *testing.T) {
	err := WrapGateway("handshake", "bastion.example.com", 22, fmt.Errorf("connection refused"))
	want := "ssh handshake bastion.example.com:22: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !Is(err, err.Err) {
		t.Error("should unwrap to inner error")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "relay-port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --relay-port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "port",
				Message: "required with --produce",
			},
			want: "config: --port: required with --produce",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"framing", &FramingError{Op: "header", Length: -1, Err: io.EOF}, "framing"},
		{"wrapped decode", fmt.Errorf("frame 3: %w", &DecodeError{Size: 4, Err: io.EOF}), "decode"},
		{"connection", Connection("bind", "127.0.0.1:1", io.EOF), "connection"},
		{"relay", &RelayError{Bytes: 480, Err: io.ErrClosedPipe}, "relay"},
		{"scheduling", &SchedulingWarning{Op: "setpriority", Err: os.ErrPermission}, "scheduling"},
		{"gateway", WrapGateway("auth", "gw", 22, io.EOF), "gateway"},
		{"already running", fmt.Errorf("start: %w", ErrAlreadyRunning), "already-running"},
		{"plain", fmt.Errorf("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	opErr := &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}
	if !IsTimeout(opErr) {
		t.Error("deadline exceeded should be a timeout")
	}
	if IsTimeout(io.EOF) {
		t.Error("EOF is not a timeout")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{ErrAlreadyRunning, ErrNotRunning, ErrNotConnected}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
