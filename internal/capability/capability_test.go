package capability

import (
	"bytes"
	"context"
	"io"
	"net"
	"runtime"
	"testing"
	"time"

	"opusrelay/util"
)

// serveBytes accepts one connection, writes data and closes it.
func serveBytes(t *testing.T, data []byte) net.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(data) //nolint:errcheck
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestOutput_Copies verifies Output writes the whole stream.
func TestOutput_Copies(t *testing.T) {
	pcm := bytes.Repeat([]byte{1, 2, 3, 4}, 300)
	conn := serveBytes(t, pcm)

	var out bytes.Buffer
	o := &Output{W: &out, PreRoll: DefaultPreRoll, Logger: util.NewLogger(0)}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Handle(ctx, conn); err != nil {
		t.Fatalf("Output.Handle: %v", err)
	}
	if !bytes.Equal(out.Bytes(), pcm) {
		t.Errorf("copied %d bytes, want %d", out.Len(), len(pcm))
	}
}

// TestOutput_ShortStreamFlushed verifies a stream shorter than the
// pre-roll is still delivered.
func TestOutput_ShortStreamFlushed(t *testing.T) {
	conn := serveBytes(t, []byte("tiny"))
	var out bytes.Buffer
	o := &Output{W: &out, PreRoll: DefaultPreRoll}
	if err := o.Handle(context.Background(), conn); err != nil {
		t.Fatal(err)
	}
	if out.String() != "tiny" {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrerollWriter(t *testing.T) {
	tests := []struct {
		name       string
		threshold  int
		writes     []string
		wantBefore string // output before Flush
		wantAfter  string
	}{
		{"below threshold", 8, []string{"abc", "de"}, "", "abcde"},
		{"reaches threshold", 4, []string{"ab", "cd", "ef"}, "abcdef", "abcdef"},
		{"single large write", 4, []string{"abcdefgh"}, "abcdefgh", "abcdefgh"},
		{"no preroll", 0, []string{"a", "b"}, "ab", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			w := &prerollWriter{w: &out, threshold: tt.threshold}
			for _, s := range tt.writes {
				n, err := w.Write([]byte(s))
				if err != nil || n != len(s) {
					t.Fatalf("Write(%q) = %d, %v", s, n, err)
				}
			}
			if out.String() != tt.wantBefore {
				t.Errorf("before flush = %q, want %q", out.String(), tt.wantBefore)
			}
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
			if out.String() != tt.wantAfter {
				t.Errorf("after flush = %q, want %q", out.String(), tt.wantAfter)
			}
		})
	}
}

// TestExec_FeedsChild verifies the child process receives the stream
// on stdin.
func TestExec_FeedsChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	conn := serveBytes(t, []byte("pcm bytes"))

	var out bytes.Buffer
	e := &Exec{Command: "cat", Stdout: &out, Stderr: io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Handle(ctx, conn); err != nil {
		t.Fatalf("Exec.Handle: %v", err)
	}
	if out.String() != "pcm bytes" {
		t.Errorf("child output = %q", out.String())
	}
}

// TestExec_NoCommand verifies an empty Exec is rejected.
func TestExec_NoCommand(t *testing.T) {
	conn := serveBytes(t, nil)
	if err := (&Exec{}).Handle(context.Background(), conn); err == nil {
		t.Fatal("expected error")
	}
}

// TestExec_Failure verifies a failing child is reported.
func TestExec_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	conn := serveBytes(t, []byte("x"))
	e := &Exec{Command: "exit 3", Stdout: io.Discard, Stderr: io.Discard}
	if err := e.Handle(context.Background(), conn); err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}
