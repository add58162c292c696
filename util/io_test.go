package util

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestPump(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 3000)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write(payload) //nolint:errcheck
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	n, err := Pump(ctx, conn, &out)
	if err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("copied %d bytes, want %d", n, len(payload))
	}
}

func TestPump_ContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	hold := make(chan struct{})
	defer close(hold)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-hold
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Pump(ctx, conn, io.Discard)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancelled pump should be quiet, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not return after cancel")
	}
}

func TestShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	peerErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			peerErr <- err
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
		_, err = conn.Read(make([]byte, 1))
		peerErr <- err
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := Shutdown(conn); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-peerErr; err != io.EOF {
		t.Errorf("peer read = %v, want EOF", err)
	}

	// Second shutdown of an already-closed connection stays quiet.
	if err := Shutdown(conn); err != nil {
		t.Errorf("repeat Shutdown: %v", err)
	}
	if err := Shutdown(nil); err != nil {
		t.Errorf("Shutdown(nil): %v", err)
	}
}

func TestIsHarmless(t *testing.T) {
	if !isHarmless(nil) {
		t.Error("nil should be harmless")
	}
	if !isHarmless(io.EOF) {
		t.Error("io.EOF should be harmless")
	}
	if !isHarmless(net.ErrClosed) {
		t.Error("net.ErrClosed should be harmless")
	}
	if isHarmless(io.ErrUnexpectedEOF) {
		t.Error("ErrUnexpectedEOF should NOT be harmless")
	}
}
