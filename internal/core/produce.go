package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"opusrelay/internal/producer"
	"opusrelay/util"
)

// ProduceMode is the reference upstream.  It listens on Address,
// accepts a single decoder and streams Stdin to it as framed Opus.
type ProduceMode struct {
	Address  string
	Producer *producer.Producer
	Logger   *util.Logger

	// Stdin defaults to os.Stdin when nil.
	Stdin io.Reader

	// ready, when set, receives the bound address.  Used by tests.
	ready chan<- net.Addr
}

func (m *ProduceMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

// Run serves one client and returns when the input is exhausted, the
// client disconnects or ctx ends.
func (m *ProduceMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	m.Logger.Verbose("serving Opus frames on %s", ln.Addr())
	if m.ready != nil {
		m.ready <- ln.Addr()
	}

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("accept: %w", err)
	}
	defer util.Shutdown(conn) //nolint:errcheck
	m.Logger.Verbose("decoder connected from %s", conn.RemoteAddr())

	frames, err := m.Producer.Serve(ctx, conn, m.stdin())
	m.Producer.Log(frames, err)
	return err
}
