package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"opusrelay/internal/metrics"
	"opusrelay/internal/session"
	"opusrelay/internal/transport"
	"opusrelay/util"
)

// RelayMode runs one decode session toward Host:Port and waits for it
// to end or for ctx to be cancelled, in which case the session is
// stopped cooperatively.
type RelayMode struct {
	Manager *session.Manager
	Dialer  transport.Dialer // closed when Run returns; may be nil
	Host    string
	Port    int
	Logger  *util.Logger
	Metrics *metrics.Collector

	// StatsInterval, when positive, logs a metrics line at that
	// interval while the session runs.
	StatsInterval time.Duration
	// Stats prints a JSON snapshot to Stdout when the session ends.
	Stats bool

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *RelayMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run starts the session and blocks until it has been stopped.  A
// session cancelled through ctx, or one whose producer closed the
// stream cleanly, returns nil; any other cause is returned.
func (m *RelayMode) Run(ctx context.Context) error {
	if m.Dialer != nil {
		defer m.Dialer.Close()
	}

	h, err := m.Manager.Start(ctx, m.Host, m.Port)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	m.Logger.Verbose("session %s started, consumer port %s", h.ID, h.RelayAddr())

	var res session.Result
	stopped := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-h.Done():
		case <-gctx.Done():
			m.Logger.Verbose("stopping session %s", h.ID)
		}
		res = m.Manager.Stop(h)
		close(stopped)
		if res.Clean() {
			return nil
		}
		return res.Err
	})
	if m.StatsInterval > 0 {
		g.Go(func() error {
			m.reportStats(stopped)
			return nil
		})
	}
	err = g.Wait()

	if m.Stats {
		fmt.Fprintln(m.stdout(), m.Metrics.JSON())
	}

	if err != nil {
		return err
	}
	m.Logger.Info("%s after %d frames", res, res.Frames)
	return nil
}

func (m *RelayMode) reportStats(stopped <-chan struct{}) {
	t := time.NewTicker(m.StatsInterval)
	defer t.Stop()
	for {
		select {
		case <-stopped:
			return
		case <-t.C:
			s := m.Metrics.Snapshot()
			m.Logger.Debug("stats: frames=%d in=%dB out=%dB errors=%d",
				s.FramesDecoded, s.BytesIn, s.BytesOut, m.Metrics.ErrorCount(""))
		}
	}
}
