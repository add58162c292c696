package session

import (
	"context"
	"net"
	"runtime"
	"sync"

	"github.com/google/uuid"

	rlerr "opusrelay/internal/errors"
	"opusrelay/internal/metrics"
	"opusrelay/internal/relay"
	"opusrelay/util"
)

// Manager holds at most one running session.  Start and Stop are its
// only mutators; a Start while a session is held fails with
// errors.ErrAlreadyRunning and is not queued.
type Manager struct {
	cfg     Config
	logger  *util.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	current *Handle
}

// Handle refers to a session started by a Manager.
type Handle struct {
	ID string

	session   *Session
	signal    *Signal
	cancel    context.CancelFunc
	relayAddr net.Addr
	done      chan struct{}
	result    Result
}

// Done is closed when the session has reached Terminated.
func (h *Handle) Done() <-chan struct{} { return h.done }

// RelayAddr is the bound address the consumer connects to.
func (h *Handle) RelayAddr() net.Addr { return h.relayAddr }

// State returns the session's current state.
func (h *Handle) State() State { return h.session.State() }

// Result returns the session outcome.  It is only meaningful after Done
// is closed.
func (h *Handle) Result() Result {
	<-h.done
	return h.result
}

// NewManager returns a Manager that starts sessions with cfg.
func NewManager(cfg Config, logger *util.Logger, m *metrics.Collector) *Manager {
	return &Manager{cfg: cfg, logger: logger, metrics: m}
}

// Start binds the relay port and runs a session toward host:port on a
// dedicated OS thread.  The port is bound when Start returns, so a
// consumer may connect immediately.  ctx bounds the session's setup
// phases.
func (m *Manager) Start(ctx context.Context, host string, port int) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, rlerr.ErrAlreadyRunning
	}

	rv, err := relay.Listen(m.cfg.RelayAddr)
	if err != nil {
		return nil, err
	}

	cfg := m.cfg
	cfg.Remote = util.FormatAddr(host, port)

	id := uuid.NewString()
	logger := m.logger.With("session", id)
	sig := &Signal{}
	sess := New(cfg, rv, sig, logger, m.metrics)
	sess.ID = id

	sctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:        id,
		session:   sess,
		signal:    sig,
		cancel:    cancel,
		relayAddr: rv.Addr(),
		done:      make(chan struct{}),
	}

	logger.Info("relaying %s to consumer on %s", cfg.Remote, rv.Addr())
	go func() {
		// The thread is not unlocked, so it exits with the goroutine
		// and its raised priority is never reused by the runtime.
		runtime.LockOSThread()
		defer close(h.done)
		defer cancel()
		h.result = sess.Run(sctx)
	}()

	m.current = h
	return h, nil
}

// Stop sets the handle's cancellation flag, aborts a session still in
// setup, waits for the session thread to finish and frees the slot.  A
// streaming session stops after its in-flight frame completes or fails.
// Stopping a handle the manager does not hold reports ErrNotRunning.
func (m *Manager) Stop(h *Handle) Result {
	m.mu.Lock()
	if h == nil || m.current != h {
		m.mu.Unlock()
		return Result{Outcome: Ended, Err: rlerr.ErrNotRunning}
	}
	m.mu.Unlock()

	h.signal.Set()
	h.cancel()
	<-h.done

	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()
	return h.result
}

// Current returns the held handle, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
