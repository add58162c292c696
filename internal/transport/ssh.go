package transport

import (
	"context"
	"net"
	"sync"

	rlerr "opusrelay/internal/errors"
	"opusrelay/internal/metrics"
	"opusrelay/tunnel"
	"opusrelay/util"
)

// SSHDialer opens the upstream connection through an SSH gateway.  The
// gateway is connected on the first Dial and reconnected if it has died
// since.
type SSHDialer struct {
	Timeouts Timeouts

	gateway tunnel.Gateway
	config  *tunnel.SSHConfig
	logger  *util.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	connected bool
}

// NewSSHDialer returns a dialer for the gateway described by cfg.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger, m *metrics.Collector) *SSHDialer {
	return &SSHDialer{
		gateway: tunnel.NewSSHGateway(cfg, logger),
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.gateway.IsAlive() {
		return nil
	}
	if d.connected {
		d.logger.Warn("SSH gateway connection lost, reconnecting")
		d.gateway.Close() //nolint:errcheck
		d.connected = false
	}

	d.logger.Verbose("connecting to SSH gateway %s@%s:%d", d.config.User, d.config.Host, d.config.Port)
	if err := d.gateway.Connect(ctx); err != nil {
		return err
	}
	d.connected = true
	d.logger.Verbose("SSH gateway ready")
	return nil
}

// Dial connects to address from the gateway's side.  Failures are
// *errors.ConnectionError wrapping the gateway cause.
func (d *SSHDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, rlerr.Connection("connect", address, err)
	}
	conn, err := d.gateway.Dial(ctx, address)
	if err != nil {
		return nil, rlerr.Connection("connect", address, err)
	}
	d.metrics.GatewayDial()
	return d.Timeouts.Wrap(conn), nil
}

// Close tears the gateway down.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false
	return d.gateway.Close()
}
