package tunnel

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	rlerr "opusrelay/internal/errors"
	"opusrelay/util"
)

// SSHConfig describes the gateway host and how to authenticate to it.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive requests on an idle
	// stream.  Zero disables them.
	KeepAlive time.Duration
}

// SSHGateway implements [Gateway] with an SSH client, forwarding the
// upstream connection as a direct-tcpip channel.
type SSHGateway struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
	done   chan struct{}
}

// NewSSHGateway returns a gateway ready to [SSHGateway.Connect].
func NewSSHGateway(cfg *SSHConfig, logger *util.Logger) *SSHGateway {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 15 * time.Second
	}
	return &SSHGateway{config: cfg, logger: logger}
}

func (g *SSHGateway) addr() string {
	return net.JoinHostPort(g.config.Host, strconv.Itoa(g.config.Port))
}

// Connect dials the gateway and completes the SSH handshake.  The TCP
// dial honours ctx; the handshake is bounded by ConnTimeout.
func (g *SSHGateway) Connect(ctx context.Context) error {
	auth, err := BuildAuthMethods(g.config)
	if err != nil {
		return rlerr.WrapGateway("auth", g.config.Host, g.config.Port, err)
	}
	hkCallback, err := hostKeyCallback(g.config)
	if err != nil {
		return rlerr.WrapGateway("hostkey", g.config.Host, g.config.Port, err)
	}

	addr := g.addr()
	g.logger.Debug("gateway: dialing %s as %s", addr, g.config.User)

	dialer := net.Dialer{Timeout: g.config.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return rlerr.WrapGateway("dial", g.config.Host, g.config.Port, err)
	}

	tcpConn.SetDeadline(time.Now().Add(g.config.ConnTimeout)) //nolint:errcheck
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            g.config.User,
		Auth:            auth,
		HostKeyCallback: hkCallback,
		Timeout:         g.config.ConnTimeout,
	})
	if err != nil {
		tcpConn.Close()
		return rlerr.WrapGateway("handshake", g.config.Host, g.config.Port, err)
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	client := ssh.NewClient(sshConn, chans, reqs)
	done := make(chan struct{})

	g.mu.Lock()
	g.client = client
	g.alive = true
	g.done = done
	g.mu.Unlock()

	go g.monitor(client, done)
	if g.config.KeepAlive > 0 {
		go g.keepAlive(client, done)
	}
	return nil
}

// Dial opens a connection to address through the gateway.
func (g *SSHGateway) Dial(ctx context.Context, address string) (net.Conn, error) {
	g.mu.RLock()
	client, alive := g.client, g.alive
	g.mu.RUnlock()

	if !alive || client == nil {
		return nil, rlerr.ErrNotConnected
	}

	g.logger.Debug("gateway: forwarding to %s", address)
	conn, err := client.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, rlerr.WrapGateway("forward "+address, g.config.Host, g.config.Port, err)
	}
	return conn, nil
}

// Close shuts the SSH connection down.
func (g *SSHGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.alive = false
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// IsAlive reports whether the gateway connection is still up.
func (g *SSHGateway) IsAlive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.alive
}

// monitor waits for the SSH connection to end and marks the gateway dead.
func (g *SSHGateway) monitor(client *ssh.Client, done chan struct{}) {
	err := client.Wait()
	close(done)

	g.mu.Lock()
	if g.client == client || g.client == nil {
		g.alive = false
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Debug("gateway connection closed: %v", err)
	} else {
		g.logger.Debug("gateway connection closed")
	}
}

// keepAlive sends periodic global requests so that NAT and firewall
// state survives quiet stretches of the stream.
func (g *SSHGateway) keepAlive(client *ssh.Client, done chan struct{}) {
	tick := time.NewTicker(g.config.KeepAlive)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				g.logger.Warn("gateway keepalive failed: %v", err)
				client.Close()
				return
			}
		}
	}
}
