package core

import (
	"context"
	"fmt"

	"opusrelay/internal/capability"
	"opusrelay/internal/relay"
	"opusrelay/internal/retry"
	"opusrelay/util"
)

// PlayMode is the local consumer.  It connects to a relay port,
// retrying until the session has bound it, and hands the connection to
// a capability: stdout by default, or a player process with -e/-c.
type PlayMode struct {
	Address    string
	Backoff    *retry.Backoff // nil means retry.RendezvousBackoff
	Capability capability.Capability
	Logger     *util.Logger
}

// Run consumes the relay stream until the session closes it or ctx
// ends.
func (m *PlayMode) Run(ctx context.Context) error {
	conn, err := relay.Dial(ctx, m.Address, m.Backoff, m.Logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer conn.Close()

	if err := m.Capability.Handle(ctx, conn); err != nil {
		return fmt.Errorf("relay %s: %w", m.Address, err)
	}
	return nil
}
