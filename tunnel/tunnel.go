// Package tunnel carries the upstream producer connection through an
// SSH gateway when the producer is not directly reachable.
package tunnel

import (
	"context"
	"net"
)

// Gateway is an encrypted channel through which the upstream TCP
// connection can be opened.
type Gateway interface {
	// Connect establishes the channel to the gateway host.
	Connect(ctx context.Context) error

	// Dial opens a TCP connection to address from the gateway's side.
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Close tears the channel down.
	Close() error

	// IsAlive reports whether the channel is still up.
	IsAlive() bool
}
