// Package capability defines what a local consumer does with the PCM
// stream once it is connected to the relay port.  Each Capability
// encapsulates a single behaviour (write to an output, feed a child
// process) and operates on the consumer connection.
package capability

import (
	"context"
	"net"
)

// Capability consumes the relay stream on conn.  It blocks until the
// relay closes the stream or the context is cancelled.
type Capability interface {
	Handle(ctx context.Context, conn net.Conn) error
}
