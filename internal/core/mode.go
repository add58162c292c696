// Package core is the orchestration layer.  It composes sessions,
// transports and the reference producer into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	framing, codec, relay  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of opusrelay (relay,
// play or produce).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
