package session

import (
	"fmt"
	"sync/atomic"
)

// State is a session's position in its lifecycle.  Transitions only
// move forward: AwaitingDownstream, AwaitingUpstream, Streaming and
// finally Terminated, which may be entered from any of them.
type State int32

const (
	// AwaitingDownstream waits for the local consumer on the relay port.
	AwaitingDownstream State = iota
	// AwaitingUpstream connects to the remote producer.
	AwaitingUpstream
	// Streaming runs the read, decode, relay loop.
	Streaming
	// Terminated is final; both connections are closed.
	Terminated
)

var stateNames = [...]string{"awaiting-downstream", "awaiting-upstream", "streaming", "terminated"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type stateVar struct{ v atomic.Int32 }

func (sv *stateVar) load() State   { return State(sv.v.Load()) }
func (sv *stateVar) store(s State) { sv.v.Store(int32(s)) }
