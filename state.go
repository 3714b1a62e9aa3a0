package recur

import "sync/atomic"

// State is the [Driver]'s lifecycle state (spec §3).
type State int32

const (
	// Stopped: no tick is running and no timer is armed. Initial and
	// terminal-idle state.
	Stopped State = iota
	// Executing: a tick is currently running the producer.
	Executing
	// Pending: the previous tick has returned; a timer is armed (or an
	// immediate re-fork is queued) for the next tick.
	Pending
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Executing:
		return "Executing"
	case Pending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free State variable with CAS-guarded transitions.
//
// Grounded on eventloop/state.go's FastState: atomic load/store plus a
// CAS-based TryTransition. The driver uses TryTransition for the
// Stopped -> Executing move in Start and plain Store for the others. The cache-line padding FastState adds to avoid false
// sharing under heavy multi-core contention is dropped here: a driver's
// state field is touched a handful of times per tick interval, nowhere
// near the contention profile that padding defends against.
type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) Load() State {
	return State(s.v.Load())
}

func (s *atomicState) Store(state State) {
	s.v.Store(int32(state))
}

// TryTransition attempts to atomically move from `from` to `to`, returning
// whether it succeeded.
func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
