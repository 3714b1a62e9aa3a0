package recur

import "time"

// Clock returns the current instant on demand. It exists so a [Driver]'s
// timestamps can be replaced with a deterministic source in tests, the
// same role catrate's package-level timeNow variable plays, generalized
// into an injectable collaborator.
type Clock interface {
	// Instant returns the current time. Implementations are free to return
	// monotonic or wall-clock instants; the driver only ever compares
	// instants it obtained itself, never instants from two different Clock
	// implementations.
	Instant() time.Time
}

// SystemClock is the default [Clock], backed by [time.Now].
type SystemClock struct{}

// Instant returns time.Now().
func (SystemClock) Instant() time.Time { return time.Now() }

var _ Clock = SystemClock{}
