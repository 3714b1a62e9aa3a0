package recur

import "time"

// TimedResult is an immutable bundle of a tick's outcome plus the instants
// bounding it: (value or error, StartedAt, FinishedAt). Generalized, via
// generics, from eventloop.Result (`type Result = any`).
//
// A producer error is not an exceptional path for the driver: it is
// carried here as Err, delivered through the normal success channel of
// the tick's next-result Promise (spec §4.1, "Producer errors").
type TimedResult[T any] struct {
	// Value is the producer's result, valid only if Err is nil.
	Value T
	// Err is the producer's failure, if any.
	Err error
	// StartedAt is when the producer was invoked.
	StartedAt time.Time
	// FinishedAt is when the producer's Promise settled.
	FinishedAt time.Time
}

// Duration returns FinishedAt.Sub(StartedAt).
func (r TimedResult[T]) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
