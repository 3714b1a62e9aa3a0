package recur

import (
	"errors"
	"fmt"
)

// ErrStopped is logged internally (at Warn) when Start or Stop is a no-op
// because the driver already reached the requested state — idempotent
// start-while-running or stop-while-stopped (spec §4.1, §7: "benign
// no-op"). It is never returned from [Driver.Start] or [Driver.Stop]: both
// report success for an idempotent no-op, matching the source's contract.
var ErrStopped = errors.New("recur: driver already reached the requested state")

// PanicError wraps a panic value recovered from a listener or lifecycle
// hook call. Grounded on eventloop.PanicError; only this one error type
// is needed here because this driver's error taxonomy (spec §7) has no
// fan-in-of-several-failures case that an AggregateError would serve.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recur: panic recovered: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error,
// enabling errors.Is/errors.As to see through to it.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
