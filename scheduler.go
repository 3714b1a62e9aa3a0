package recur

import "time"

// TimerHandle is a best-effort cancellable handle to a scheduled callback,
// returned by [Scheduler.Schedule].
type TimerHandle interface {
	// Cancel attempts to prevent the scheduled callback from firing.
	// Returns true if the cancellation is believed to have succeeded.
	// A false return (or a return of true followed by the callback firing
	// anyway) is not an error: callers must always be prepared for a
	// cancelled timer to fire regardless, per spec.
	Cancel(mayInterrupt bool) bool
}

// Scheduler submits a zero-argument callback to fire after a given delay.
//
// This is deliberately narrower than [eventloop.Loop]'s timer heap in the
// teacher package: a [Driver] only ever has zero or one timer armed at a
// time, so there is no need for a heap of concurrently pending timers
// interleaved with I/O polling or microtasks. The default implementation
// wraps [time.AfterFunc] directly.
type Scheduler interface {
	// Schedule arranges for fn to run after delay elapses, returning a
	// handle that can request cancellation. A non-positive delay is still
	// accepted (fires as soon as possible); [Driver] never calls Schedule
	// with a non-positive delay itself (it re-forks immediately instead),
	// but custom Scheduler implementations must not reject one.
	Schedule(delay time.Duration, fn func()) TimerHandle
}

// SystemScheduler is the default [Scheduler], backed by [time.AfterFunc].
type SystemScheduler struct{}

// Schedule implements [Scheduler].
func (SystemScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	return &timeTimerHandle{t: time.AfterFunc(delay, fn)}
}

type timeTimerHandle struct {
	t *time.Timer
}

// Cancel implements [TimerHandle].
func (h *timeTimerHandle) Cancel(mayInterrupt bool) bool {
	return h.t.Stop()
}

var (
	_ Scheduler   = SystemScheduler{}
	_ TimerHandle = (*timeTimerHandle)(nil)
)

// Executor starts work on a fresh logical execution, isolated from its
// caller — the "forked execution" primitive from spec §1. It exists as a
// seam so tests can run tick bodies synchronously instead of on a new
// goroutine.
//
// Grounded on eventloop.Loop.Promisify's goroutine-plus-panic-recovery
// shape, simplified: this driver has no single "loop thread" to marshal
// settlement back onto, so there is nothing analogous to Promisify's
// SubmitInternal hand-off.
type Executor interface {
	// Fork runs fn on a new logical execution (by default, a new
	// goroutine) and returns immediately.
	Fork(fn func())
}

// GoroutineExecutor is the default [Executor]: it runs fn on a new
// goroutine, recovering (and discarding, after logging) any panic so one
// failed tick cannot crash the process. Listener/hook panics are instead
// captured explicitly by the driver as a [PanicError]; this recovery is
// strictly a last-resort backstop for panics that escape fn itself. A
// panic on some other goroutine (e.g. one a producer starts) is not
// recovered here.
type GoroutineExecutor struct{}

// Fork implements [Executor].
func (GoroutineExecutor) Fork(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(r)
			}
		}()
		fn()
	}()
}

var _ Executor = GoroutineExecutor{}
