package recur

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Producer is the user-supplied asynchronous function invoked once per
// tick. The argument is the tick's 0-based invocation index.
type Producer[T any] func(invocation int64) Promise[T]

// Listener is asked, after each tick, how long to wait before the next
// one. Returning stop=true is the Go-idiomatic replacement for spec
// §4.1's nullable "sentinel for stop": see DESIGN.md's Open Question
// decisions. A non-positive delay (with stop=false) re-ticks immediately,
// without going through the [Scheduler].
type Listener[T any] func(invocation int64, result TimedResult[T]) (delay time.Duration, stop bool)

// Hook is the type of the onStart/onStop lifecycle callbacks: an
// operation (no value, may fail).
type Hook func() Operation

func defaultHook() Operation { return NoopOperation() }

// Driver is the recurring asynchronous function driver (spec §4.1): it
// owns the state machine, the throttle discipline, the timing of
// invocations and inter-tick delays, and the publication of results to
// waiting observers.
//
// Grounded on the combination of eventloop.Loop's state-machine
// discipline, Loop.Promisify's fork+recover+single-settle pattern, and
// Loop.ScheduleTimer's arm/cancel handle, assembled into one driver type
// the way eventloop assembles Loop, ChainedPromise, and its timer heap
// into a single cohesive package.
type Driver[T any] struct {
	clock     Clock
	scheduler Scheduler
	executor  Executor
	throttle  *Throttle
	producer  Producer[T]
	listener  Listener[T]
	logger    Logger
	name      string

	state       atomicState
	invocations atomic.Int64

	// onStopPending is armed (true) by doStart and claimed, via CAS, by
	// whichever of doStop's Pending branch, tickStart's already-stopped
	// branch, or tickFinish's stop-race branch first discovers the driver
	// should stop. Exactly one of those sites runs onStop per start/stop
	// cycle, even though a cancelled timer can still race its callback in
	// (spec §5: "best-effort" cancel).
	onStopPending atomic.Bool

	// mu guards every field below it: prevResult, nextResult, timer,
	// onStart and onStop. These are exactly the fields spec §5 calls out
	// as "shared between the caller thread, the throttle-serialized tick
	// body, and the scheduler callback" and requiring atomic or
	// lock-protected access; a single mutex is simpler than per-field
	// atomics and none of these fields sit on a hot path that would
	// justify the extra complexity.
	mu         sync.Mutex
	prevResult *TimedResult[T]
	nextResult *Promised[*TimedResult[T]]
	timer      TimerHandle
	onStart    Hook
	onStop     Hook
}

// Option configures a [Driver] at construction time.
type Option[T any] func(*Driver[T])

// WithClock overrides the [Clock] used to stamp tick start/finish times.
func WithClock[T any](c Clock) Option[T] {
	return func(d *Driver[T]) { d.clock = c }
}

// WithScheduler overrides the [Scheduler] used to arm inter-tick delays.
func WithScheduler[T any](s Scheduler) Option[T] {
	return func(d *Driver[T]) { d.scheduler = s }
}

// WithExecutor overrides the [Executor] used to fork each tick.
func WithExecutor[T any](e Executor) Option[T] {
	return func(d *Driver[T]) { d.executor = e }
}

// WithOnStart sets the onStart lifecycle hook.
func WithOnStart[T any](hook Hook) Option[T] {
	return func(d *Driver[T]) { d.onStart = hook }
}

// WithOnStop sets the onStop lifecycle hook.
func WithOnStop[T any](hook Hook) Option[T] {
	return func(d *Driver[T]) { d.onStop = hook }
}

// WithLogger overrides the structured [Logger] used for tick/lifecycle
// events. Defaults to a logger backed by slog.Default().
func WithLogger[T any](l Logger) Option[T] {
	return func(d *Driver[T]) { d.logger = l }
}

// WithName sets a name used to correlate this driver's log entries.
// Defaults to "recur".
func WithName[T any](name string) Option[T] {
	return func(d *Driver[T]) { d.name = name }
}

// New constructs a [Driver], initially [Stopped], with its initial
// next-result promise pre-completed (representing "no pending tick"),
// per spec §4.1.
func New[T any](producer Producer[T], listener Listener[T], opts ...Option[T]) *Driver[T] {
	d := &Driver[T]{
		clock:     SystemClock{},
		scheduler: SystemScheduler{},
		executor:  GoroutineExecutor{},
		throttle:  NewThrottle(),
		producer:  producer,
		listener:  listener,
		logger:    defaultLogger(),
		name:      "recur",
		onStart:   defaultHook,
		onStop:    defaultHook,
	}
	for _, opt := range opts {
		opt(d)
	}

	initial := NewPromised[*TimedResult[T]]()
	initial.Success(nil)
	d.nextResult = initial

	return d
}

// Start transitions the driver Stopped -> Executing, runs onStart, and
// forks the first tick. A no-op, returning an already-succeeded
// [Operation], if the driver is not currently [Stopped] (idempotent with
// respect to an already-running driver).
//
// The returned Operation is submitted through the driver's [Throttle], so
// Start and Stop serialize against each other and against every tick.
func (d *Driver[T]) Start() Operation {
	return d.submit(d.doStart)
}

func (d *Driver[T]) doStart() error {
	if !d.state.TryTransition(Stopped, Executing) {
		d.logWarn("start no-op: driver not stopped", ErrStopped)
		return nil
	}

	d.onStopPending.Store(true)

	fresh := NewPromised[*TimedResult[T]]()
	d.mu.Lock()
	d.nextResult = fresh
	onStart := d.onStart
	d.mu.Unlock()

	d.logLifecycle("start")

	if _, err := d.runHook(onStart); err != nil {
		d.state.Store(Stopped)
		fresh.Error(err)
		d.logError("onStart failed", err)
		return err
	}

	d.execute()
	return nil
}

// Stop transitions the driver to [Stopped]. If a timer was armed
// (previous state [Pending]), it is cancelled (best-effort) and onStop is
// run, completing the current next-result promise with a quiescent
// completion (or with onStop's error). If the driver was already
// [Executing], Stop does not run onStop itself and does not touch the
// next-result promise — the in-flight tick will observe the Stopped
// transition at its next checkpoint, run onStop on Stop's behalf, and
// settle next-result on its own (spec §4.1, §5, §8 scenario 6). If the
// driver was already [Stopped], Stop is a benign no-op.
func (d *Driver[T]) Stop() Operation {
	return d.submit(d.doStop)
}

func (d *Driver[T]) doStop() error {
	prev := d.state.Load()
	d.state.Store(Stopped)

	if prev == Stopped {
		d.logWarn("stop no-op: driver already stopped", ErrStopped)
		return nil
	}

	if prev == Executing {
		// onStop is deferred to the in-flight tick (spec §4.1: "does not
		// run onStop... an EXECUTING tick will observe the STOPPED
		// transition at its next checkpoint and cease on its own").
		return nil
	}

	d.mu.Lock()
	timer := d.timer
	d.timer = nil
	next := d.nextResult
	d.mu.Unlock()

	if timer != nil {
		timer.Cancel(true)
	}

	if err := d.dispatchOnStop(); err != nil {
		next.Error(err)
		return err
	}

	next.Success(nil)
	return nil
}

// Close stops the driver and awaits completion, bounded by ctx.
func (d *Driver[T]) Close(ctx context.Context) error {
	_, err := d.Stop().Await(ctx)
	return err
}

// NextResult returns a [Promise] that resolves to the next tick's
// [TimedResult] (as a pointer; nil signals the driver has gone quiescent
// — stopped, with no further ticks coming — rather than delivering a
// result). Subscribers that call this between ticks receive the upcoming
// tick; subscribers that call it during a tick receive that tick's
// result. The driver does not buffer past results: a subscriber that
// misses tick N by resubscribing late receives tick N+1 or later.
func (d *Driver[T]) NextResult() Promise[*TimedResult[T]] {
	d.mu.Lock()
	p := d.nextResult
	d.mu.Unlock()
	return p.Promise()
}

// PreviousResult returns the most recently completed tick's [TimedResult]
// and true, or the zero value and false if no tick has completed yet.
func (d *Driver[T]) PreviousResult() (TimedResult[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prevResult == nil {
		return TimedResult[T]{}, false
	}
	return *d.prevResult, true
}

// Invocations returns the total number of ticks started so far, including
// one currently executing.
func (d *Driver[T]) Invocations() int64 {
	return d.invocations.Load()
}

// State returns the driver's current [State].
func (d *Driver[T]) State() State {
	return d.state.Load()
}

// OnStart replaces the onStart hook. Takes effect on the next transition
// into Executing; callable at any time.
func (d *Driver[T]) OnStart(hook Hook) {
	d.mu.Lock()
	d.onStart = hook
	d.mu.Unlock()
}

// OnStop replaces the onStop hook. Takes effect the next time onStop is
// run on behalf of Stop, whether Stop found the driver Pending or the
// in-flight tick runs it; callable at any time.
func (d *Driver[T]) OnStop(hook Hook) {
	d.mu.Lock()
	d.onStop = hook
	d.mu.Unlock()
}

// execute forks the next tick: the forked goroutine submits the tick's
// synchronous preamble through the throttle and returns, so Start (and
// the Scheduler callback that re-arms a tick) never blocks on a tick's
// full duration — only on its synchronous bookkeeping segments.
func (d *Driver[T]) execute() {
	d.executor.Fork(func() {
		d.throttle.Submit(d.tickStart)
	})
}

// tickStart is the synchronous preamble of a tick (spec §4.1 steps 1-4):
// it runs entirely inside the throttle. It does not wait for the
// producer's Promise to settle — it registers a continuation instead —
// so the throttle slot is released as soon as the producer has been
// invoked, allowing a concurrently submitted Stop to run during the
// producer's pending time, exactly as spec §5 requires ("Stop during
// EXECUTING does not abort the in-flight producer").
func (d *Driver[T]) tickStart() {
	if d.state.Load() == Stopped {
		// Either a timer-cancellation race absorbed by this preamble (the
		// Pending branch of doStop cancelled the timer, but it had already
		// fired into this tick), or a Stop observed here raced doStart's
		// Executing transition before execute's fork even ran — doStop saw
		// prev=Executing and, by design, left next-result untouched for the
		// tick to settle. Either way this tick must settle next-result, and
		// must run onStop if doStop's own path didn't get to it first.
		d.logWarn("tick absorbed a Stop that raced ahead of it", nil)

		d.mu.Lock()
		next := d.nextResult
		d.mu.Unlock()

		if err := d.dispatchOnStop(); err != nil {
			next.Error(err)
			return
		}
		next.Success(nil)
		return
	}

	d.mu.Lock()
	d.timer = nil // step 2: the timer (if any) has now fired into this body
	d.mu.Unlock()

	d.state.Store(Executing) // step 3

	startedAt := d.clock.Instant()
	n := d.invocations.Add(1) - 1 // step 4: pre-increment value

	producer := d.producer
	producerPromise := producer(n)

	producerPromise.Then(func(value T, err error) {
		d.tickFinish(n, startedAt, value, err)
	})
}

// tickFinish is the continuation of a tick, run once the producer's
// Promise settles (spec §4.1 steps 5-7). It re-enters the throttle: this
// is the segment that must be linearized against a concurrently
// submitted Stop or against the start of the next tick.
func (d *Driver[T]) tickFinish(n int64, startedAt time.Time, value T, err error) {
	d.throttle.Submit(func() {
		finishedAt := d.clock.Instant()
		tr := TimedResult[T]{Value: value, Err: err, StartedAt: startedAt, FinishedAt: finishedAt}

		d.mu.Lock()
		d.prevResult = &tr
		snapshot := d.nextResult
		fresh := NewPromised[*TimedResult[T]]()
		d.nextResult = fresh
		d.mu.Unlock()

		d.logTick(n, tr)

		delay, stop, listenerErr := d.callListener(n, tr)
		if listenerErr != nil {
			// spec §4.1 step 7, listener threw: stop, complete fresh with
			// no value, deliver the error to THIS tick's observer.
			d.state.Store(Stopped)
			fresh.Success(nil)
			snapshot.Error(listenerErr)
			d.logError("listener failed", listenerErr)
			return
		}

		snapshot.Success(&tr)

		// Required re-check (spec §5): a concurrently submitted Stop may
		// have already transitioned the driver to Stopped while the
		// producer's Promise was pending. If so, this tick must not
		// schedule or re-fork regardless of what the listener decided, and
		// must still settle fresh itself (Stop, having found the driver
		// Executing at the time, did not touch next-result) and run onStop
		// on Stop's behalf (spec §8 scenario 6: "onStop invoked exactly
		// once"). A listener-requested stop (stop == true with no external
		// Stop racing in) is a distinct outcome and never runs onStop.
		externalStop := d.state.Load() == Stopped
		if stop || externalStop {
			d.state.Store(Stopped)
			if externalStop {
				if err := d.dispatchOnStop(); err != nil {
					fresh.Error(err)
					return
				}
			}
			fresh.Success(nil)
			return
		}

		d.state.Store(Pending)

		if delay <= 0 {
			d.execute()
			return
		}

		handle := d.scheduler.Schedule(delay, d.execute)
		d.mu.Lock()
		d.timer = handle
		d.mu.Unlock()
	})
}

// callListener invokes the listener, recovering any panic into a
// [PanicError] (spec §4.1 step 7: "Catch any throwable it raises").
func (d *Driver[T]) callListener(n int64, tr TimedResult[T]) (delay time.Duration, stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		}
	}()
	delay, stop = d.listener(n, tr)
	return
}

// runHook runs an onStart/onStop hook synchronously (within whichever
// throttle turn is calling it) and awaits its settlement.
func (d *Driver[T]) runHook(hook Hook) (Unit, error) {
	op := hook()
	return op.Await(context.Background())
}

// dispatchOnStop runs onStop at most once per start/stop cycle, claimed by
// whichever caller wins the CAS against onStopPending. Callers that lose
// the race (onStopPending already false) return nil without touching the
// hook — someone else already ran it, or it's not armed (no Start has run
// since the last dispatch).
func (d *Driver[T]) dispatchOnStop() error {
	if !d.onStopPending.CompareAndSwap(true, false) {
		return nil
	}

	d.mu.Lock()
	onStop := d.onStop
	d.mu.Unlock()

	d.logLifecycle("stop")

	if _, err := d.runHook(onStop); err != nil {
		d.logError("onStop failed", err)
		return err
	}
	return nil
}

// submit runs fn serialized through the throttle and returns its result as
// an Operation. fn's panics are converted to a [PanicError] delivered
// through the returned Operation rather than through the [Throttle]'s own
// last-resort recovery, which would otherwise leave errCh permanently
// unreceived and this call blocked forever.
func (d *Driver[T]) submit(fn func() error) Operation {
	return runOperation(func() error {
		errCh := make(chan error, 1)
		d.throttle.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					errCh <- PanicError{Value: r}
				}
			}()
			errCh <- fn()
		})
		return <-errCh
	})
}

func (d *Driver[T]) logLifecycle(event string) {
	d.logger.Debug().Str("name", d.name).Str("event", event).Log("recur: lifecycle")
}

func (d *Driver[T]) logTick(n int64, tr TimedResult[T]) {
	b := d.logger.Debug().Str("name", d.name).Int64("invocation", n).Dur("duration", tr.Duration())
	if tr.Err != nil {
		b = b.Err(tr.Err)
	}
	b.Log("recur: tick")
}

func (d *Driver[T]) logError(msg string, err error) {
	d.logger.Err().Str("name", d.name).Err(err).Log("recur: " + msg)
}

// logWarn logs a Warn-level event: idempotent no-ops (ErrStopped) and
// timer-cancellation races absorbed by the tick preamble, per SPEC_FULL's
// logging section. err may be nil.
func (d *Driver[T]) logWarn(msg string, err error) {
	b := d.logger.Warning().Str("name", d.name)
	if err != nil {
		b = b.Err(err)
	}
	b.Log("recur: " + msg)
}
