// Package recur implements a recurring asynchronous function driver: a
// reusable primitive that repeatedly invokes a user-supplied asynchronous
// producer, times each invocation, and asks a user-supplied listener how
// long to wait before the next invocation (or whether to stop).
//
// # Architecture
//
// A [Driver] owns a three-state lifecycle (Stopped, Executing, Pending),
// coordinated through a single capacity-1 [Throttle] so that start, stop,
// and every tick observe each other's effects in submission order. Each
// tick runs on a forked [Executor] goroutine so [Driver.Start] returns
// promptly, times the producer call using an injectable [Clock], and
// arms a cancellable [Scheduler] timer (or re-forks immediately) for the
// next tick based on the listener's decision.
//
// External observers subscribe to [Driver.NextResult] to await the next
// tick's [TimedResult] without racing the driver: the driver swaps in a
// fresh [Promised] before notifying the previous one, so a subscriber
// that resubscribes upon settlement observes the following tick, as long
// as it resubscribes before that tick finishes; results are not buffered,
// so a later resubscription sees a later tick.
//
// # Thread Safety
//
// [Driver.Start], [Driver.Stop], and the tick body all run through the
// driver's throttle: they observe a total order relative to each other.
// [Driver.State], [Driver.Invocations], [Driver.PreviousResult], and
// [Driver.NextResult] may be called from any goroutine at any time.
//
// # Usage
//
//	d := recur.New(
//	    func(n int64) recur.Promise[int] {
//	        p := recur.NewPromised[int]()
//	        go func() { p.Success(int(n)) }()
//	        return p.Promise()
//	    },
//	    func(n int64, r recur.TimedResult[int]) (time.Duration, bool) {
//	        if n >= 10 {
//	            return 0, true
//	        }
//	        return time.Second, false
//	    },
//	)
//	d.Start()
//	defer d.Stop()
package recur
