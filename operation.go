package recur

// NoopOperation is an [Operation] that succeeds immediately. It is the
// default value of onStart and onStop hooks.
func NoopOperation() Operation {
	return Completed(Unit{})
}

// runOperation invokes fn (which may panic) and returns an [Operation]
// that settles with fn's result, recovering any panic into a
// [PanicError] instead of propagating it to the caller.
//
// Grounded on eventloop/promisify.go's Promisify: run user code, recover
// panics, settle exactly once. Simplified here because this package has
// no single loop-thread hand-off to perform — the caller decides whether
// fn runs synchronously or via an [Executor].
func runOperation(fn func() error) (op Operation) {
	promised := NewPromised[Unit]()
	op = promised.Promise()
	defer func() {
		if r := recover(); r != nil {
			promised.Error(PanicError{Value: r})
		}
	}()

	if err := fn(); err != nil {
		promised.Error(err)
	} else {
		promised.Success(Unit{})
	}

	return op
}
