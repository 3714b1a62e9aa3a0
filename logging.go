package recur

import (
	"log/slog"
	"sync"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// Logger is the structured logger used by a [Driver]. It is a thin alias
// over logiface's generic Logger, bound to the logiface-slog event type,
// so callers never have to spell out the generic parameter.
//
// Grounded on eventloop/logging.go's package-level Logger/LogEntry/
// SetStructuredLogger shape, rebound onto a real third-party logging
// library present in the example pack (logiface, via its logiface-slog
// backend onto the standard library's log/slog) instead of the teacher's
// bespoke stdout writer.
type Logger = *logiface.Logger[*islog.Event]

// NewLogger returns a [Logger] that writes through handler.
func NewLogger(handler slog.Handler) Logger {
	return islog.L.New(islog.L.WithSlogHandler(handler))
}

var (
	defaultLoggerOnce sync.Once
	defaultLoggerVal  Logger
)

// defaultLogger returns a package-wide fallback Logger backed by
// slog.Default(), used by any Driver constructed without [WithLogger].
func defaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLoggerVal = NewLogger(slog.Default().Handler())
	})
	return defaultLoggerVal
}

// logPanic is the last-resort logging path used outside of any Driver
// instance (e.g. a panic recovered by the default Executor or Throttle,
// which have no driver name/invocation context to attach). A listener
// panic is instead logged with the driver's name via (*Driver).logError.
func logPanic(r any) {
	defaultLogger().Err().Interface("recover", r).Log("recur: recovered panic")
}
