package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the panic value and
// full stack trace. Call it in a defer at the top of long-lived goroutines:
//
//	go func() {
//	    defer observability.RecoverPanic(logger, "feature override watch")
//	    // ...
//	}()
//
// The panic is not re-raised; the goroutine exits normally.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}
