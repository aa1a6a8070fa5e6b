package async

import (
	"context"
	"log"
	"runtime/debug"
	"time"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, a timeout, and error logging.
//
// Use this instead of bare `go func()` for side effects that must not
// crash or outlive their budget, for example audit writes after a grant
// mutation:
//
//	SafeGo(context.Background(), 5*time.Second, "audit write", func(ctx context.Context) error {
//	    return auditStore.Write(ctx, event)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("async: panic in %s task: %v\n%s",
					taskName, r, debug.Stack())
			}
		}()

		if err := fn(ctx); err != nil {
			// Log and move on. The caller already responded.
			log.Printf("async: %s task failed: %v", taskName, err)
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
// Still provides panic recovery and context support.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
