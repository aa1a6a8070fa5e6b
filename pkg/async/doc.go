// Package async provides safe goroutine execution for fire-and-forget work.
//
// Request handlers use SafeGo for side effects that must not block or fail
// the response, audit event writes being the main case. Tasks get panic
// recovery, a per-task timeout, and error logging.
//
//	async.SafeGoNoError(context.Background(), 5*time.Second, "audit write", func(ctx context.Context) {
//		auditLogger.Log(ctx, event)
//	})
//
// The parent context is usually context.Background(), not the request
// context: the task should outlive the response.
package async
