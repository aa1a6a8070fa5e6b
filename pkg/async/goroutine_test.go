package async

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSafeGo_RunsTask(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "audit write", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Task never ran")
	}
}

func TestSafeGo_ErrorDoesNotPropagate(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "audit write", func(ctx context.Context) error {
		defer close(done)
		return errors.New("insert failed")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Task never ran")
	}
}

func TestSafeGo_TimeoutCancelsContext(t *testing.T) {
	result := make(chan error, 1)

	SafeGo(context.Background(), 50*time.Millisecond, "slow audit write", func(ctx context.Context) error {
		select {
		case <-time.After(2 * time.Second):
			result <- nil
		case <-ctx.Done():
			result <- ctx.Err()
		}
		return nil
	})

	select {
	case err := <-result:
		if err == nil {
			t.Error("Expected the timeout to cancel the task context")
		}
	case <-time.After(time.Second):
		t.Fatal("Task never observed the deadline")
	}
}

func TestSafeGo_ParentCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	SafeGo(ctx, 5*time.Second, "audit write", func(taskCtx context.Context) error {
		select {
		case <-time.After(2 * time.Second):
			result <- nil
		case <-taskCtx.Done():
			result <- taskCtx.Err()
		}
		return nil
	})

	cancel()

	select {
	case err := <-result:
		if err == nil {
			t.Error("Expected parent cancellation to reach the task")
		}
	case <-time.After(time.Second):
		t.Fatal("Task never observed cancellation")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	started := make(chan struct{})

	SafeGo(context.Background(), time.Second, "audit write", func(ctx context.Context) error {
		close(started)
		panic("nil event")
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Task never ran")
	}
	// The panic is recovered inside the goroutine; reaching the next
	// statement without crashing the test binary is the assertion.
	time.Sleep(50 * time.Millisecond)
}

func TestSafeGoNoError(t *testing.T) {
	done := make(chan struct{})

	SafeGoNoError(context.Background(), time.Second, "audit write", func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Task never ran")
	}
}
