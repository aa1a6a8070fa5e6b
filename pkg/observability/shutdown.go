package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc drains one resource during shutdown. Each func gets the
// same deadline-bound context; a func that ignores it can stall the whole
// drain until the timeout fires.
type ShutdownFunc func(context.Context) error

// ShutdownManager waits for SIGINT/SIGTERM, stops the HTTP server first
// so no new requests arrive, then drains the registered resources in
// parallel under one timeout.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu     sync.Mutex
	drains []ShutdownFunc
}

// NewShutdownManager creates a manager for the given server. A zero
// timeout defaults to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// RegisterShutdownFunc adds a drain step. Safe to call from any goroutine
// before the signal arrives.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.drains = append(sm.drains, fn)
}

// WaitForShutdown blocks until a termination signal arrives, then runs
// the shutdown sequence and reports whether it finished cleanly.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.WithField("signal", sig.String()).Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()
	return sm.shutdown(ctx)
}

func (sm *ShutdownManager) shutdown(ctx context.Context) error {
	// The server goes down first; drains may depend on in-flight requests
	// having finished.
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server shutdown failed")
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		sm.logger.Info("http server drained")
	}

	sm.mu.Lock()
	drains := sm.drains
	sm.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(drains))
	for i, fn := range drains {
		wg.Add(1)
		go func(index int, drain ShutdownFunc) {
			defer wg.Done()
			if err := drain(ctx); err != nil {
				sm.logger.WithError(err).WithField("drain", index).Error("shutdown drain failed")
				errChan <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	failed := 0
	for range errChan {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}
	return nil
}
