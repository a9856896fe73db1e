// internal/logging/timing.go
package logging

import (
	"context"
	"sync"
	"time"
)

// Timing is a scoped handle around one operation. Obtain one with
// StartTiming, defer Close, and call MarkFailed on error paths:
//
//	timing := logger.StartTiming(logging.CategoryPerformance, "refresh-stats")
//	defer timing.Close(ctx)
//	if err := refresh(ctx); err != nil {
//		timing.MarkFailed()
//		return err
//	}
//
// Close logs the completion exactly once, however many times it runs,
// so the deferred call is safe alongside early explicit closes.
type Timing struct {
	logger    *Logger
	category  string
	operation string
	start     time.Time

	mu     sync.Mutex
	failed bool
	once   sync.Once
}

// StartTiming captures a start instant for the named operation.
func (l *Logger) StartTiming(category, operation string) *Timing {
	return &Timing{
		logger:    l,
		category:  category,
		operation: operation,
		start:     time.Now(),
	}
}

// MarkFailed records that the operation failed. Consulted at close time.
func (t *Timing) MarkFailed() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

// Failed reports whether MarkFailed was called.
func (t *Timing) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Close computes the elapsed time and logs the operation. Only the
// first call logs; later calls are no-ops.
func (t *Timing) Close(ctx context.Context) {
	t.once.Do(func() {
		t.logger.LogOperation(ctx, t.category, t.operation, time.Since(t.start), !t.Failed())
	})
}
