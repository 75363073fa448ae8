package web

// limiter.go serializes imports arriving over HTTP.
//
// A database has one writer at a time, so the limiter holds a single slot.
// A request that cannot take the slot within maxWait fails with
// ErrImportBusy and the client is told to retry.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrImportBusy is returned when another import holds the slot and the wait
// timeout expires.
var ErrImportBusy = errors.New("import already in progress, please try again later")

// DefaultMaxWaitTime is how long to wait for the slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter is a one-slot semaphore guarding the import path.
type ImportLimiter struct {
	slot    chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active bool
}

// NewImportLimiter creates a limiter. A non-positive maxWait falls back to
// DefaultMaxWaitTime.
func NewImportLimiter(maxWait time.Duration) *ImportLimiter {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire waits for the slot. The caller must Release it when done.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slot <- struct{}{}:
		l.setActive(true)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrImportBusy
	}
}

// TryAcquire takes the slot without blocking.
func (l *ImportLimiter) TryAcquire() bool {
	select {
	case l.slot <- struct{}{}:
		l.setActive(true)
		return true
	default:
		return false
	}
}

// Release frees the slot taken by Acquire or TryAcquire.
func (l *ImportLimiter) Release() {
	l.setActive(false)
	<-l.slot
}

// Busy reports whether an import currently holds the slot.
func (l *ImportLimiter) Busy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no import holds the slot or ctx is done. Used on
// shutdown so a running import can commit.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *ImportLimiter) setActive(v bool) {
	l.mu.Lock()
	l.active = v
	l.mu.Unlock()
}
