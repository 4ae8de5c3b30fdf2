// Package pool manages a fixed-size set of expensive browser handles.
// The pool is the crawl engine's only backpressure mechanism: any number
// of tasks may be scheduled, but at most Capacity of them hold a handle.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Acquire once Shutdown has begun.
var ErrClosed = errors.New("pool: closed")

// Handle is an opaque, stateful, expensive resource (a browser session).
// A handle is owned by the pool except while checked out to exactly one
// task. Close destroys the underlying session.
type Handle interface {
	Close() error
}

// Factory creates new handles during pool warm-up.
type Factory interface {
	Create(ctx context.Context) (Handle, error)
}

// Pool holds a fixed number of handles, all created eagerly at
// construction. Acquire blocks until a handle is free, the context is
// done, or the pool shuts down.
type Pool struct {
	capacity int
	idle     chan Handle
	quit     chan struct{}
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	inUse  int
}

// New pre-warms capacity handles and returns the ready pool. Warm-up is
// deliberately eager: handle creation takes seconds, and paying it all
// up front keeps steady-state throughput flat. If any creation fails,
// already-created handles are destroyed and the error is returned.
func New(ctx context.Context, factory Factory, capacity int, logger *zap.Logger) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool: capacity must be > 0, got %d", capacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		capacity: capacity,
		idle:     make(chan Handle, capacity),
		quit:     make(chan struct{}),
		logger:   logger,
	}
	for i := 0; i < capacity; i++ {
		h, err := factory.Create(ctx)
		if err != nil {
			p.Shutdown()
			return nil, fmt.Errorf("pool: warm handle %d/%d: %w", i+1, capacity, err)
		}
		p.idle <- h
	}
	logger.Info("handle pool warmed", zap.Int("capacity", capacity))
	return p, nil
}

// Acquire checks out a handle, blocking until one is free. It returns
// ErrClosed after Shutdown and the context error on cancellation.
func (p *Pool) Acquire(ctx context.Context) (Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	select {
	case h := <-p.idle:
		p.mu.Lock()
		if p.closed {
			// Shutdown raced the checkout; this handle is ours to destroy.
			p.mu.Unlock()
			p.destroy(h)
			return nil, ErrClosed
		}
		p.inUse++
		p.mu.Unlock()
		return h, nil
	case <-p.quit:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("pool: acquire: %w", ctx.Err())
	}
}

// Release returns a handle unconditionally, including after a failed
// task. It must be called exactly once per successful Acquire. After
// shutdown the handle is destroyed instead of being re-pooled.
func (p *Pool) Release(h Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	p.inUse--
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.destroy(h)
		return
	}
	select {
	case p.idle <- h:
	default:
		// Unreachable with balanced Acquire/Release; destroy rather than leak.
		p.destroy(h)
	}
}

// Shutdown closes the pool: blocked Acquire calls unblock with ErrClosed
// and idle handles are destroyed immediately. Handles still checked out
// are destroyed as they are released, so in-flight tasks may fail on
// their next use of the handle. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.quit)

	for {
		select {
		case h := <-p.idle:
			p.destroy(h)
		default:
			p.logger.Info("handle pool shut down")
			return
		}
	}
}

// InUse reports how many handles are currently checked out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Capacity reports the fixed pool size.
func (p *Pool) Capacity() int {
	return p.capacity
}

func (p *Pool) destroy(h Handle) {
	if err := h.Close(); err != nil {
		p.logger.Warn("handle close failed", zap.Error(err))
	}
}
