package settlement

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pool is an in-process Dispatcher backed by a buffered channel and a fixed
// number of workers.
type Pool struct {
	tasks   chan string
	workers int
	logger  *logrus.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Ensure Pool implements Dispatcher.
var _ Dispatcher = (*Pool)(nil)

// NewPool creates a pool. Start must be called before tasks are processed.
func NewPool(workers, buffer int, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		tasks:   make(chan string, buffer),
		workers: workers,
		logger:  logger,
	}
}

// Submit enqueues a payment without blocking the caller.
func (p *Pool) Submit(ctx context.Context, paymentID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- paymentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. Each task is handled with a context that is
// detached from ctx's cancellation so an in-flight settlement always
// finishes once started.
func (p *Pool) Start(ctx context.Context, handle Handler) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for paymentID := range p.tasks {
				_ = handle(context.WithoutCancel(ctx), paymentID)
			}
			p.logger.WithField("worker", worker).Debug("settlement worker stopped")
		}(i)
	}
}

// Stop refuses new tasks, drains queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
