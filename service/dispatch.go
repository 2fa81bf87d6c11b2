package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"genstudio/dto"
)

// ErrPoolClosed is returned by Dispatch once Close has started; submissions
// arriving during shutdown are rejected instead of racing the channel close.
var ErrPoolClosed = errors.New("dispatch pool is closed")

// Pool executes dispatched jobs on a fixed number of workers in-process. It is
// the dispatcher used when no message broker is configured and doubles as the
// explicit concurrency cap on simultaneous worker processes.
type Pool struct {
	jobs   chan dto.GenerationMessage
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(ctx context.Context, numWorkers int, process func(ctx context.Context, msg dto.GenerationMessage) error) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{jobs: make(chan dto.GenerationMessage, numWorkers)}
	for i := 1; i <= numWorkers; i++ {
		p.wg.Add(1)
		go func(workerId int) {
			defer p.wg.Done()
			for msg := range p.jobs {
				if err := process(ctx, msg); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).
						Int("worker", workerId).
						Str("job_id", msg.JobId.String()).
						Msg("failed to process job")
				}
			}
		}(i)
	}
	return p
}

// Dispatch enqueues the message; it blocks only when every worker is busy and
// the buffer is full, backpressuring submissions instead of spawning unbounded
// goroutines. The read lock is held across the send so Close cannot close the
// channel underneath an in-flight submission.
func (p *Pool) Dispatch(ctx context.Context, msg dto.GenerationMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains in-flight jobs and waits for the workers to finish. Dispatch
// calls that arrive afterwards get ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

var _ Dispatcher = (*Pool)(nil)
