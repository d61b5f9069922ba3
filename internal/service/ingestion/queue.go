package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tabsink/internal/domain"
)

// WorkerPool runs ingestion jobs on a fixed set of workers fed by a
// bounded channel. Delivery is at least once: a job whose worker dies
// mid-run stays in its last persisted stage and is picked up again by
// the reaper.
type WorkerPool struct {
	orch   *Orchestrator
	jobs   chan string
	group  *errgroup.Group
	cancel context.CancelFunc
	once   sync.Once
	logger *slog.Logger

	// mu orders Submit sends against channel close so a late Submit
	// refuses instead of panicking.
	mu     sync.RWMutex
	closed bool
}

var _ domain.Queue = (*WorkerPool)(nil)

// NewWorkerPool starts workers goroutines draining the queue. depth is
// the number of accepted-but-unstarted jobs the pool will hold before
// Submit starts refusing.
func NewWorkerPool(orch *Orchestrator, workers, depth int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &WorkerPool{
		orch:   orch,
		jobs:   make(chan string, depth),
		group:  group,
		cancel: cancel,
		logger: logger.With("component", "worker_pool"),
	}

	for i := 0; i < workers; i++ {
		worker := i
		group.Go(func() error {
			p.logger.Debug("worker started", "worker", worker)
			for jobID := range p.jobs {
				p.orch.Run(ctx, jobID)
			}
			return nil
		})
	}

	return p
}

// Submit hands a job to the pool without blocking. A full queue and a
// closed pool are both reported as validation errors so callers can
// surface backpressure.
func (p *WorkerPool) Submit(jobID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrValidation("ingestion queue is shut down")
	}
	select {
	case p.jobs <- jobID:
		return nil
	default:
		return domain.ErrValidation("ingestion queue is full")
	}
}

// Close stops accepting jobs, drains the ones already queued, and waits
// for in-flight work to finish.
func (p *WorkerPool) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	err := p.group.Wait()
	p.cancel()
	return err
}

// SyncQueue runs each submitted job to completion on the caller's
// goroutine. It exists for tests and for single-shot CLI use.
type SyncQueue struct {
	Orch *Orchestrator
}

var _ domain.Queue = (*SyncQueue)(nil)

func (q *SyncQueue) Submit(jobID string) error {
	q.Orch.Run(context.Background(), jobID)
	return nil
}

func (q *SyncQueue) Close() error { return nil }
