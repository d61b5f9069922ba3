package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tabsink/internal/domain"
)

// Reaper periodically re-enqueues jobs that stalled in a non-terminal
// stage, typically after a crashed worker or process restart. Re-executed
// jobs restart from the Authorizing stage; file jobs whose in-memory
// payload did not survive the restart fail with a recorded reason instead
// of hanging forever.
type Reaper struct {
	cron       *cron.Cron
	jobs       domain.IngestionJobRepository
	queue      domain.Queue
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewReaper builds a reaper that considers a job stale once it has sat in
// a non-terminal stage for staleAfter.
func NewReaper(jobs domain.IngestionJobRepository, queue domain.Queue, staleAfter time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		cron:       cron.New(),
		jobs:       jobs,
		queue:      queue,
		staleAfter: staleAfter,
		logger:     logger.With("component", "reaper"),
	}
}

// Start schedules the sweep and begins running it in the background.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc("@every 1m", r.Sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Sweep re-enqueues every stale job it finds. Exported so tests and
// operators can trigger a pass directly.
func (r *Reaper) Sweep() {
	ctx := context.Background()
	cutoff := time.Now().Add(-r.staleAfter)

	stale, err := r.jobs.ListStale(ctx, cutoff)
	if err != nil {
		r.logger.Error("list stale jobs failed", "error", err)
		return
	}

	for _, job := range stale {
		if err := r.queue.Submit(job.ID); err != nil {
			r.logger.Warn("re-enqueue failed", "job_id", job.ID, "error", err)
			continue
		}
		r.logger.Info("re-enqueued stale job", "job_id", job.ID, "stage", job.Status)
	}
}
