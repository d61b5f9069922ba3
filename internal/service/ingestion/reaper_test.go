//go:build integration

package ingestion

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsink/internal/domain"
)

// recordingQueue captures submitted job IDs instead of running them.
type recordingQueue struct {
	ids []string
}

func (q *recordingQueue) Submit(jobID string) error {
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *recordingQueue) Close() error { return nil }

func TestReaperSweep_ReenqueuesStaleJobs(t *testing.T) {
	f := setupIngestion(t)
	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	stuck, err := f.jobs.Create(ctx, &domain.IngestionJob{
		SubjectID:  uploader.ID,
		TableName:  "people",
		SourceKind: domain.SourceFile,
	})
	require.NoError(t, err)
	require.NoError(t, f.jobs.SetStatus(ctx, stuck.ID, domain.JobStatusLoading))

	done, err := f.jobs.Create(ctx, &domain.IngestionJob{
		SubjectID:  uploader.ID,
		TableName:  "people",
		SourceKind: domain.SourceFile,
	})
	require.NoError(t, err)
	require.NoError(t, f.jobs.MarkCompleted(ctx, done.ID, 1))

	queue := &recordingQueue{}
	// A negative staleness window puts the cutoff in the future, so every
	// non-terminal job counts as stale without sleeping in the test.
	reaper := NewReaper(f.jobs, queue, -time.Minute, testLogger())

	reaper.Sweep()

	assert.Equal(t, []string{stuck.ID}, queue.ids)
}

func TestReaperSweep_NothingStale(t *testing.T) {
	f := setupIngestion(t)
	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	fresh, err := f.jobs.Create(ctx, &domain.IngestionJob{
		SubjectID:  uploader.ID,
		TableName:  "people",
		SourceKind: domain.SourceFile,
	})
	require.NoError(t, err)
	_ = fresh

	queue := &recordingQueue{}
	reaper := NewReaper(f.jobs, queue, time.Hour, testLogger())

	reaper.Sweep()

	assert.Empty(t, queue.ids)
}

func TestReaper_StartStop(t *testing.T) {
	f := setupIngestion(t)

	reaper := NewReaper(f.jobs, &recordingQueue{}, time.Hour, testLogger())
	require.NoError(t, reaper.Start())
	reaper.Stop()
}
