package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tabsink/internal/domain"
	"tabsink/internal/sniff"
)

// payload carries the per-submission inputs a worker needs that are not
// part of the durable job record: raw file bytes for file sources, the
// requested record count for API sources. Payloads live in process memory;
// a job re-executed after a process restart fails cleanly when its payload
// is gone rather than loading partial data.
type payload struct {
	data  []byte
	count int
}

// Orchestrator runs one ingestion job through its state machine:
// authorizing, extracting, reconciling, loading. Every transition is
// persisted before the next stage begins.
type Orchestrator struct {
	jobs       domain.IngestionJobRepository
	subjects   domain.SubjectRepository
	engine     domain.PolicyEngine
	reconciler *Reconciler
	sink       domain.Sink
	fetcher    domain.Fetcher
	uploads    domain.UploadRecordRepository
	audit      domain.AuditRepository
	logger     *slog.Logger

	payloads sync.Map // job ID → payload
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	jobs domain.IngestionJobRepository,
	subjects domain.SubjectRepository,
	engine domain.PolicyEngine,
	reconciler *Reconciler,
	sink domain.Sink,
	fetcher domain.Fetcher,
	uploads domain.UploadRecordRepository,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:       jobs,
		subjects:   subjects,
		engine:     engine,
		reconciler: reconciler,
		sink:       sink,
		fetcher:    fetcher,
		uploads:    uploads,
		audit:      audit,
		logger:     logger,
	}
}

// Run executes the state machine for one job to a terminal status. Errors
// are recorded on the job, never returned to the worker loop: a failed job
// must not take its worker down.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	defer o.payloads.Delete(jobID)

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		o.logger.Error("job lookup failed", "job_id", jobID, "error", err)
		return
	}
	if job.Status.Terminal() {
		return
	}

	subject, err := o.subjects.GetByID(ctx, job.SubjectID)
	if err != nil {
		o.fail(ctx, job, fmt.Sprintf("resolve subject: %v", err))
		return
	}

	// Authorizing. Denial is terminal, recorded verbatim, never retried.
	if err := o.jobs.SetStatus(ctx, job.ID, domain.JobStatusAuthorizing); err != nil {
		o.logger.Error("persist transition failed", "job_id", job.ID, "error", err)
		return
	}
	allowed, err := o.engine.Decide(ctx, subject, domain.ActionUpload, &domain.ResourceDescriptor{
		ResourceType: string(job.SourceKind),
	})
	if err != nil {
		o.fail(ctx, job, fmt.Sprintf("authorize: %v", err))
		return
	}
	if !allowed {
		reason := fmt.Sprintf("subject %q lacks the upload capability", subject.Name)
		if err := o.jobs.MarkDenied(ctx, job.ID, reason); err != nil {
			o.logger.Error("persist denial failed", "job_id", job.ID, "error", err)
		}
		o.logAudit(ctx, subject.Name, job, domain.AuditStatusDenied, reason)
		return
	}

	// Extracting.
	if err := o.jobs.SetStatus(ctx, job.ID, domain.JobStatusExtracting); err != nil {
		o.logger.Error("persist transition failed", "job_id", job.ID, "error", err)
		return
	}
	ds, err := o.extract(ctx, job)
	if err != nil {
		o.fail(ctx, job, err.Error())
		o.logAudit(ctx, subject.Name, job, domain.AuditStatusError, err.Error())
		return
	}

	// Reconciling.
	if err := o.jobs.SetStatus(ctx, job.ID, domain.JobStatusReconciling); err != nil {
		o.logger.Error("persist transition failed", "job_id", job.ID, "error", err)
		return
	}
	projected, err := o.reconciler.Reconcile(ctx, job.TableName, ds)
	if err != nil {
		o.fail(ctx, job, err.Error())
		o.logAudit(ctx, subject.Name, job, domain.AuditStatusError, err.Error())
		return
	}

	// Loading.
	if err := o.jobs.SetStatus(ctx, job.ID, domain.JobStatusLoading); err != nil {
		o.logger.Error("persist transition failed", "job_id", job.ID, "error", err)
		return
	}
	if err := o.sink.AppendRows(ctx, job.TableName, projected); err != nil {
		o.fail(ctx, job, err.Error())
		o.logAudit(ctx, subject.Name, job, domain.AuditStatusError, err.Error())
		return
	}

	rowCount := len(projected.Rows)
	if err := o.uploads.Upsert(ctx, subject.ID, job.TableName, rowCount); err != nil {
		o.logger.Warn("upload record upsert failed", "job_id", job.ID, "error", err)
	}
	if err := o.jobs.MarkCompleted(ctx, job.ID, rowCount); err != nil {
		o.logger.Error("persist completion failed", "job_id", job.ID, "error", err)
		return
	}
	o.logAudit(ctx, subject.Name, job, domain.AuditStatusAllowed,
		fmt.Sprintf("loaded %d row(s) into %q", rowCount, job.TableName))
}

// extract produces the dataset for the job's declared source kind.
func (o *Orchestrator) extract(ctx context.Context, job *domain.IngestionJob) (*domain.Dataset, error) {
	switch job.SourceKind {
	case domain.SourceFile:
		p, ok := o.payloads.Load(job.ID)
		if !ok {
			return nil, domain.ErrValidation("submission payload is no longer available")
		}
		ds, format, err := sniff.Sniff(p.(payload).data)
		if err != nil {
			return nil, err
		}
		o.logger.Info("detected upload format", "job_id", job.ID, "format", format)
		return ds, nil

	case domain.SourceAPI:
		if o.fetcher == nil {
			return nil, domain.ErrValidation("no API source is configured")
		}
		p, ok := o.payloads.Load(job.ID)
		if !ok {
			return nil, domain.ErrValidation("submission payload is no longer available")
		}
		return o.fetcher.Fetch(ctx, p.(payload).count)

	default:
		return nil, domain.ErrValidation("unknown source kind %q", job.SourceKind)
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.IngestionJob, message string) {
	if err := o.jobs.MarkFailed(ctx, job.ID, message); err != nil {
		o.logger.Error("persist failure failed", "job_id", job.ID, "error", err)
	}
}

func (o *Orchestrator) logAudit(ctx context.Context, subjectName string, job *domain.IngestionJob, status, detail string) {
	_ = o.audit.Insert(ctx, &domain.AuditEntry{
		SubjectName: subjectName,
		Action:      "INGEST_" + string(job.SourceKind),
		Status:      status,
		Detail:      detail,
	})
}
