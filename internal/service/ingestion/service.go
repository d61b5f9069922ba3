package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"tabsink/internal/ddl"
	"tabsink/internal/domain"
)

// maxAPICount bounds how many records one API ingestion may request.
const maxAPICount = 10000

// Service accepts ingestion submissions, validates and authorizes them
// before any sink or remote I/O, and hands accepted jobs to the queue.
type Service struct {
	orch   *Orchestrator
	queue  domain.Queue
	jobs   domain.IngestionJobRepository
	engine domain.PolicyEngine
	audit  domain.AuditRepository
	logger *slog.Logger
}

// NewService creates the ingestion submission service.
func NewService(
	orch *Orchestrator,
	queue domain.Queue,
	jobs domain.IngestionJobRepository,
	engine domain.PolicyEngine,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Service {
	return &Service{orch: orch, queue: queue, jobs: jobs, engine: engine, audit: audit, logger: logger}
}

// SubmitFile accepts a file upload for asynchronous ingestion into
// tableName and returns the job ID. Validation and authorization are
// resolved here, before any sink I/O: a denied submission produces a job
// already in the denied state plus an AccessDeniedError, and never touches
// the sink.
func (s *Service) SubmitFile(ctx context.Context, subject *domain.Subject, fileBytes []byte, tableName string) (string, error) {
	if len(fileBytes) == 0 {
		return "", domain.ErrValidation("file is required")
	}
	if err := ddl.ValidateIdentifier(tableName); err != nil {
		return "", domain.ErrValidation("invalid table name: %v", err)
	}

	return s.submit(ctx, subject, &domain.IngestionJob{
		SubjectID:  subject.ID,
		TableName:  tableName,
		SourceKind: domain.SourceFile,
	}, payload{data: fileBytes})
}

// SubmitAPI accepts a remote-API ingestion of count records into tableName.
func (s *Service) SubmitAPI(ctx context.Context, subject *domain.Subject, count int, tableName string) (string, error) {
	if count <= 0 || count > maxAPICount {
		return "", domain.ErrValidation("count must be between 1 and %d", maxAPICount)
	}
	if err := ddl.ValidateIdentifier(tableName); err != nil {
		return "", domain.ErrValidation("invalid table name: %v", err)
	}

	return s.submit(ctx, subject, &domain.IngestionJob{
		SubjectID:  subject.ID,
		TableName:  tableName,
		SourceKind: domain.SourceAPI,
	}, payload{count: count})
}

// submit records the job, short-circuits submissions the policy engine
// refuses, and enqueues the rest. The worker re-evaluates the decision in
// the Authorizing stage against a fresh policy read.
func (s *Service) submit(ctx context.Context, subject *domain.Subject, job *domain.IngestionJob, p payload) (string, error) {
	allowed, err := s.engine.Decide(ctx, subject, domain.ActionUpload, &domain.ResourceDescriptor{
		ResourceType: string(job.SourceKind),
	})
	if err != nil {
		return "", fmt.Errorf("authorize submission: %w", err)
	}

	created, err := s.jobs.Create(ctx, job)
	if err != nil {
		return "", err
	}

	if !allowed {
		reason := fmt.Sprintf("subject %q lacks the upload capability", subject.Name)
		if err := s.jobs.MarkDenied(ctx, created.ID, reason); err != nil {
			s.logger.Error("persist denial failed", "job_id", created.ID, "error", err)
		}
		_ = s.audit.Insert(ctx, &domain.AuditEntry{
			SubjectName: subject.Name,
			Action:      "INGEST_" + string(job.SourceKind),
			Status:      domain.AuditStatusDenied,
			Detail:      reason,
		})
		return created.ID, domain.ErrAccessDenied("%s", reason)
	}

	s.orch.payloads.Store(created.ID, p)
	if err := s.queue.Submit(created.ID); err != nil {
		s.orch.payloads.Delete(created.ID)
		if markErr := s.jobs.MarkFailed(ctx, created.ID, err.Error()); markErr != nil {
			s.logger.Error("persist failure failed", "job_id", created.ID, "error", markErr)
		}
		return created.ID, err
	}

	return created.ID, nil
}

// GetJobStatus returns the last persisted state of a job.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}
