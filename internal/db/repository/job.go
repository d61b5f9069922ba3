package repository

import (
	"context"
	"database/sql"
	"time"

	"tabsink/internal/domain"
)

var _ domain.IngestionJobRepository = (*IngestionJobRepo)(nil)

// IngestionJobRepo stores ingestion job lifecycle state in SQLite.
type IngestionJobRepo struct {
	db *sql.DB
}

// NewIngestionJobRepo creates a new IngestionJobRepo.
func NewIngestionJobRepo(db *sql.DB) *IngestionJobRepo {
	return &IngestionJobRepo{db: db}
}

// Create inserts a new job in the queued state.
func (r *IngestionJobRepo) Create(ctx context.Context, job *domain.IngestionJob) (*domain.IngestionJob, error) {
	if job == nil {
		return nil, domain.ErrValidation("ingestion job is required")
	}
	if job.ID == "" {
		job.ID = domain.NewID()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingestion_jobs (id, subject_id, table_name, source_kind, status)
		VALUES (?, ?, ?, ?, ?)
	`, job.ID, job.SubjectID, job.TableName, string(job.SourceKind), string(job.Status))
	if err != nil {
		return nil, mapDBError(err)
	}

	return r.GetByID(ctx, job.ID)
}

// GetByID returns a job by ID.
func (r *IngestionJobRepo) GetByID(ctx context.Context, id string) (*domain.IngestionJob, error) {
	var job domain.IngestionJob
	var sourceKind, status string
	var errMsg sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_id, table_name, source_kind, status, row_count,
		       error_message, created_at, updated_at
		FROM ingestion_jobs WHERE id = ?
	`, id).Scan(
		&job.ID, &job.SubjectID, &job.TableName, &sourceKind, &status,
		&job.RowCount, &errMsg, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	job.SourceKind = domain.SourceKind(sourceKind)
	job.Status = domain.JobStatus(status)
	job.ErrorMessage = errMsg.String
	return &job, nil
}

// SetStatus persists a stage transition.
func (r *IngestionJobRepo) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	return r.update(ctx, `
		UPDATE ingestion_jobs
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), id)
}

// MarkDenied records an authorization refusal verbatim.
func (r *IngestionJobRepo) MarkDenied(ctx context.Context, id, reason string) error {
	return r.update(ctx, `
		UPDATE ingestion_jobs
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.JobStatusDenied), reason, id)
}

// MarkFailed records a terminal failure with its message.
func (r *IngestionJobRepo) MarkFailed(ctx context.Context, id, message string) error {
	return r.update(ctx, `
		UPDATE ingestion_jobs
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.JobStatusFailed), message, id)
}

// MarkCompleted records success and the loaded row count.
func (r *IngestionJobRepo) MarkCompleted(ctx context.Context, id string, rowCount int) error {
	return r.update(ctx, `
		UPDATE ingestion_jobs
		SET status = ?, row_count = ?, error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.JobStatusCompleted), rowCount, id)
}

// ListStale returns non-terminal jobs whose last transition is older than the
// cutoff. The reaper re-enqueues them after a worker crash.
func (r *IngestionJobRepo) ListStale(ctx context.Context, olderThan time.Time) ([]domain.IngestionJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, table_name, source_kind, status, row_count,
		       error_message, created_at, updated_at
		FROM ingestion_jobs
		WHERE status NOT IN (?, ?, ?) AND updated_at < ?
		ORDER BY updated_at
	`, string(domain.JobStatusCompleted), string(domain.JobStatusDenied),
		string(domain.JobStatusFailed), olderThan.UTC())
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var jobs []domain.IngestionJob
	for rows.Next() {
		var job domain.IngestionJob
		var sourceKind, status string
		var errMsg sql.NullString
		if err := rows.Scan(
			&job.ID, &job.SubjectID, &job.TableName, &sourceKind, &status,
			&job.RowCount, &errMsg, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		job.SourceKind = domain.SourceKind(sourceKind)
		job.Status = domain.JobStatus(status)
		job.ErrorMessage = errMsg.String
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *IngestionJobRepo) update(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("ingestion job not found")
	}
	return nil
}
