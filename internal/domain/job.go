package domain

import "time"

// JobStatus tracks an ingestion job through its state machine. Every
// transition is persisted before the next stage begins, so a crash leaves
// the job in the last completed stage rather than silently lost.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusAuthorizing JobStatus = "authorizing"
	JobStatusExtracting  JobStatus = "extracting"
	JobStatusReconciling JobStatus = "reconciling"
	JobStatusLoading     JobStatus = "loading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusDenied      JobStatus = "denied"
	JobStatusFailed      JobStatus = "failed"
)

// Terminal reports whether the status is a sink state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusDenied || s == JobStatusFailed
}

// SourceKind declares where an ingestion job's data comes from.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceAPI  SourceKind = "api"
)

// IngestionJob is one tracked unit of ingestion work from submission to
// terminal status. It is owned exclusively by the orchestrator that runs it;
// status reads by pollers see the last persisted state.
type IngestionJob struct {
	ID           string
	SubjectID    string
	TableName    string
	SourceKind   SourceKind
	Status       JobStatus
	RowCount     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UploadRecord is the per-subject/table metadata row tracking the latest
// load. At most one record exists per subject+table pairing; repeat loads
// update the row count in place.
type UploadRecord struct {
	ID        string
	SubjectID string
	TableName string
	RowCount  int
	UpdatedAt time.Time
}
