package domain

import (
	"context"
	"time"
)

// SubjectRepository persists subjects and their organization memberships.
type SubjectRepository interface {
	Create(ctx context.Context, s *Subject) (*Subject, error)
	GetByID(ctx context.Context, id string) (*Subject, error)
	GetByName(ctx context.Context, name string) (*Subject, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Subject, error)
	SetAPIKey(ctx context.Context, id, apiKey string) error
	List(ctx context.Context, page PageRequest) ([]Subject, int64, error)
	Delete(ctx context.Context, id string) error
	AddOrganization(ctx context.Context, subjectID, orgID string) error
	GetOrganizations(ctx context.Context, subjectID string) ([]string, error)
}

// OrganizationRepository persists organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
	List(ctx context.Context, page PageRequest) ([]Organization, int64, error)
}

// PolicyRepository is the durable capability store. Get returns NotFoundError
// when no policy exists; Upsert enforces the one-policy-per-subject invariant
// at write time.
type PolicyRepository interface {
	Get(ctx context.Context, subjectID string) (*Policy, error)
	Upsert(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, subjectID string) error
}

// IngestionJobRepository persists job state transitions.
type IngestionJobRepository interface {
	Create(ctx context.Context, job *IngestionJob) (*IngestionJob, error)
	GetByID(ctx context.Context, id string) (*IngestionJob, error)
	SetStatus(ctx context.Context, id string, status JobStatus) error
	MarkDenied(ctx context.Context, id, reason string) error
	MarkFailed(ctx context.Context, id, message string) error
	MarkCompleted(ctx context.Context, id string, rowCount int) error
	ListStale(ctx context.Context, olderThan time.Time) ([]IngestionJob, error)
}

// UploadRecordRepository tracks the latest load per subject+table pairing.
type UploadRecordRepository interface {
	Upsert(ctx context.Context, subjectID, tableName string, rowCount int) error
	ListByTable(ctx context.Context, tableName string) ([]UploadRecord, error)
	Delete(ctx context.Context, subjectID, tableName string) error
}

// AuditRepository receives one record per completed, denied, or failed operation.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// Sink is the relational store tables are ingested into. Implementations
// wrap failures in SinkError.
type Sink interface {
	ListColumns(ctx context.Context, table string) ([]string, error)
	CreateTable(ctx context.Context, table string, columns []string) error
	AddColumn(ctx context.Context, table, column string) error
	AppendRows(ctx context.Context, table string, ds *Dataset) error
	SelectAll(ctx context.Context, table string) (*Dataset, error)
	DeleteAll(ctx context.Context, table string) error
}

// PolicyEngine evaluates (subject, action, resource) against the policy
// store. Pure: safe to call concurrently and repeatedly.
type PolicyEngine interface {
	Decide(ctx context.Context, subject *Subject, action Action, resource *ResourceDescriptor) (bool, error)
	GetPermissions(ctx context.Context, subjectID string) (CapabilitySet, error)
}

// Fetcher extracts records from the remote API source in bounded batches.
type Fetcher interface {
	Fetch(ctx context.Context, count int) (*Dataset, error)
}

// Queue accepts ingestion job IDs for asynchronous execution. Submit never
// blocks on job execution.
type Queue interface {
	Submit(jobID string) error
	Close() error
}
