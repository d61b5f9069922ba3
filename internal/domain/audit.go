package domain

import "time"

// Audit entry statuses.
const (
	AuditStatusAllowed = "ALLOWED"
	AuditStatusDenied  = "DENIED"
	AuditStatusError   = "ERROR"
)

// AuditEntry records one completed or refused operation for observability.
type AuditEntry struct {
	ID          int64
	SubjectName string
	Action      string
	Status      string
	Detail      string
	CreatedAt   time.Time
}

// AuditFilter narrows audit listings. Nil fields mean "no filter".
type AuditFilter struct {
	SubjectName *string
	Action      *string
	Status      *string
	Page        PageRequest
}
