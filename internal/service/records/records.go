// Package records serves org-scoped reads and deletes of ingested tables.
package records

import (
	"context"
	"log/slog"

	"tabsink/internal/ddl"
	"tabsink/internal/domain"
)

// Service gates access to ingested table contents through the policy
// engine and the upload-record ownership metadata.
type Service struct {
	sink     domain.Sink
	engine   domain.PolicyEngine
	uploads  domain.UploadRecordRepository
	subjects domain.SubjectRepository
	audit    domain.AuditRepository
	logger   *slog.Logger
}

func NewService(
	sink domain.Sink,
	engine domain.PolicyEngine,
	uploads domain.UploadRecordRepository,
	subjects domain.SubjectRepository,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		sink:     sink,
		engine:   engine,
		uploads:  uploads,
		subjects: subjects,
		audit:    audit,
		logger:   logger.With("component", "records_service"),
	}
}

// ListAccessibleRecords returns the rows of table visible to subject.
// The read capability is required. Holders of read_all see every row;
// everyone else sees the table only when one of its uploading subjects
// shares an organization with them. Visibility is decided per table, not
// per row: ingested rows carry no owner column.
func (s *Service) ListAccessibleRecords(ctx context.Context, subject *domain.Subject, table string) (*domain.Dataset, error) {
	if err := ddl.ValidateIdentifier(table); err != nil {
		return nil, domain.ErrValidation("invalid table name: %v", err)
	}

	allowed, err := s.engine.Decide(ctx, subject, domain.ActionRead, &domain.ResourceDescriptor{ResourceType: "table"})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logAudit(ctx, subject.Name, "READ_RECORDS", domain.AuditStatusDenied, "table "+table)
		return nil, domain.ErrAccessDenied("subject %q lacks the read capability", subject.Name)
	}

	visible, err := s.tableVisible(ctx, subject, table)
	if err != nil {
		return nil, err
	}
	if !visible {
		return &domain.Dataset{}, nil
	}

	ds, err := s.sink.SelectAll(ctx, table)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, subject.Name, "READ_RECORDS", domain.AuditStatusAllowed, "table "+table)
	return ds, nil
}

// DeleteRecords removes the caller's contribution record for table and, when
// no other subject still owns an upload into it, clears the table itself.
// Requires the delete capability and visibility of the table.
func (s *Service) DeleteRecords(ctx context.Context, subject *domain.Subject, table string) error {
	if err := ddl.ValidateIdentifier(table); err != nil {
		return domain.ErrValidation("invalid table name: %v", err)
	}

	allowed, err := s.engine.Decide(ctx, subject, domain.ActionDelete, &domain.ResourceDescriptor{ResourceType: "table"})
	if err != nil {
		return err
	}
	if !allowed {
		s.logAudit(ctx, subject.Name, "DELETE_RECORDS", domain.AuditStatusDenied, "table "+table)
		return domain.ErrAccessDenied("subject %q lacks the delete capability", subject.Name)
	}

	visible, err := s.tableVisible(ctx, subject, table)
	if err != nil {
		return err
	}
	if !visible {
		return domain.ErrNotFound("no records found for table %q", table)
	}

	if err := s.uploads.Delete(ctx, subject.ID, table); err != nil {
		return err
	}

	remaining, err := s.uploads.ListByTable(ctx, table)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		if err := s.sink.DeleteAll(ctx, table); err != nil {
			return err
		}
	}

	s.logAudit(ctx, subject.Name, "DELETE_RECORDS", domain.AuditStatusAllowed, "table "+table)
	return nil
}

// tableVisible reports whether subject may see table. read_all bypasses
// the ownership scan; otherwise an owning subject must either be the
// caller or share an organization with them.
func (s *Service) tableVisible(ctx context.Context, subject *domain.Subject, table string) (bool, error) {
	readAll, err := s.engine.Decide(ctx, subject, domain.ActionReadAll, &domain.ResourceDescriptor{ResourceType: "table"})
	if err != nil {
		return false, err
	}
	if readAll {
		return true, nil
	}

	owners, err := s.uploads.ListByTable(ctx, table)
	if err != nil {
		return false, err
	}

	for _, rec := range owners {
		if rec.SubjectID == subject.ID {
			return true, nil
		}
		orgs, err := s.subjects.GetOrganizations(ctx, rec.SubjectID)
		if err != nil {
			s.logger.Warn("owner organization lookup failed", "subject_id", rec.SubjectID, "error", err)
			continue
		}
		for _, org := range orgs {
			if subject.MemberOf(org) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Service) logAudit(ctx context.Context, subjectName, action, status, detail string) {
	if err := s.audit.Insert(ctx, &domain.AuditEntry{
		SubjectName: subjectName,
		Action:      action,
		Status:      status,
		Detail:      detail,
	}); err != nil {
		s.logger.Error("audit write failed", "action", action, "error", err)
	}
}
