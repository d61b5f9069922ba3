package repository

import (
	"context"
	"database/sql"

	"tabsink/internal/domain"
)

var _ domain.PolicyRepository = (*PolicyRepo)(nil)

// PolicyRepo stores capability records in SQLite. subject_id is the primary
// key, so a subject can never accumulate more than one policy; Upsert makes
// repeat writes converge on a single record instead of failing.
type PolicyRepo struct {
	db *sql.DB
}

// NewPolicyRepo creates a new PolicyRepo.
func NewPolicyRepo(db *sql.DB) *PolicyRepo {
	return &PolicyRepo{db: db}
}

// Get returns the policy for a subject, NotFoundError when absent.
func (r *PolicyRepo) Get(ctx context.Context, subjectID string) (*domain.Policy, error) {
	var p domain.Policy
	var c domain.CapabilitySet
	err := r.db.QueryRowContext(ctx, `
		SELECT subject_id, can_upload, can_read, can_delete, can_read_all,
		       can_add_subject, can_delete_subject, can_set_policy, updated_at
		FROM policies WHERE subject_id = ?
	`, subjectID).Scan(
		&p.SubjectID, &c.Upload, &c.Read, &c.Delete, &c.ReadAll,
		&c.AddSubject, &c.DeleteSubject, &c.SetPolicy, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	p.Capabilities = c
	return &p, nil
}

// Upsert writes the policy for a subject, replacing any existing record.
func (r *PolicyRepo) Upsert(ctx context.Context, p *domain.Policy) error {
	if p == nil || p.SubjectID == "" {
		return domain.ErrValidation("policy subject id is required")
	}

	c := p.Capabilities
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO policies (subject_id, can_upload, can_read, can_delete, can_read_all,
		                      can_add_subject, can_delete_subject, can_set_policy, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (subject_id) DO UPDATE SET
			can_upload = excluded.can_upload,
			can_read = excluded.can_read,
			can_delete = excluded.can_delete,
			can_read_all = excluded.can_read_all,
			can_add_subject = excluded.can_add_subject,
			can_delete_subject = excluded.can_delete_subject,
			can_set_policy = excluded.can_set_policy,
			updated_at = CURRENT_TIMESTAMP
	`, p.SubjectID, c.Upload, c.Read, c.Delete, c.ReadAll,
		c.AddSubject, c.DeleteSubject, c.SetPolicy)
	return mapDBError(err)
}

// Delete removes the policy for a subject.
func (r *PolicyRepo) Delete(ctx context.Context, subjectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE subject_id = ?`, subjectID)
	return mapDBError(err)
}
