package repository

import (
	"context"
	"database/sql"

	"tabsink/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo stores audit entries in SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e == nil {
		return domain.ErrValidation("audit entry is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (subject_name, action, status, detail)
		VALUES (?, ?, ?, ?)
	`, e.SubjectName, e.Action, e.Status, e.Detail)
	return mapDBError(err)
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	where := `
		WHERE (? IS NULL OR subject_name = ?)
		  AND (? IS NULL OR action = ?)
		  AND (? IS NULL OR status = ?)
	`
	args := []interface{}{
		nullable(filter.SubjectName), stringOrEmpty(filter.SubjectName),
		nullable(filter.Action), stringOrEmpty(filter.Action),
		nullable(filter.Status), stringOrEmpty(filter.Status),
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	listArgs := append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_name, action, status, detail, created_at
		FROM audit_log`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, listArgs...)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.SubjectName, &e.Action, &e.Status, &detail, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
