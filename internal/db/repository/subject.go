package repository

import (
	"context"
	"database/sql"

	"tabsink/internal/domain"
)

var _ domain.SubjectRepository = (*SubjectRepo)(nil)

// SubjectRepo stores subjects and organization memberships in SQLite.
type SubjectRepo struct {
	db *sql.DB
}

// NewSubjectRepo creates a new SubjectRepo.
func NewSubjectRepo(db *sql.DB) *SubjectRepo {
	return &SubjectRepo{db: db}
}

// Create inserts a new subject.
func (r *SubjectRepo) Create(ctx context.Context, s *domain.Subject) (*domain.Subject, error) {
	if s == nil {
		return nil, domain.ErrValidation("subject is required")
	}
	if s.ID == "" {
		s.ID = domain.NewID()
	}
	if s.Role == "" {
		s.Role = "user"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, role)
		VALUES (?, ?, ?)
	`, s.ID, s.Name, s.Role)
	if err != nil {
		return nil, mapDBError(err)
	}

	return r.GetByID(ctx, s.ID)
}

// GetByID returns a subject with its organization memberships resolved.
func (r *SubjectRepo) GetByID(ctx context.Context, id string) (*domain.Subject, error) {
	return r.getOne(ctx, `
		SELECT id, name, role, created_at FROM subjects WHERE id = ?
	`, id)
}

// GetByName returns a subject by unique name.
func (r *SubjectRepo) GetByName(ctx context.Context, name string) (*domain.Subject, error) {
	return r.getOne(ctx, `
		SELECT id, name, role, created_at FROM subjects WHERE name = ?
	`, name)
}

// GetByAPIKey resolves a subject from its API key. Used by the auth middleware.
func (r *SubjectRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Subject, error) {
	return r.getOne(ctx, `
		SELECT id, name, role, created_at FROM subjects WHERE api_key = ?
	`, apiKey)
}

// SetAPIKey stores the API key for a subject.
func (r *SubjectRepo) SetAPIKey(ctx context.Context, id, apiKey string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subjects SET api_key = ? WHERE id = ?
	`, apiKey, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("subject %q not found", id)
	}
	return nil
}

// List returns a paginated list of subjects.
func (r *SubjectRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Subject, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, created_at FROM subjects
		ORDER BY name LIMIT ? OFFSET ?
	`, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var subjects []domain.Subject
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		orgs, err := r.GetOrganizations(ctx, s.ID)
		if err != nil {
			return nil, 0, err
		}
		s.Organizations = orgs
		subjects = append(subjects, s)
	}
	return subjects, total, rows.Err()
}

// Delete removes a subject. Memberships and the policy cascade.
func (r *SubjectRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("subject %q not found", id)
	}
	return nil
}

// AddOrganization records a direct membership.
func (r *SubjectRepo) AddOrganization(ctx context.Context, subjectID, orgID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO subject_organizations (subject_id, organization_id)
		VALUES (?, ?)
	`, subjectID, orgID)
	return mapDBError(err)
}

// GetOrganizations returns the IDs of organizations the subject directly
// belongs to. Membership is not transitive.
func (r *SubjectRepo) GetOrganizations(ctx context.Context, subjectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT organization_id FROM subject_organizations
		WHERE subject_id = ? ORDER BY organization_id
	`, subjectID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		orgs = append(orgs, id)
	}
	return orgs, rows.Err()
}

func (r *SubjectRepo) getOne(ctx context.Context, query string, args ...interface{}) (*domain.Subject, error) {
	var s domain.Subject
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name, &s.Role, &s.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	orgs, err := r.GetOrganizations(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Organizations = orgs
	return &s, nil
}
