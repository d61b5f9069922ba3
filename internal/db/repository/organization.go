package repository

import (
	"context"
	"database/sql"

	"tabsink/internal/domain"
)

var _ domain.OrganizationRepository = (*OrganizationRepo)(nil)

// OrganizationRepo stores organizations in SQLite.
type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo creates a new OrganizationRepo.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

// Create inserts a new organization.
func (r *OrganizationRepo) Create(ctx context.Context, o *domain.Organization) (*domain.Organization, error) {
	if o == nil || o.Name == "" {
		return nil, domain.ErrValidation("organization name is required")
	}
	if o.ID == "" {
		o.ID = domain.NewID()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, location)
		VALUES (?, ?, ?)
	`, o.ID, o.Name, o.Location)
	if err != nil {
		return nil, mapDBError(err)
	}

	return r.GetByName(ctx, o.Name)
}

// GetByName returns an organization by unique name.
func (r *OrganizationRepo) GetByName(ctx context.Context, name string) (*domain.Organization, error) {
	var o domain.Organization
	var location sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, created_at FROM organizations WHERE name = ?
	`, name).Scan(&o.ID, &o.Name, &location, &o.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	o.Location = location.String
	return &o, nil
}

// List returns a paginated list of organizations.
func (r *OrganizationRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Organization, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, location, created_at FROM organizations
		ORDER BY name LIMIT ? OFFSET ?
	`, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var o domain.Organization
		var location sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &location, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		o.Location = location.String
		orgs = append(orgs, o)
	}
	return orgs, total, rows.Err()
}
