package repository

import (
	"context"
	"database/sql"

	"tabsink/internal/domain"
)

var _ domain.UploadRecordRepository = (*UploadRecordRepo)(nil)

// UploadRecordRepo tracks the latest load per subject+table pairing.
type UploadRecordRepo struct {
	db *sql.DB
}

// NewUploadRecordRepo creates a new UploadRecordRepo.
func NewUploadRecordRepo(db *sql.DB) *UploadRecordRepo {
	return &UploadRecordRepo{db: db}
}

// Upsert writes the row count for a subject+table pairing, updating the
// existing record rather than creating a duplicate.
func (r *UploadRecordRepo) Upsert(ctx context.Context, subjectID, tableName string, rowCount int) error {
	if subjectID == "" || tableName == "" {
		return domain.ErrValidation("subject id and table name are required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_records (id, subject_id, table_name, row_count, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (subject_id, table_name) DO UPDATE SET
			row_count = excluded.row_count,
			updated_at = CURRENT_TIMESTAMP
	`, domain.NewID(), subjectID, tableName, rowCount)
	return mapDBError(err)
}

// ListByTable returns every upload record for a table. Used to resolve which
// subjects own a table's rows for organization-scoped reads.
func (r *UploadRecordRepo) ListByTable(ctx context.Context, tableName string) ([]domain.UploadRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, table_name, row_count, updated_at
		FROM upload_records WHERE table_name = ?
		ORDER BY updated_at DESC
	`, tableName)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var records []domain.UploadRecord
	for rows.Next() {
		var rec domain.UploadRecord
		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.TableName, &rec.RowCount, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the record for a subject+table pairing.
func (r *UploadRecordRepo) Delete(ctx context.Context, subjectID, tableName string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM upload_records WHERE subject_id = ? AND table_name = ?
	`, subjectID, tableName)
	return mapDBError(err)
}
