// Package sink adapts a SQL database into the dynamic-table store the
// reconciler and loader write to. Works against any database/sql driver
// whose dialect accepts quoted identifiers and ALTER TABLE ADD COLUMN
// (SQLite and DuckDB are the supported drivers).
package sink

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tabsink/internal/ddl"
	"tabsink/internal/domain"
)

var _ domain.Sink = (*SQLSink)(nil)

// SQLSink implements domain.Sink over a *sql.DB handle. The handle's
// lifecycle is owned by the process entry point, not by the sink.
type SQLSink struct {
	db *sql.DB
}

// New creates a SQLSink over the given connection handle.
func New(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

// ListColumns returns the current column set of a table, or an empty slice
// when the table does not exist.
func (s *SQLSink) ListColumns(ctx context.Context, table string) ([]string, error) {
	query, err := ddl.SelectAll(table)
	if err != nil {
		return nil, domain.ErrSink("%s", err.Error())
	}

	rows, err := s.db.QueryContext(ctx, query+" LIMIT 0")
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, domain.ErrSink("list columns for %q: %s", table, err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrSink("read columns for %q: %s", table, err.Error())
	}
	return columns, rows.Err()
}

// CreateTable creates a table with one nullable TEXT-capable column per name.
func (s *SQLSink) CreateTable(ctx context.Context, table string, columns []string) error {
	stmt, err := ddl.CreateTable(table, columns)
	if err != nil {
		return domain.ErrSink("%s", err.Error())
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return domain.ErrSink("create table %q: %s", table, err.Error())
	}
	return nil
}

// AddColumn adds one nullable column to an existing table.
func (s *SQLSink) AddColumn(ctx context.Context, table, column string) error {
	stmt, err := ddl.AddColumn(table, column)
	if err != nil {
		return domain.ErrSink("%s", err.Error())
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return domain.ErrSink("add column %q to %q: %s", column, table, err.Error())
	}
	return nil
}

// AppendRows inserts every dataset row inside one transaction. The dataset
// must already be projected onto the table's column set.
func (s *SQLSink) AppendRows(ctx context.Context, table string, ds *domain.Dataset) error {
	if ds == nil || len(ds.Rows) == 0 {
		return nil
	}

	stmt, err := ddl.InsertRow(table, ds.Columns)
	if err != nil {
		return domain.ErrSink("%s", err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrSink("begin append to %q: %s", table, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return domain.ErrSink("prepare append to %q: %s", table, err.Error())
	}
	defer prepared.Close()

	args := make([]interface{}, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			args[i] = row[col].SQLArg()
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return domain.ErrSink("append row to %q: %s", table, err.Error())
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrSink("commit append to %q: %s", table, err.Error())
	}
	return nil
}

// SelectAll reads the full contents of a table back as a dataset.
func (s *SQLSink) SelectAll(ctx context.Context, table string) (*domain.Dataset, error) {
	query, err := ddl.SelectAll(table)
	if err != nil {
		return nil, domain.ErrSink("%s", err.Error())
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if isMissingTable(err) {
			return nil, domain.ErrNotFound("table %q not found", table)
		}
		return nil, domain.ErrSink("select from %q: %s", table, err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrSink("read columns for %q: %s", table, err.Error())
	}

	ds := &domain.Dataset{Columns: columns}
	for rows.Next() {
		cells := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrSink("scan row from %q: %s", table, err.Error())
		}

		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = cellValue(cells[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrSink("iterate %q: %s", table, err.Error())
	}
	return ds, nil
}

// DeleteAll removes every row of a table. A missing table is a no-op: the
// caller is clearing contents, not asserting existence.
func (s *SQLSink) DeleteAll(ctx context.Context, table string) error {
	stmt, err := ddl.DeleteAll(table)
	if err != nil {
		return domain.ErrSink("%s", err.Error())
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		if isMissingTable(err) {
			return nil
		}
		return domain.ErrSink("delete from %q: %s", table, err.Error())
	}
	return nil
}

// cellValue converts a driver-returned cell into a domain value.
func cellValue(cell interface{}) domain.Value {
	switch v := cell.(type) {
	case nil:
		return domain.NullValue()
	case []byte:
		return domain.TextValue(string(v))
	case string:
		return domain.TextValue(v)
	case int64:
		return domain.NumberValue(float64(v))
	case float64:
		return domain.NumberValue(v)
	case bool:
		return domain.BoolValue(v)
	case time.Time:
		return domain.TimeValue(v)
	default:
		return domain.NullValue()
	}
}

// isMissingTable detects the missing-table error text of the supported drivers.
func isMissingTable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist")
}
