// Package ingestion implements the ingestion pipeline: schema
// reconciliation, the per-job state machine, and asynchronous execution.
package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tabsink/internal/ddl"
	"tabsink/internal/domain"
)

// Reconciler grows a sink table's column set to accommodate incoming data
// without data loss. Growth is strictly additive: columns are never removed
// or retyped, and repeated reconciliation with the same or a subset of
// columns is a no-op beyond the initial create.
type Reconciler struct {
	sink   domain.Sink
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]*sync.Mutex
}

// NewReconciler creates a Reconciler over the given sink.
func NewReconciler(sink domain.Sink, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		sink:   sink,
		logger: logger,
		tables: make(map[string]*sync.Mutex),
	}
}

// tableLock returns the mutex serializing schema changes for one table.
func (r *Reconciler) tableLock(table string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.tables[table]
	if !ok {
		lock = &sync.Mutex{}
		r.tables[table] = lock
	}
	return lock
}

// Reconcile aligns the dataset's columns with the table, creating the table
// or adding missing columns as needed, and returns the dataset projected
// onto the table's authoritative post-reconciliation column set. Individual
// column-add failures are logged and skipped; only a total inability to
// establish any usable column set is fatal.
//
// The per-table lock is held for the whole read-modify-write so concurrent
// jobs targeting the same table cannot race the create path or duplicate
// column additions.
func (r *Reconciler) Reconcile(ctx context.Context, table string, ds *domain.Dataset) (*domain.Dataset, error) {
	lock := r.tableLock(table)
	lock.Lock()
	defer lock.Unlock()

	usable := r.usableColumns(table, ds.Columns)
	if len(usable) == 0 {
		return nil, domain.ErrSchema("no usable columns for table %q", table)
	}

	current, err := r.sink.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	if len(current) == 0 {
		if err := r.sink.CreateTable(ctx, table, usable); err != nil {
			// Lost a create race with another process; fall through to the
			// additive path against the now-existing table.
			if !isDuplicateTable(err) {
				return nil, err
			}
			current, err = r.sink.ListColumns(ctx, table)
			if err != nil {
				return nil, err
			}
		}
	}

	known := make(map[string]bool, len(current))
	for _, c := range current {
		known[c] = true
	}
	for _, col := range usable {
		if known[col] {
			continue
		}
		if err := r.sink.AddColumn(ctx, table, col); err != nil {
			// Best-effort growth: never roll back columns already added.
			r.logger.Warn("could not add column", "table", table, "column", col, "error", err)
		}
	}

	// Re-read after the attempted additions; some may have failed, so this
	// is the authoritative column set.
	final, err := r.sink.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(final) == 0 {
		return nil, domain.ErrSchema("table %q has no columns after reconciliation", table)
	}

	keep := make(map[string]bool, len(final))
	for _, c := range final {
		keep[c] = true
	}
	projected := ds.Project(keep)
	if len(projected.Columns) == 0 {
		return nil, domain.ErrSchema("no dataset column survived reconciliation against table %q", table)
	}
	return projected, nil
}

// usableColumns filters out column names that can never exist in the sink.
// Unusable names are logged and dropped, mirroring the best-effort handling
// of column-add failures.
func (r *Reconciler) usableColumns(table string, columns []string) []string {
	usable := make([]string, 0, len(columns))
	for _, c := range columns {
		if err := ddl.ValidateIdentifier(c); err != nil {
			r.logger.Warn("dropping unusable column name", "table", table, "column", c, "error", err)
			continue
		}
		usable = append(usable, c)
	}
	return usable
}

func isDuplicateTable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists")
}
