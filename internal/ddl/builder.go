// Package ddl builds SQL statements for dynamically grown sink tables.
//
// Sink tables have no fixed schema: columns appear as incoming datasets
// introduce them. Every column is created nullable and text-capable so
// reconciliation stays strictly additive.
package ddl

import (
	"fmt"
	"strings"
)

// dynamicColumnType is the permissive type used for every reconciler-created
// column. TEXT affinity accepts any scalar in both SQLite and DuckDB.
const dynamicColumnType = "TEXT"

// CreateTable returns a CREATE TABLE statement with one nullable TEXT-capable
// column per name: CREATE TABLE "t" ("a" TEXT, "b" TEXT).
func CreateTable(table string, columns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	colDefs := make([]string, 0, len(columns))
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		colDefs = append(colDefs, fmt.Sprintf("%s %s", QuoteIdentifier(c), dynamicColumnType))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(table), strings.Join(colDefs, ", ")), nil
}

// AddColumn returns an ALTER TABLE statement adding one nullable column:
// ALTER TABLE "t" ADD COLUMN "c" TEXT.
func AddColumn(table, column string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if err := ValidateIdentifier(column); err != nil {
		return "", fmt.Errorf("invalid column name %q: %w", column, err)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		QuoteIdentifier(table), QuoteIdentifier(column), dynamicColumnType), nil
}

// InsertRow returns a parameterized INSERT statement for the given column
// order: INSERT INTO "t" ("a", "b") VALUES (?, ?).
func InsertRow(table string, columns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		quoted = append(quoted, QuoteIdentifier(c))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(table), strings.Join(quoted, ", "), placeholders), nil
}

// SelectAll returns SELECT * FROM "t".
func SelectAll(table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return fmt.Sprintf("SELECT * FROM %s", QuoteIdentifier(table)), nil
}

// DeleteAll returns DELETE FROM "t".
func DeleteAll(table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s", QuoteIdentifier(table)), nil
}
