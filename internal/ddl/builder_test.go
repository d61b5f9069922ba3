package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		want    string
		wantErr string
	}{
		{
			name:    "two_columns",
			table:   "people",
			columns: []string{"name", "age"},
			want:    `CREATE TABLE "people" ("name" TEXT, "age" TEXT)`,
		},
		{
			name:    "single_column",
			table:   "t",
			columns: []string{"uploaded_at"},
			want:    `CREATE TABLE "t" ("uploaded_at" TEXT)`,
		},
		{
			name:    "no_columns",
			table:   "t",
			columns: nil,
			wantErr: "at least one column",
		},
		{
			name:    "bad_table",
			table:   "my-table",
			columns: []string{"a"},
			wantErr: "invalid table name",
		},
		{
			name:    "bad_column",
			table:   "t",
			columns: []string{"a", "b c"},
			wantErr: "invalid column name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateTable(tt.table, tt.columns)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddColumn(t *testing.T) {
	got, err := AddColumn("people", "nickname")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "people" ADD COLUMN "nickname" TEXT`, got)

	_, err = AddColumn("people", "bad name")
	require.Error(t, err)
}

func TestInsertRow(t *testing.T) {
	got, err := InsertRow("people", []string{"name", "age", "uploaded_at"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "people" ("name", "age", "uploaded_at") VALUES (?, ?, ?)`, got)

	_, err = InsertRow("people", nil)
	require.Error(t, err)
}

func TestSelectAllAndDeleteAll(t *testing.T) {
	got, err := SelectAll("people")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "people"`, got)

	got, err = DeleteAll("people")
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "people"`, got)

	_, err = SelectAll("no good")
	require.Error(t, err)
}
