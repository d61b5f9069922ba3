package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_AddColumn(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"name"},
		Rows: []Row{
			{"name": TextValue("ada")},
			{"name": TextValue("grace")},
		},
	}

	stamp := TimeValue(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ds.AddColumn("uploaded_at", stamp)

	assert.Equal(t, []string{"name", "uploaded_at"}, ds.Columns)
	for _, row := range ds.Rows {
		assert.Equal(t, stamp, row["uploaded_at"])
	}

	// Adding again must not duplicate the column.
	ds.AddColumn("uploaded_at", stamp)
	assert.Equal(t, []string{"name", "uploaded_at"}, ds.Columns)
}

func TestDataset_Project(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"a", "b", "c"},
		Rows: []Row{
			{"a": NumberValue(1), "b": TextValue("x"), "c": BoolValue(true)},
			{"a": NumberValue(2), "b": TextValue("y"), "c": BoolValue(false)},
		},
	}

	got := ds.Project(map[string]bool{"a": true, "c": true})

	assert.Equal(t, []string{"a", "c"}, got.Columns)
	require.Len(t, got.Rows, 2)
	for _, row := range got.Rows {
		assert.Contains(t, row, "a")
		assert.Contains(t, row, "c")
		assert.NotContains(t, row, "b")
	}
}

func TestDataset_Project_NothingKept(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"a"},
		Rows:    []Row{{"a": TextValue("x")}},
	}

	got := ds.Project(map[string]bool{})
	assert.Empty(t, got.Columns)
	assert.Len(t, got.Rows, 1)
}

func TestValue_SQLArg(t *testing.T) {
	assert.Equal(t, "hi", TextValue("hi").SQLArg())
	assert.Equal(t, 3.5, NumberValue(3.5).SQLArg())
	assert.Equal(t, true, BoolValue(true).SQLArg())
	assert.Nil(t, NullValue().SQLArg())

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2026-01-02T03:04:05Z", TimeValue(ts).SQLArg())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "3.5", NumberValue(3.5).String())
	assert.Equal(t, "42", NumberValue(42).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "", NullValue().String())
}
