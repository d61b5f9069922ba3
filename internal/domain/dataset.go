package domain

import (
	"strconv"
	"time"
)

// ValueKind is the closed set of scalar kinds a dataset cell can hold.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindTimestamp
)

// Value is a single loosely-typed dataset cell.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
}

// Text returns a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue returns a numeric value.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// TimeValue returns a timestamp value.
func TimeValue(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t} }

// NullValue returns the null value.
func NullValue() Value { return Value{Kind: KindNull} }

// SQLArg converts the value to a driver-compatible argument.
func (v Value) SQLArg() interface{} {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindTimestamp:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

// String renders the value for display and CSV round-trips.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTimestamp:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Row maps column names to cell values.
type Row map[string]Value

// Dataset is an ordered sequence of rows sharing one column set. It is
// produced by the sniffer or the API fetcher, consumed once by the
// reconciler and loader, then discarded.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// AddColumn appends a synthetic column and sets value on every row.
// Existing columns with the same name are overwritten in place.
func (d *Dataset) AddColumn(name string, value Value) {
	if !d.HasColumn(name) {
		d.Columns = append(d.Columns, name)
	}
	for _, row := range d.Rows {
		row[name] = value
	}
}

// HasColumn reports whether the dataset carries the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Project returns a dataset restricted to the columns present in keep,
// preserving column order and dropping cells for removed columns.
// Rows are never dropped.
func (d *Dataset) Project(keep map[string]bool) *Dataset {
	columns := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if keep[c] {
			columns = append(columns, c)
		}
	}

	rows := make([]Row, len(d.Rows))
	for i, row := range d.Rows {
		projected := make(Row, len(columns))
		for _, c := range columns {
			if v, ok := row[c]; ok {
				projected[c] = v
			}
		}
		rows[i] = projected
	}

	return &Dataset{Columns: columns, Rows: rows}
}
