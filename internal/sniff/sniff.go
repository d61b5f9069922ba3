// Package sniff detects the format of uploaded tabular data by trying
// candidate parsers in a fixed priority order.
package sniff

import (
	"time"

	"tabsink/internal/domain"
)

// Detected formats, in detection priority order.
const (
	FormatCSV         = "csv"
	FormatJSON        = "json"
	FormatXML         = "xml"
	FormatSpreadsheet = "xlsx"
)

// UploadedAtColumn is the synthetic column stamped onto every sniffed dataset.
const UploadedAtColumn = "uploaded_at"

type parser struct {
	format string
	parse  func([]byte) (*domain.Dataset, error)
}

// CSV is tried first intentionally: it is the most permissive parser and
// matches the most common case. A well-formed JSON or XML file that also
// happens to parse as a single-column CSV is misclassified as CSV; this
// ordering is a compatibility guarantee, not a defect.
var parsers = []parser{
	{FormatCSV, parseCSV},
	{FormatJSON, parseJSON},
	{FormatXML, parseXML},
	{FormatSpreadsheet, parseXLSX},
}

// Sniff tries each candidate parser in order and returns the first
// successfully parsed dataset with its detected format. The dataset gains a
// synthetic uploaded_at column (UTC). When every parser fails, the returned
// error is an UnreadableFormatError carrying the last parser's message; a
// successful parse with zero rows is an EmptyDatasetError.
func Sniff(data []byte) (*domain.Dataset, string, error) {
	return sniffAt(data, time.Now().UTC())
}

// sniffAt is Sniff with an injectable timestamp for tests.
func sniffAt(data []byte, now time.Time) (*domain.Dataset, string, error) {
	var lastErr error
	for _, p := range parsers {
		ds, err := p.parse(data)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ds.Rows) == 0 {
			return nil, "", domain.ErrEmptyDataset("file contains no data")
		}
		ds.AddColumn(UploadedAtColumn, domain.TimeValue(now))
		return ds, p.format, nil
	}
	return nil, "", domain.ErrUnreadableFormat("unsupported or unreadable file format, last error: %v", lastErr)
}

// inferValue maps a raw text cell onto the closed scalar kind set.
func inferValue(s string) domain.Value {
	if s == "" {
		return domain.NullValue()
	}
	if s == "true" || s == "false" {
		return domain.BoolValue(s == "true")
	}
	if f, err := parseNumber(s); err == nil {
		return domain.NumberValue(f)
	}
	return domain.TextValue(s)
}
