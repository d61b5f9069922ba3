package sniff

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabsink/internal/domain"
)

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseCSV reads the input as comma-separated values with the first record
// as the header row. Records with a deviating field count fail the parse.
func parseCSV(data []byte) (*domain.Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	ds := &domain.Dataset{Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = inferValue(record[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// parseJSON accepts an array of flat objects or a single object (one row).
// Nested values are re-serialized as JSON text.
func parseJSON(data []byte) (*domain.Dataset, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after json document")
	}

	var objects []map[string]interface{}
	switch v := raw.(type) {
	case []interface{}:
		for i, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("json array element %d is not an object", i)
			}
			objects = append(objects, obj)
		}
	case map[string]interface{}:
		objects = append(objects, v)
	default:
		return nil, fmt.Errorf("json document is not an object or array of objects")
	}

	return datasetFromObjects(objects)
}

// datasetFromObjects builds a dataset from decoded JSON objects, with the
// column set being the union of keys in first-seen order.
func datasetFromObjects(objects []map[string]interface{}) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	seen := map[string]bool{}
	for _, obj := range objects {
		row := make(domain.Row, len(obj))
		for key, val := range obj {
			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
			row[key] = jsonValue(val)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func jsonValue(v interface{}) domain.Value {
	switch t := v.(type) {
	case nil:
		return domain.NullValue()
	case string:
		return domain.TextValue(t)
	case bool:
		return domain.BoolValue(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return domain.NumberValue(f)
		}
		return domain.TextValue(t.String())
	case float64:
		return domain.NumberValue(t)
	default:
		// Nested object or array: keep it as JSON text.
		raw, err := json.Marshal(t)
		if err != nil {
			return domain.NullValue()
		}
		return domain.TextValue(string(raw))
	}
}

// xmlRow is one repeated child element of the document element; its child
// elements become columns.
type xmlRow struct {
	cells map[string]string
	order []string
}

// parseXML treats repeated children of the document element as rows and
// their child elements as columns: <data><row><name>x</name></row></data>.
func parseXML(data []byte) (*domain.Dataset, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	root, err := nextStartElement(decoder)
	if err != nil {
		return nil, fmt.Errorf("decode xml root: %w", err)
	}
	_ = root

	var rows []xmlRow
	for {
		rowStart, err := nextStartElement(decoder)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml row: %w", err)
		}

		row, err := decodeXMLRow(decoder, rowStart)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	ds := &domain.Dataset{}
	seen := map[string]bool{}
	for _, r := range rows {
		domRow := make(domain.Row, len(r.cells))
		for _, col := range r.order {
			if !seen[col] {
				seen[col] = true
				ds.Columns = append(ds.Columns, col)
			}
			domRow[col] = inferValue(r.cells[col])
		}
		ds.Rows = append(ds.Rows, domRow)
	}
	return ds, nil
}

func nextStartElement(decoder *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := decoder.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, io.EOF
		}
	}
}

func decodeXMLRow(decoder *xml.Decoder, start xml.StartElement) (xmlRow, error) {
	row := xmlRow{cells: map[string]string{}}
	for {
		tok, err := decoder.Token()
		if err != nil {
			return row, fmt.Errorf("decode xml cell: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text string
			if err := decoder.DecodeElement(&text, &t); err != nil {
				return row, fmt.Errorf("decode xml cell %q: %w", t.Name.Local, err)
			}
			if _, exists := row.cells[t.Name.Local]; !exists {
				row.order = append(row.order, t.Name.Local)
			}
			row.cells[t.Name.Local] = strings.TrimSpace(text)
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return row, nil
			}
		}
	}
}

// parseXLSX reads the first sheet of a spreadsheet with the first row as the
// header.
func parseXLSX(data []byte) (*domain.Dataset, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &domain.Dataset{}, nil
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = strings.TrimSpace(h)
	}

	ds := &domain.Dataset{Columns: columns}
	for _, record := range rows[1:] {
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = inferValue(record[i])
			} else {
				row[col] = domain.NullValue()
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}
