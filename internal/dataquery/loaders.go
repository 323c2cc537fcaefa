package dataquery

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadFile dispatches to the loader matching name's extension, per spec
// §4.8's supported file types.
func LoadFile(name string, data []byte) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return LoadCSV(data)
	case ".json":
		return LoadJSON(data)
	case ".xlsx", ".xls":
		return LoadExcel(data)
	default:
		return nil, fmt.Errorf("dataquery: unsupported file type %q", filepath.Ext(name))
	}
}

func LoadCSV(data []byte) (*Frame, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataquery: parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Frame{}, nil
	}
	return NewFrame(records[0], records[1:]), nil
}

// LoadJSON accepts an array of objects, a single object (one-row frame), or
// a single object whose values are themselves arrays (column-oriented).
func LoadJSON(data []byte) (*Frame, error) {
	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err == nil {
		return framFromRecords(arr), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("dataquery: parse json: %w", err)
	}
	if isColumnOriented(obj) {
		return frameFromColumns(obj), nil
	}
	return framFromRecords([]map[string]any{obj}), nil
}

func isColumnOriented(obj map[string]any) bool {
	for _, v := range obj {
		if _, ok := v.([]any); !ok {
			return false
		}
	}
	return len(obj) > 0
}

func frameFromColumns(obj map[string]any) *Frame {
	columns := sortedKeys(obj)
	maxLen := 0
	cols := make(map[string][]any, len(columns))
	for _, c := range columns {
		vals, _ := obj[c].([]any)
		cols[c] = vals
		if len(vals) > maxLen {
			maxLen = len(vals)
		}
	}
	rows := make([][]string, maxLen)
	for i := range rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			vals := cols[c]
			if i < len(vals) {
				row[j] = stringifyJSON(vals[i])
			}
		}
		rows[i] = row
	}
	return &Frame{Columns: columns, Rows: rows}
}

func framFromRecords(records []map[string]any) *Frame {
	seen := map[string]bool{}
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			if v, ok := rec[c]; ok {
				row[j] = stringifyJSON(v)
			}
		}
		rows[i] = row
	}
	return &Frame{Columns: columns, Rows: rows}
}

func stringifyJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadExcel reads the first sheet of an .xlsx/.xls workbook.
func LoadExcel(data []byte) (*Frame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dataquery: open excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Frame{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("dataquery: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Frame{}, nil
	}
	return NewFrame(rows[0], rows[1:]), nil
}
