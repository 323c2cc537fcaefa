package dataquery

import "fmt"

// Result is the wire shape of execute_query's response, per spec §4.8:
// frame results carry rows/columns counts, series results carry a mapping,
// scalar results carry a stringified value — each tagged with its Type.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Type    string `json:"type,omitempty"`
}

func errResult(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

func frameResult(f *Frame) Result {
	records := make([]map[string]string, len(f.Rows))
	for i, r := range f.Rows {
		rec := make(map[string]string, len(f.Columns))
		for j, c := range f.Columns {
			if j < len(r) {
				rec[c] = r[j]
			}
		}
		records[i] = rec
	}
	rows, cols := f.Shape()
	return Result{Success: true, Result: records, Rows: rows, Columns: cols, Type: "frame"}
}

func seriesResult(v any) Result {
	return Result{Success: true, Result: v, Type: "series"}
}

func scalarResult(v string) Result {
	return Result{Success: true, Result: v, Type: "scalar"}
}
