// Package dataquery implements C8: a per-agent cache of loaded tabular
// files plus a restricted expression evaluator that exposes a narrow,
// allow-listed subset of dataframe operations to agent tool calls.
package dataquery

import (
	"math"
	"sort"
	"strconv"
)

// Frame is a small columnar table. It intentionally implements only the
// operations named in the allow-list, not general dataframe semantics.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// NewFrame builds a Frame from a header row and data rows, padding short
// rows and truncating long ones so every row has exactly len(columns) cells.
func NewFrame(columns []string, rows [][]string) *Frame {
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		out[i] = row
	}
	return &Frame{Columns: append([]string(nil), columns...), Rows: out}
}

func (f *Frame) Shape() (rows, cols int) {
	return len(f.Rows), len(f.Columns)
}

func (f *Frame) colIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every cell in the named column, top to bottom.
func (f *Frame) Column(name string) ([]string, bool) {
	idx := f.colIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[idx]
	}
	return out, true
}

func (f *Frame) Head(n int) *Frame {
	if n <= 0 {
		n = 5
	}
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: f.Columns, Rows: append([][]string(nil), f.Rows[:n]...)}
}

func (f *Frame) Tail(n int) *Frame {
	if n <= 0 {
		n = 5
	}
	start := len(f.Rows) - n
	if start < 0 {
		start = 0
	}
	return &Frame{Columns: f.Columns, Rows: append([][]string(nil), f.Rows[start:]...)}
}

// isNumericColumn reports whether every non-empty cell in a column parses as a
// float, which is the only distinction our dtype inference draws.
func (f *Frame) isNumericColumn(idx int) bool {
	seen := false
	for _, r := range f.Rows {
		v := r[idx]
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// Dtypes classifies each column as "float64" or "object".
func (f *Frame) Dtypes() map[string]string {
	out := make(map[string]string, len(f.Columns))
	for i, c := range f.Columns {
		if f.isNumericColumn(i) {
			out[c] = "float64"
		} else {
			out[c] = "object"
		}
	}
	return out
}

func (f *Frame) numericValues(idx int) []float64 {
	var out []float64
	for _, r := range f.Rows {
		v := r[idx]
		if v == "" {
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Count returns, per column, the number of non-empty cells.
func (f *Frame) Count() map[string]int {
	out := make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		n := 0
		for _, r := range f.Rows {
			if r[i] != "" {
				n++
			}
		}
		out[c] = n
	}
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddev(vs []float64) float64 {
	if len(vs) < 2 {
		return math.NaN()
	}
	m := mean(vs)
	var acc float64
	for _, v := range vs {
		d := v - m
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(vs)-1))
}

func median(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func quantile(vs []float64, q float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Sum, Mean, Median, Max, Min, Std each reduce every numeric column to a
// single value, mirroring a series-of-columns reduction.
func (f *Frame) Sum() map[string]float64 {
	return f.reduceNumeric(func(vs []float64) float64 {
		var s float64
		for _, v := range vs {
			s += v
		}
		return s
	})
}

func (f *Frame) Mean() map[string]float64   { return f.reduceNumeric(mean) }
func (f *Frame) Median() map[string]float64 { return f.reduceNumeric(median) }
func (f *Frame) Std() map[string]float64    { return f.reduceNumeric(stddev) }

func (f *Frame) Max() map[string]float64 {
	return f.reduceNumeric(func(vs []float64) float64 {
		m := math.Inf(-1)
		for _, v := range vs {
			if v > m {
				m = v
			}
		}
		return m
	})
}

func (f *Frame) Min() map[string]float64 {
	return f.reduceNumeric(func(vs []float64) float64 {
		m := math.Inf(1)
		for _, v := range vs {
			if v < m {
				m = v
			}
		}
		return m
	})
}

func (f *Frame) reduceNumeric(fn func([]float64) float64) map[string]float64 {
	out := map[string]float64{}
	for i, c := range f.Columns {
		if !f.isNumericColumn(i) {
			continue
		}
		vs := f.numericValues(i)
		if len(vs) == 0 {
			continue
		}
		out[c] = fn(vs)
	}
	return out
}

// Describe mirrors pandas' describe(): count/mean/std/min/25%/50%/75%/max
// per numeric column.
func (f *Frame) Describe() map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	for i, c := range f.Columns {
		if !f.isNumericColumn(i) {
			continue
		}
		vs := f.numericValues(i)
		out[c] = map[string]float64{
			"count": float64(len(vs)),
			"mean":  mean(vs),
			"std":   stddev(vs),
			"min":   quantile(vs, 0),
			"25%":   quantile(vs, 0.25),
			"50%":   quantile(vs, 0.5),
			"75%":   quantile(vs, 0.75),
			"max":   quantile(vs, 1),
		}
	}
	return out
}

// IsNA/NotNA return a same-shaped Frame of "true"/"false" cells.
func (f *Frame) IsNA() *Frame  { return f.naMask(true) }
func (f *Frame) NotNA() *Frame { return f.naMask(false) }

func (f *Frame) naMask(isna bool) *Frame {
	rows := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		row := make([]string, len(r))
		for j, v := range r {
			empty := v == ""
			row[j] = strconv.FormatBool(empty == isna)
		}
		rows[i] = row
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

func (f *Frame) DropNA() *Frame {
	var rows [][]string
	for _, r := range f.Rows {
		complete := true
		for _, v := range r {
			if v == "" {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

func (f *Frame) FillNA(value string) *Frame {
	rows := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		row := append([]string(nil), r...)
		for j, v := range row {
			if v == "" {
				row[j] = value
			}
		}
		rows[i] = row
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

func (f *Frame) Unique(column string) ([]string, bool) {
	col, ok := f.Column(column)
	if !ok {
		return nil, false
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range col {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, true
}

func (f *Frame) NUnique() map[string]int {
	out := make(map[string]int, len(f.Columns))
	for _, c := range f.Columns {
		u, _ := f.Unique(c)
		out[c] = len(u)
	}
	return out
}

// ValueCounts counts occurrences of each distinct value in a column,
// descending by count.
func (f *Frame) ValueCounts(column string) ([]ValueCount, bool) {
	col, ok := f.Column(column)
	if !ok {
		return nil, false
	}
	counts := map[string]int{}
	order := []string{}
	for _, v := range col {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]ValueCount, len(order))
	for i, v := range order {
		out[i] = ValueCount{Value: v, Count: counts[v]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, true
}

type ValueCount struct {
	Value string
	Count int
}

func (f *Frame) SelectDtypes(kind string) *Frame {
	var cols []string
	var idx []int
	for i, c := range f.Columns {
		numeric := f.isNumericColumn(i)
		if (kind == "number" && numeric) || (kind == "object" && !numeric) {
			cols = append(cols, c)
			idx = append(idx, i)
		}
	}
	rows := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		row := make([]string, len(idx))
		for j, ci := range idx {
			row[j] = r[ci]
		}
		rows[i] = row
	}
	return &Frame{Columns: cols, Rows: rows}
}

func (f *Frame) SortValues(column string, ascending bool) (*Frame, bool) {
	idx := f.colIndex(column)
	if idx < 0 {
		return nil, false
	}
	rows := append([][]string(nil), f.Rows...)
	numeric := f.isNumericColumn(idx)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][idx], rows[j][idx]
		var less bool
		if numeric {
			na, _ := strconv.ParseFloat(a, 64)
			nb, _ := strconv.ParseFloat(b, 64)
			less = na < nb
		} else {
			less = a < b
		}
		if ascending {
			return less
		}
		return !less
	})
	return &Frame{Columns: f.Columns, Rows: rows}, true
}

func (f *Frame) Loc(start, end int) *Frame {
	return f.sliceRows(start, end)
}

func (f *Frame) ILoc(start, end int) *Frame {
	return f.sliceRows(start, end)
}

func (f *Frame) sliceRows(start, end int) *Frame {
	if start < 0 {
		start = 0
	}
	if end > len(f.Rows) || end < 0 {
		end = len(f.Rows)
	}
	if start > end {
		start = end
	}
	return &Frame{Columns: f.Columns, Rows: append([][]string(nil), f.Rows[start:end]...)}
}

func (f *Frame) Sample(n int, seed int64) *Frame {
	if n <= 0 || n > len(f.Rows) {
		n = len(f.Rows)
	}
	r := deterministicPerm(len(f.Rows), seed)
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = f.Rows[r[i]]
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

// deterministicPerm produces a repeatable pseudo-shuffle so Sample is
// reproducible for a given seed without depending on math/rand's global
// state or wall-clock time.
func deterministicPerm(n int, seed int64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	state := uint64(seed) + 1
	for i := n - 1; i > 0; i-- {
		state = state*6364136223846793005 + 1442695040888963407
		j := int(state % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// GroupBy groups rows by distinct values of one column and applies the
// named aggregation to every remaining numeric column.
func (f *Frame) GroupBy(column, agg string) (*Frame, bool) {
	gIdx := f.colIndex(column)
	if gIdx < 0 {
		return nil, false
	}
	var numericCols []int
	var outCols []string
	outCols = append(outCols, column)
	for i, c := range f.Columns {
		if i == gIdx {
			continue
		}
		if f.isNumericColumn(i) {
			numericCols = append(numericCols, i)
			outCols = append(outCols, c)
		}
	}

	groups := map[string][][]string{}
	var order []string
	for _, r := range f.Rows {
		key := r[gIdx]
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var rows [][]string
	for _, key := range order {
		row := []string{key}
		for _, ci := range numericCols {
			var vs []float64
			for _, r := range groups[key] {
				if n, err := strconv.ParseFloat(r[ci], 64); err == nil {
					vs = append(vs, n)
				}
			}
			var v float64
			switch agg {
			case "mean":
				v = mean(vs)
			case "median":
				v = median(vs)
			case "max":
				first := true
				for _, n := range vs {
					if first || n > v {
						v = n
						first = false
					}
				}
			case "min":
				first := true
				for _, n := range vs {
					if first || n < v {
						v = n
						first = false
					}
				}
			case "count":
				v = float64(len(vs))
			case "std":
				v = stddev(vs)
			default:
				for _, n := range vs {
					v += n
				}
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return &Frame{Columns: outCols, Rows: rows}, true
}
