package dataquery

import (
	"regexp"
	"strconv"
	"strings"
)

// forbiddenSubstrings is checked case-insensitively against the raw
// expression before anything else runs, per spec §4.8 step 1. This list is
// intentionally broad (e.g. "os" also rejects unrelated words) — a false
// rejection is safe, a false acceptance is not.
var forbiddenSubstrings = []string{
	"import", "exec", "eval", "__", "open(", "globals", "locals",
	"subprocess", "os", "system", "file",
}

// allowedOps is the closed set of dataframe operations an expression's
// leading identifier must belong to, per spec §4.8 step 3.
var allowedOps = map[string]bool{
	"head": true, "tail": true, "describe": true, "info": true, "columns": true,
	"shape": true, "dtypes": true, "isna": true, "notna": true, "sum": true,
	"mean": true, "median": true, "max": true, "min": true, "std": true,
	"count": true, "value_counts": true, "groupby": true, "sort_values": true,
	"dropna": true, "fillna": true, "query": true, "loc": true, "iloc": true,
	"select_dtypes": true, "nunique": true, "unique": true, "sample": true,
}

var identifierPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)`)
var bracketFormPattern = regexp.MustCompile(`^df\s*\[(.*)\]$`)
var groupByChainPattern = regexp.MustCompile(`^groupby\(\s*['"]([^'"]+)['"]\s*\)\.(\w+)\(\s*\)$`)
var columnValueCountsPattern = regexp.MustCompile(`^\[\s*['"]([^'"]+)['"]\s*\]\.value_counts\(\)$`)

// Execute is the sole entry point into the restricted evaluator: it never
// panics and never runs host-language eval, returning a Result describing
// success, a typed value, or a rejection reason.
func Execute(f *Frame, expr string) Result {
	lower := strings.ToLower(expr)
	for _, bad := range forbiddenSubstrings {
		if strings.Contains(lower, bad) {
			return errResult("Query contains forbidden operations")
		}
	}

	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return errResult("empty expression")
	}

	if m := bracketFormPattern.FindStringSubmatch(trimmed); m != nil {
		return evalBracket(f, strings.TrimSpace(m[1]))
	}

	withoutDF := trimmed
	if strings.HasPrefix(withoutDF, "df.") {
		withoutDF = strings.TrimSpace(withoutDF[3:])
	}

	if m := columnValueCountsPattern.FindStringSubmatch(withoutDF); m != nil {
		vc, ok := f.ValueCounts(m[1])
		if !ok {
			return errResult("unknown column %q", m[1])
		}
		return seriesResult(valueCountsToMap(vc))
	}

	if m := groupByChainPattern.FindStringSubmatch(withoutDF); m != nil {
		grouped, ok := f.GroupBy(m[1], m[2])
		if !ok {
			return errResult("unknown column %q", m[1])
		}
		return frameResult(grouped)
	}

	idMatch := identifierPattern.FindString(withoutDF)
	if idMatch == "" || !allowedOps[idMatch] {
		return errResult("expression rejected: %q is not an allowed operation", idMatch)
	}

	rest := strings.TrimSpace(withoutDF[len(idMatch):])
	args := parseArgs(rest)

	return dispatch(f, idMatch, args, rest)
}

func evalBracket(f *Frame, inner string) Result {
	inner = strings.TrimSpace(inner)
	if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') {
		col := strings.Trim(inner, `'"`)
		vals, ok := f.Column(col)
		if !ok {
			return errResult("unknown column %q", col)
		}
		return seriesResult(vals)
	}

	filtered, ok := f.FilterRows(stripDFColumnRefs(inner))
	if !ok {
		return errResult("unsupported filter expression %q", inner)
	}
	return frameResult(filtered)
}

// stripDFColumnRefs turns `df['col'] > 5` into `col > 5` so FilterRows'
// single-comparison parser can match it.
func stripDFColumnRefs(s string) string {
	re := regexp.MustCompile(`df\[['"]([^'"]+)['"]\]`)
	return re.ReplaceAllString(s, "$1")
}

func valueCountsToMap(vc []ValueCount) map[string]int {
	out := make(map[string]int, len(vc))
	for _, v := range vc {
		out[v.Value] = v.Count
	}
	return out
}

// parseArgs splits a "(...)" or "[...]" call/index tail into its top-level
// comma-separated argument strings, ignoring commas nested in quotes.
func parseArgs(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	if (rest[0] == '(' && strings.HasSuffix(rest, ")")) || (rest[0] == '[' && strings.HasSuffix(rest, "]")) {
		rest = rest[1 : len(rest)-1]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	var args []string
	var cur strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
			cur.WriteByte(c)
		case c == ',':
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		args = append(args, strings.TrimSpace(cur.String()))
	}
	return args
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}

func argInt(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[i]))
	if err != nil {
		return def
	}
	return n
}

func argBoolKW(args []string, key string, def bool) bool {
	for _, a := range args {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[0]) == key {
			return strings.EqualFold(strings.TrimSpace(parts[1]), "true")
		}
	}
	return def
}

func dispatch(f *Frame, op string, args []string, rawArgs string) Result {
	switch op {
	case "head":
		return frameResult(f.Head(argInt(args, 0, 5)))
	case "tail":
		return frameResult(f.Tail(argInt(args, 0, 5)))
	case "describe":
		return seriesResult(f.Describe())
	case "info":
		rows, _ := f.Shape()
		return seriesResult(map[string]any{"rows": rows, "columns": f.Columns, "dtypes": f.Dtypes()})
	case "columns":
		return seriesResult(f.Columns)
	case "shape":
		rows, cols := f.Shape()
		return seriesResult([]int{rows, cols})
	case "dtypes":
		return seriesResult(f.Dtypes())
	case "isna":
		return frameResult(f.IsNA())
	case "notna":
		return frameResult(f.NotNA())
	case "sum":
		return seriesResult(f.Sum())
	case "mean":
		return seriesResult(f.Mean())
	case "median":
		return seriesResult(f.Median())
	case "max":
		return seriesResult(f.Max())
	case "min":
		return seriesResult(f.Min())
	case "std":
		return seriesResult(f.Std())
	case "count":
		return seriesResult(f.Count())
	case "nunique":
		return seriesResult(f.NUnique())
	case "unique":
		if len(args) == 0 {
			return errResult("unique() requires a column argument")
		}
		u, ok := f.Unique(unquote(args[0]))
		if !ok {
			return errResult("unknown column %q", unquote(args[0]))
		}
		return seriesResult(u)
	case "value_counts":
		if len(args) == 0 {
			return errResult("value_counts() requires a column argument")
		}
		vc, ok := f.ValueCounts(unquote(args[0]))
		if !ok {
			return errResult("unknown column %q", unquote(args[0]))
		}
		return seriesResult(valueCountsToMap(vc))
	case "dropna":
		return frameResult(f.DropNA())
	case "fillna":
		val := "0"
		if len(args) > 0 {
			val = unquote(args[0])
		}
		return frameResult(f.FillNA(val))
	case "sort_values":
		if len(args) == 0 {
			return errResult("sort_values() requires a column argument")
		}
		ascending := argBoolKW(args, "ascending", true)
		sorted, ok := f.SortValues(unquote(args[0]), ascending)
		if !ok {
			return errResult("unknown column %q", unquote(args[0]))
		}
		return frameResult(sorted)
	case "query":
		if len(args) == 0 {
			return errResult("query() requires a condition string")
		}
		filtered, ok := f.FilterRows(unquote(args[0]))
		if !ok {
			return errResult("unsupported query condition %q", unquote(args[0]))
		}
		return frameResult(filtered)
	case "select_dtypes":
		kind := "number"
		for _, a := range args {
			if strings.Contains(a, "=") {
				parts := strings.SplitN(a, "=", 2)
				kind = unquote(parts[1])
			} else {
				kind = unquote(a)
			}
		}
		return frameResult(f.SelectDtypes(kind))
	case "sample":
		return frameResult(f.Sample(argInt(args, 0, 1), 0))
	case "loc", "iloc":
		start, end := parseSlice(rawArgs, len(f.Rows))
		return frameResult(f.sliceRows(start, end))
	default:
		return errResult("unsupported operation %q", op)
	}
}

var slicePattern = regexp.MustCompile(`^\[\s*(-?\d*)\s*:\s*(-?\d*)\s*\]$`)

func parseSlice(raw string, total int) (start, end int) {
	m := slicePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, total
	}
	start, end = 0, total
	if m[1] != "" {
		if n, err := strconv.Atoi(m[1]); err == nil {
			start = n
		}
	}
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil {
			end = n
		}
	}
	return start, end
}
