package dataquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() *Frame {
	return NewFrame(
		[]string{"name", "age", "city"},
		[][]string{
			{"alice", "30", "nyc"},
			{"bob", "25", "sf"},
			{"carol", "", "nyc"},
		},
	)
}

func TestShape(t *testing.T) {
	rows, cols := sampleFrame().Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
}

func TestDtypes(t *testing.T) {
	d := sampleFrame().Dtypes()
	assert.Equal(t, "object", d["name"])
	assert.Equal(t, "float64", d["age"])
}

func TestHeadTail(t *testing.T) {
	f := sampleFrame()
	h := f.Head(2)
	assert.Len(t, h.Rows, 2)
	tail := f.Tail(2)
	assert.Len(t, tail.Rows, 2)
	assert.Equal(t, "bob", tail.Rows[0][0])
}

func TestSumMeanOnlyCoversNumericColumns(t *testing.T) {
	f := sampleFrame()
	sum := f.Sum()
	_, hasName := sum["name"]
	assert.False(t, hasName)
	assert.InDelta(t, 55, sum["age"], 0.001)

	avg := f.Mean()
	_, hasName = avg["name"]
	assert.False(t, hasName)
	assert.InDelta(t, 27.5, avg["age"], 0.001)
}

func TestCountSkipsEmptyCells(t *testing.T) {
	c := sampleFrame().Count()
	assert.Equal(t, 2, c["age"])
	assert.Equal(t, 3, c["name"])
}

func TestDropNA(t *testing.T) {
	f := sampleFrame().DropNA()
	assert.Len(t, f.Rows, 2)
}

func TestFillNA(t *testing.T) {
	f := sampleFrame().FillNA("0")
	assert.Equal(t, "0", f.Rows[2][1])
}

func TestValueCounts(t *testing.T) {
	vc, ok := sampleFrame().ValueCounts("city")
	require.True(t, ok)
	assert.Equal(t, "nyc", vc[0].Value)
	assert.Equal(t, 2, vc[0].Count)
}

func TestSortValuesNumeric(t *testing.T) {
	f, ok := sampleFrame().SortValues("age", true)
	require.True(t, ok)
	assert.Equal(t, "", f.Rows[0][1])
}

func TestSelectDtypesNumber(t *testing.T) {
	f := sampleFrame().SelectDtypes("number")
	assert.Equal(t, []string{"age"}, f.Columns)
}

func TestGroupBySum(t *testing.T) {
	grouped, ok := sampleFrame().GroupBy("city", "sum")
	require.True(t, ok)
	assert.Contains(t, grouped.Columns, "city")
	assert.Contains(t, grouped.Columns, "age")
}

func TestUniqueAndNUnique(t *testing.T) {
	u, ok := sampleFrame().Unique("city")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"nyc", "sf"}, u)

	n := sampleFrame().NUnique()
	assert.Equal(t, 2, n["city"])
}

func TestIsNANotNA(t *testing.T) {
	f := sampleFrame()
	na := f.IsNA()
	assert.Equal(t, "true", na.Rows[2][1])
	notna := f.NotNA()
	assert.Equal(t, "false", notna.Rows[2][1])
}

func TestDescribeReportsFiveNumberSummary(t *testing.T) {
	d := sampleFrame().Describe()
	age, ok := d["age"]
	require.True(t, ok)
	assert.InDelta(t, 2, age["count"], 0.001)
	assert.InDelta(t, 25, age["min"], 0.001)
	assert.InDelta(t, 26.25, age["25%"], 0.001)
	assert.InDelta(t, 27.5, age["50%"], 0.001)
	assert.InDelta(t, 28.75, age["75%"], 0.001)
	assert.InDelta(t, 30, age["max"], 0.001)
}
