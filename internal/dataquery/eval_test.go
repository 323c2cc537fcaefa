package dataquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRejectsForbiddenSubstrings(t *testing.T) {
	f := sampleFrame()
	for _, expr := range []string{
		"__import__('os')",
		"open('/etc/passwd')",
		"df.head().__class__",
		"exec('1')",
	} {
		r := Execute(f, expr)
		assert.False(t, r.Success, expr)
		assert.NotEmpty(t, r.Error)
	}
}

func TestExecuteRejectsNonAllowListedIdentifier(t *testing.T) {
	r := Execute(sampleFrame(), "df.to_csv()")
	assert.False(t, r.Success)
}

func TestExecuteHead(t *testing.T) {
	r := Execute(sampleFrame(), "df.head(2)")
	require.True(t, r.Success)
	assert.Equal(t, "frame", r.Type)
	assert.Equal(t, 2, r.Rows)
}

func TestExecuteBracketColumnSelection(t *testing.T) {
	r := Execute(sampleFrame(), "df['city']")
	require.True(t, r.Success)
	assert.Equal(t, "series", r.Type)
	vals, ok := r.Result.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"nyc", "sf", "nyc"}, vals)
}

func TestExecuteBracketFilter(t *testing.T) {
	r := Execute(sampleFrame(), "df[df['age'] > 26]")
	require.True(t, r.Success)
	assert.Equal(t, "frame", r.Type)
	assert.Equal(t, 1, r.Rows)
}

func TestExecuteQuery(t *testing.T) {
	r := Execute(sampleFrame(), "df.query(\"age > 26\")")
	require.True(t, r.Success)
	assert.Equal(t, 1, r.Rows)
}

func TestExecuteSumSeries(t *testing.T) {
	r := Execute(sampleFrame(), "df.sum()")
	require.True(t, r.Success)
	assert.Equal(t, "series", r.Type)
}

func TestExecuteShapeSeries(t *testing.T) {
	r := Execute(sampleFrame(), "df.shape")
	require.True(t, r.Success)
}

func TestExecuteUnknownColumnErrors(t *testing.T) {
	r := Execute(sampleFrame(), "df.value_counts('nope')")
	assert.False(t, r.Success)
}

func TestExecuteGroupByChain(t *testing.T) {
	r := Execute(sampleFrame(), "df.groupby('city').sum()")
	require.True(t, r.Success)
	assert.Equal(t, "frame", r.Type)
}
