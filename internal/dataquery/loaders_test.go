package dataquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	f, err := LoadCSV([]byte("name,age\nalice,30\nbob,25\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, f.Columns)
	assert.Len(t, f.Rows, 2)
}

func TestLoadJSONArrayOfObjects(t *testing.T) {
	f, err := LoadJSON([]byte(`[{"a":1,"b":"x"},{"a":2,"b":"y"}]`))
	require.NoError(t, err)
	assert.Len(t, f.Rows, 2)
	assert.Contains(t, f.Columns, "a")
	assert.Contains(t, f.Columns, "b")
}

func TestLoadJSONSingleObject(t *testing.T) {
	f, err := LoadJSON([]byte(`{"a":1,"b":"x"}`))
	require.NoError(t, err)
	assert.Len(t, f.Rows, 1)
}

func TestLoadJSONColumnOriented(t *testing.T) {
	f, err := LoadJSON([]byte(`{"a":[1,2,3],"b":["x","y","z"]}`))
	require.NoError(t, err)
	assert.Len(t, f.Rows, 3)
}

func TestLoadFileDispatchesByExtension(t *testing.T) {
	f, err := LoadFile("data.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Columns)

	_, err = LoadFile("data.txt", []byte("x"))
	assert.Error(t, err)
}
