package dataquery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFileStripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveFile(dir, "agent-1", "../../etc/evil.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "evil.csv", filepath.Base(path))
	assert.True(t, filepath.Dir(path) == filepath.Join(dir, "agent-1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestSaveFileRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	_, err := SaveFile(dir, "agent-1", "script.sh", []byte("x"))
	assert.Error(t, err)
}
