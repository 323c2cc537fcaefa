package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDirParsesYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlBody := "id: yaml-agent\nmodel: gpt-4o-mini\nsystem_prompt: be helpful\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yaml-agent.yaml"), []byte(yamlBody), 0o644))

	jsonBody := `{"id":"json-agent","model":"gpt-4o-mini","webhook_name":"json-hook"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json-agent.json"), []byte(jsonBody), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	agents, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	ids := map[string]*Agent{}
	for _, a := range agents {
		ids[a.ID] = a
	}
	require.Contains(t, ids, "yaml-agent")
	require.Contains(t, ids, "json-agent")
	assert.Equal(t, "json-hook", ids["json-agent"].WebhookName)
}

func TestLoadFromDirMissingDirReturnsEmpty(t *testing.T) {
	agents, err := LoadFromDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, agents)
}
