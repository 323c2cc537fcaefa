package agentsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentforge/internal/dataquery"
	"agentforge/internal/registry"
)

func TestBuildToolSchemasTranslatesDeclaredTools(t *testing.T) {
	a := &registry.Agent{
		ID: "a1",
		Tools: []registry.ToolDeclaration{
			{Name: "lookup", Description: "look things up", Parameters: map[string]any{"type": "object"}},
		},
	}
	schemas := buildToolSchemas(a, dataquery.NewCache())
	require.Len(t, schemas, 1)
	assert.Equal(t, "lookup", schemas[0].Name)
}

func TestBuildToolSchemasAddsQueryDataWhenEnabled(t *testing.T) {
	cache := dataquery.NewCache()
	a := &registry.Agent{ID: "a1", DataAnalysis: &registry.DataAnalysisBinding{Enabled: true}}
	schemas := buildToolSchemas(a, cache)
	require.Len(t, schemas, 1)
	assert.Equal(t, queryDataToolName, schemas[0].Name)
	assert.Equal(t, []string{"query"}, schemas[0].Parameters["required"])
}

func TestBuildToolSchemasOmitsQueryDataWhenDisabled(t *testing.T) {
	a := &registry.Agent{ID: "a1", DataAnalysis: &registry.DataAnalysisBinding{Enabled: false}}
	schemas := buildToolSchemas(a, dataquery.NewCache())
	assert.Empty(t, schemas)
}

func TestDescribeDataframesListsLoadedFiles(t *testing.T) {
	cache := dataquery.NewCache()
	f := dataquery.NewFrame([]string{"a", "b"}, [][]string{{"1", "2"}})
	cache.Put("agent-1", "data.csv", f)

	desc := describeDataframes(cache, "agent-1")
	assert.Contains(t, desc, "data.csv")
	assert.Contains(t, desc, "1 rows")
	assert.Contains(t, desc, "a, b")
}

func TestDescribeDataframesEmptyCache(t *testing.T) {
	desc := describeDataframes(dataquery.NewCache(), "agent-1")
	assert.Contains(t, desc, "No files are currently loaded")
}
