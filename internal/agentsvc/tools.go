package agentsvc

import (
	"fmt"
	"sort"
	"strings"

	"agentforge/internal/dataquery"
	"agentforge/internal/llm"
	"agentforge/internal/registry"
)

const queryDataToolName = "query_data"

// buildToolSchemas translates an agent's declared tools into function-call
// schemas and, when data_analysis is enabled, appends the synthetic
// query_data tool whose description embeds the current dataframe layout.
func buildToolSchemas(a *registry.Agent, cache *dataquery.Cache) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(a.Tools)+1)
	for _, t := range a.Tools {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	if a.DataAnalysis != nil && a.DataAnalysis.Enabled {
		schemas = append(schemas, llm.ToolSchema{
			Name:        queryDataToolName,
			Description: describeDataframes(cache, a.ID),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
				"required": []string{"query"},
			},
		})
	}
	return schemas
}

// describeDataframes renders the cached frames for an agent as a compact
// layout description (files, rows, columns, dtypes, a sample row) that the
// model uses to decide what to query.
func describeDataframes(cache *dataquery.Cache, agentID string) string {
	files := cache.Files(agentID)
	if len(files) == 0 {
		return "Query the agent's loaded dataframes. No files are currently loaded."
	}
	sort.Strings(files)

	var b strings.Builder
	b.WriteString("Query the agent's loaded dataframes via a restricted expression (e.g. df.head(), df['col'], df.describe()).\n\n")
	for _, name := range files {
		f, ok := cache.Get(agentID, name)
		if !ok {
			continue
		}
		rows, cols := f.Shape()
		fmt.Fprintf(&b, "File %q: %d rows, %d columns.\n", name, rows, cols)
		fmt.Fprintf(&b, "  columns: %s\n", strings.Join(f.Columns, ", "))
		dtypes := f.Dtypes()
		pairs := make([]string, 0, len(dtypes))
		for _, c := range f.Columns {
			pairs = append(pairs, fmt.Sprintf("%s:%s", c, dtypes[c]))
		}
		fmt.Fprintf(&b, "  dtypes: %s\n", strings.Join(pairs, ", "))
		if len(f.Rows) > 0 {
			fmt.Fprintf(&b, "  sample row: %v\n", f.Rows[0])
		}
	}
	return b.String()
}
