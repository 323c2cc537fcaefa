package agentsvc

import (
	"encoding/json"
	"sort"
	"sync"

	"agentforge/internal/dataquery"
	"agentforge/internal/llm"
)

// dispatchToolCalls implements the RUN_TOOLS state: query_data calls are
// offloaded to the dataquery worker pool (the tabular engine is blocking),
// any other tool name is rejected with the core's fixed "not implemented"
// policy per spec §4.9 — pluggable tool adapters are out of scope here.
// Calls run concurrently, mirroring the teacher engine's per-step fan-out.
func dispatchToolCalls(pool *dataquery.Pool, cache *dataquery.Cache, agentID string, calls []llm.ToolCall) []llm.Message {
	out := make([]llm.Message, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		i, tc := i, tc
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = llm.Message{Role: "tool", ToolID: tc.ID, Content: string(executeToolCall(pool, cache, agentID, tc))}
		}()
	}
	wg.Wait()
	return out
}

func executeToolCall(pool *dataquery.Pool, cache *dataquery.Cache, agentID string, tc llm.ToolCall) []byte {
	if tc.Name != queryDataToolName {
		b, _ := json.Marshal(map[string]any{"success": false, "error": "tool not implemented"})
		return b
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(tc.Args, &args); err != nil {
		b, _ := json.Marshal(map[string]any{"success": false, "error": "invalid query_data arguments: " + err.Error()})
		return b
	}

	frame, ok := pickFrame(cache, agentID)
	if !ok {
		b, _ := json.Marshal(map[string]any{"success": false, "error": "no dataframe loaded for this agent"})
		return b
	}

	result := pool.Run(frame, args.Query)
	b, err := json.Marshal(result)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"success": false, "error": "failed to serialize result"})
	}
	return b
}

// pickFrame picks the agent's first cached dataframe by filename, lowest
// first. A future version could let query_data name a specific file; for
// now the single-`df`-namespace contract in spec §4.8 implies one active
// frame per turn.
func pickFrame(cache *dataquery.Cache, agentID string) (*dataquery.Frame, bool) {
	files := cache.Files(agentID)
	if len(files) == 0 {
		return nil, false
	}
	sort.Strings(files)
	return cache.Get(agentID, files[0])
}
