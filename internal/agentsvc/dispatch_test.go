package agentsvc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentforge/internal/dataquery"
	"agentforge/internal/llm"
)

func TestDispatchToolCallsRejectsUnknownTool(t *testing.T) {
	pool := dataquery.NewPool(1)
	defer pool.Close()

	out := dispatchToolCalls(pool, dataquery.NewCache(), "agent-1", []llm.ToolCall{
		{ID: "call-1", Name: "weather", Args: json.RawMessage(`{}`)},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "tool", out[0].Role)
	assert.Equal(t, "call-1", out[0].ToolID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out[0].Content), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "tool not implemented", payload["error"])
}

func TestDispatchToolCallsRunsQueryDataAgainstCachedFrame(t *testing.T) {
	pool := dataquery.NewPool(1)
	defer pool.Close()

	cache := dataquery.NewCache()
	cache.Put("agent-1", "data.csv", dataquery.NewFrame([]string{"a"}, [][]string{{"1"}, {"2"}}))

	out := dispatchToolCalls(pool, cache, "agent-1", []llm.ToolCall{
		{ID: "call-1", Name: queryDataToolName, Args: json.RawMessage(`{"query":"df.shape"}`)},
	})
	require.Len(t, out, 1)

	var result dataquery.Result
	require.NoError(t, json.Unmarshal([]byte(out[0].Content), &result))
	assert.True(t, result.Success)
}

func TestDispatchToolCallsQueryDataWithoutLoadedFrame(t *testing.T) {
	pool := dataquery.NewPool(1)
	defer pool.Close()

	out := dispatchToolCalls(pool, dataquery.NewCache(), "agent-1", []llm.ToolCall{
		{ID: "call-1", Name: queryDataToolName, Args: json.RawMessage(`{"query":"df.head()"}`)},
	})
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out[0].Content), &payload))
	assert.Equal(t, false, payload["success"])
}

func TestSumUsageAddsBothCalls(t *testing.T) {
	a := llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b := llm.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28, Estimated: true}
	sum := sumUsage(a, b)
	assert.Equal(t, 30, sum.PromptTokens)
	assert.Equal(t, 13, sum.CompletionTokens)
	assert.Equal(t, 43, sum.TotalTokens)
	assert.True(t, sum.Estimated)
}
