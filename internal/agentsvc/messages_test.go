package agentsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentforge/internal/queue"
	"agentforge/internal/rag"
)

func TestFilterHistoryKeepsOnlyUserAndAssistant(t *testing.T) {
	history := []queue.HistoryTurn{
		{Role: "system", Content: "ignored"},
		{Role: "user", Content: "hi"},
		{Role: "tool", Content: "ignored"},
		{Role: "assistant", Content: "hello"},
	}
	out := filterHistory(history)
	require.Len(t, out, 2)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "assistant", out[1].Role)
}

func TestBuildMessagesWithSystemPromptAndHistory(t *testing.T) {
	history := []queue.HistoryTurn{{Role: "user", Content: "earlier"}}
	msgs := buildMessages("be helpful", history, "what's up", nil)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "be helpful", msgs[0].Content)
	assert.Equal(t, "earlier", msgs[1].Content)
	assert.Contains(t, msgs[2].Content, "No context was retrieved")
	assert.Contains(t, msgs[2].Content, "what's up")
}

func TestBuildMessagesSkipsEmptySystemPrompt(t *testing.T) {
	msgs := buildMessages("", nil, "question", []rag.Context{{Content: "fact"}})
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "fact")
}
