// Package llm implements C5: an embedding/chat-completion client wrapping
// the OpenAI Go SDK, with buffered and streaming tool-call support and a
// token-estimation fallback for when usage isn't reported.
package llm

import "encoding/json"

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Message is a portable chat-history entry; Role is one of
// "system" | "user" | "assistant" | "tool".
type Message struct {
	Role      string
	Content   string
	ToolID    string
	ToolCalls []ToolCall
}

// ToolSchema describes one callable tool for the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamHandler receives incremental output during ChatStream.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
}

// Usage reports token counts for a completion, estimated when the
// provider doesn't report them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// EstimateTokens implements spec §4.5's fallback formula: ceil(len/4),
// floor 1 for any non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
