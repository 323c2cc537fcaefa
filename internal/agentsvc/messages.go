package agentsvc

import (
	"agentforge/internal/llm"
	"agentforge/internal/queue"
	"agentforge/internal/rag"
)

// filterHistory keeps only user/assistant turns, per spec §4.9's "sanitized
// history (only entries with role in {user, assistant})" — sanitization
// itself (HTML stripping) already happened at ingress before enqueue.
func filterHistory(history []queue.HistoryTurn) []queue.HistoryTurn {
	out := make([]queue.HistoryTurn, 0, len(history))
	for _, h := range history {
		if h.Role == "user" || h.Role == "assistant" {
			out = append(out, h)
		}
	}
	return out
}

// buildMessages assembles the ASSEMBLE state's message list: system prompt,
// filtered history, then the user message wrapped with retrieved context
// (or the no-context preamble).
func buildMessages(systemPrompt string, history []queue.HistoryTurn, userMessage string, contexts []rag.Context) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	}
	for _, h := range filterHistory(history) {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: rag.AssemblePrompt(userMessage, contexts)})
	return msgs
}
