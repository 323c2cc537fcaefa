// Package agentsvc implements C9: the per-turn agent state machine
// (retrieve context, assemble messages, call the model, run at most one
// round of tool calls, call the model again, emit the final response).
package agentsvc

import (
	"context"
	"fmt"
	"strings"

	"agentforge/internal/dataquery"
	"agentforge/internal/llm"
	"agentforge/internal/queue"
	"agentforge/internal/rag"
	"agentforge/internal/registry"
)

// TurnResult is the outcome of one Process call.
type TurnResult struct {
	Content string
	Usage   llm.Usage
	Success bool
}

// Service owns everything one agent turn needs: the model client, RAG
// retrieval, and the data-query cache/pool for query_data tool calls.
type Service struct {
	llm          *llm.Client
	rag          *rag.Service
	cache        *dataquery.Cache
	pool         *dataquery.Pool
	defaultModel string
}

func New(llmClient *llm.Client, ragService *rag.Service, cache *dataquery.Cache, pool *dataquery.Pool, defaultModel string) *Service {
	return &Service{llm: llmClient, rag: ragService, cache: cache, pool: pool, defaultModel: defaultModel}
}

// Process runs one turn of spec §4.9's state machine. When onDelta is
// non-nil, the CALL_MODEL steps stream incremental content through it;
// otherwise they use the buffered chat call. Any failure is converted into
// the user-visible "Erro ao processar mensagem: <error>" string rather than
// an error return, per spec's failure-semantics contract — the turn is
// still reported with Success=false for metrics.
func (s *Service) Process(ctx context.Context, a *registry.Agent, msg queue.Message, history []queue.HistoryTurn, onDelta func(string)) (result TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			text := fmt.Sprintf("Erro ao processar mensagem: %v", r)
			if onDelta != nil {
				onDelta(text)
			}
			result = TurnResult{Content: text, Success: false}
		}
	}()

	contexts := s.rag.Retrieve(ctx, msg.Text, a)
	msgs := buildMessages(a.SystemPrompt, history, msg.Text, contexts)
	tools := buildToolSchemas(a, s.cache)

	model := a.Model
	if model == "" {
		model = s.defaultModel
	}

	var content string
	var usage llm.Usage
	var err error
	if onDelta != nil {
		content, usage, err = s.runStream(ctx, a.ID, msgs, tools, model, onDelta)
	} else {
		content, usage, err = s.runBuffered(ctx, a.ID, msgs, tools, model)
	}
	if err != nil {
		text := fmt.Sprintf("Erro ao processar mensagem: %s", err.Error())
		if onDelta != nil {
			onDelta(text)
		}
		return TurnResult{Content: text, Usage: usage, Success: false}
	}
	return TurnResult{Content: content, Usage: usage, Success: true}
}

// runBuffered implements CALL_MODEL/RUN_TOOLS/APPEND_RESULTS/CALL_MODEL for
// the non-streaming path, re-entering CALL_MODEL at most once.
func (s *Service) runBuffered(ctx context.Context, agentID string, msgs []llm.Message, tools []llm.ToolSchema, model string) (string, llm.Usage, error) {
	reply, usage, err := s.llm.Chat(ctx, msgs, tools, model)
	if err != nil {
		return "", usage, err
	}
	if len(reply.ToolCalls) == 0 {
		return reply.Content, usage, nil
	}

	msgs = append(msgs, reply)
	msgs = append(msgs, dispatchToolCalls(s.pool, s.cache, agentID, reply.ToolCalls)...)

	final, usage2, err := s.llm.Chat(ctx, msgs, tools, model)
	if err != nil {
		return "", sumUsage(usage, usage2), err
	}
	return final.Content, sumUsage(usage, usage2), nil
}

// runStream is runBuffered's streaming counterpart: deltas from both model
// calls are forwarded through onDelta as they arrive.
func (s *Service) runStream(ctx context.Context, agentID string, msgs []llm.Message, tools []llm.ToolSchema, model string, onDelta func(string)) (string, llm.Usage, error) {
	h := &turnStreamHandler{onDelta: onDelta}
	usage, err := s.llm.ChatStream(ctx, msgs, tools, model, h)
	if err != nil {
		return "", usage, err
	}

	if len(h.toolCalls) == 0 {
		return h.content.String(), usage, nil
	}

	msgs = append(msgs, llm.Message{Role: "assistant", Content: h.content.String(), ToolCalls: h.toolCalls})
	msgs = append(msgs, dispatchToolCalls(s.pool, s.cache, agentID, h.toolCalls)...)

	h2 := &turnStreamHandler{onDelta: onDelta}
	usage2, err := s.llm.ChatStream(ctx, msgs, tools, model, h2)
	if err != nil {
		return "", sumUsage(usage, usage2), err
	}
	return h2.content.String(), sumUsage(usage, usage2), nil
}

func sumUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
		Estimated:        a.Estimated || b.Estimated,
	}
}

// turnStreamHandler implements llm.StreamHandler, accumulating content and
// tool calls for a single CALL_MODEL step while forwarding deltas live.
type turnStreamHandler struct {
	onDelta   func(string)
	content   strings.Builder
	toolCalls []llm.ToolCall
}

func (h *turnStreamHandler) OnDelta(content string) {
	h.content.WriteString(content)
	if h.onDelta != nil {
		h.onDelta(content)
	}
}

func (h *turnStreamHandler) OnToolCall(tc llm.ToolCall) {
	h.toolCalls = append(h.toolCalls, tc)
}
