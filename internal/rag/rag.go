// Package rag implements C7: embed the query, retrieve top-k contexts from
// the backend an agent's rag binding names, and assemble the context block
// or no-context preamble prefixed onto the user message.
package rag

import (
	"context"
	"fmt"
	"strings"

	"agentforge/internal/llm"
	"agentforge/internal/registry"
	"agentforge/internal/vectorstore"

	"agentforge/internal/logging"
)

// Context is one retrieved passage, per spec §3.
type Context struct {
	Content  string
	Score    float64
	Metadata map[string]string
}

const defaultTopK = 5

// Service retrieves RAG contexts for an agent turn.
type Service struct {
	llm        *llm.Client
	embedModel string
	stores     map[string]vectorstore.Store // keyed by backend_kind
}

func New(llmClient *llm.Client, embedModel string, stores map[string]vectorstore.Store) *Service {
	return &Service{llm: llmClient, embedModel: embedModel, stores: stores}
}

// Retrieve implements spec §4.7: returns an empty slice (never an error) if
// the agent has no rag binding, the backend is unknown, or embedding/search
// fails — the turn proceeds without context in every one of those cases.
func (s *Service) Retrieve(ctx context.Context, query string, a *registry.Agent) []Context {
	if a == nil || a.RAG == nil || a.RAG.IndexName == "" {
		return nil
	}
	log := logging.From(ctx)

	store, ok := s.stores[a.RAG.BackendKind]
	if !ok {
		log.Warn().Str("backend_kind", a.RAG.BackendKind).Msg("rag_unknown_backend")
		return nil
	}

	vec, err := s.llm.Embed(ctx, s.embedModel, query)
	if err != nil {
		log.Warn().Err(err).Msg("rag_embed_failed")
		return nil
	}

	topK := a.RAG.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	hits, err := store.Search(ctx, a.RAG.IndexName, vec, topK)
	if err != nil {
		log.Warn().Err(err).Str("index", a.RAG.IndexName).Msg("rag_search_failed")
		return nil
	}

	out := make([]Context, 0, len(hits))
	for _, h := range hits {
		out = append(out, Context{
			Content:  h.Payload["content"],
			Score:    h.Score,
			Metadata: h.Payload,
		})
	}
	return out
}

// AssemblePrompt implements spec §4.7's prompt-assembly contract: a numbered
// context block when contexts exist, otherwise a no-context preamble.
func AssemblePrompt(userMessage string, contexts []Context) string {
	if len(contexts) == 0 {
		return "No context was retrieved for this request. Advise the user you are answering without retrieved context if relevant.\n\n" + userMessage
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range contexts {
		b.WriteString(fmt.Sprintf("[Contexto %d] ", i+1))
		if sf := c.Metadata["source_file"]; sf != "" {
			b.WriteString(fmt.Sprintf("source_file=%s ", sf))
		}
		if ci, total := c.Metadata["chunk_index"], c.Metadata["chunk_total"]; ci != "" {
			if total != "" {
				b.WriteString(fmt.Sprintf("chunk=%s/%s ", ci, total))
			} else {
				b.WriteString(fmt.Sprintf("chunk=%s ", ci))
			}
		}
		if ft := c.Metadata["file_type"]; ft != "" {
			b.WriteString(fmt.Sprintf("file_type=%s ", ft))
		}
		b.WriteString("\n")
		b.WriteString(c.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(userMessage)
	return b.String()
}
