package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"agentforge/internal/registry"
	"agentforge/internal/vectorstore"
)

// Chunk is one contiguous slice of a source document.
type Chunk struct {
	Index int
	Text  string
}

// ChunkText splits text into contiguous chunks of at most size runes
// with overlap runes shared between consecutive chunks, cutting at a
// whitespace boundary when one falls past the chunk's midpoint. Grounded on
// the teacher's fixed-window chunking strategy, simplified to the single
// chunk_size/overlap pair an agent's RAGBinding declares.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var out []Chunk
	start := 0
	idx := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		} else {
			for i := end - 1; i > start+size/2; i-- {
				if runes[i] == ' ' {
					end = i
					break
				}
			}
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, Chunk{Index: idx, Text: chunk})
			idx++
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// IngestDocument chunks text, embeds each chunk, and upserts it into the
// agent's configured RAG backend keyed by a deterministic chunk id, per
// spec §4.7/§8. Returns the ids written.
func (s *Service) IngestDocument(ctx context.Context, a *registry.Agent, sourceFile string, text string) ([]string, error) {
	if a.RAG == nil || a.RAG.IndexName == "" {
		return nil, fmt.Errorf("rag: agent %q has no rag binding", a.ID)
	}
	store, ok := s.stores[a.RAG.BackendKind]
	if !ok {
		return nil, fmt.Errorf("rag: unknown backend_kind %q", a.RAG.BackendKind)
	}

	size, overlap := a.RAG.ChunkSize, a.RAG.Overlap
	chunks := ChunkText(text, size, overlap)
	sum := sha256.Sum256([]byte(text))
	fileHash := hex.EncodeToString(sum[:])

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		vec, err := s.llm.Embed(ctx, s.embedModel, c.Text)
		if err != nil {
			return ids, fmt.Errorf("rag: embed chunk %d: %w", c.Index, err)
		}
		id := ChunkDocID(a.RAG.IndexName, fileHash, c.Index)
		payload := map[string]string{
			"content":     c.Text,
			"source_file": sourceFile,
			"chunk_index": fmt.Sprintf("%d", c.Index),
			"chunk_total": fmt.Sprintf("%d", len(chunks)),
		}
		if err := store.EnsureCollection(ctx, a.RAG.IndexName, len(vec)); err != nil {
			return ids, fmt.Errorf("rag: ensure collection: %w", err)
		}
		if err := store.Upsert(ctx, a.RAG.IndexName, id, vec, payload); err != nil {
			return ids, fmt.Errorf("rag: upsert chunk %d: %w", c.Index, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Store resolves the vector store backing an agent's rag binding, for
// direct list/delete/stats operations outside the turn-retrieval path.
func (s *Service) Store(backendKind string) (vectorstore.Store, bool) {
	store, ok := s.stores[backendKind]
	return store, ok
}

// Embed passes through to the underlying LLM client's embedding call,
// defaulting to the service's configured embed model.
func (s *Service) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = s.embedModel
	}
	return s.llm.Embed(ctx, model, text)
}
