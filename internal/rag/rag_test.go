package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"agentforge/internal/registry"
	"agentforge/internal/vectorstore"
)

func TestAssemblePromptNoContextPreamble(t *testing.T) {
	out := AssemblePrompt("what's the weather", nil)
	assert.Contains(t, out, "No context was retrieved")
	assert.Contains(t, out, "what's the weather")
}

func TestAssemblePromptNumberedContextBlock(t *testing.T) {
	contexts := []Context{
		{Content: "first passage", Metadata: map[string]string{"source_file": "a.txt", "chunk_index": "0", "chunk_total": "2"}},
		{Content: "second passage", Metadata: map[string]string{"source_file": "b.txt"}},
	}
	out := AssemblePrompt("question", contexts)
	assert.Contains(t, out, "[Contexto 1] source_file=a.txt chunk=0/2")
	assert.Contains(t, out, "first passage")
	assert.Contains(t, out, "[Contexto 2] source_file=b.txt")
	assert.Contains(t, out, "second passage")
	assert.Contains(t, out, "question")
}

func TestRetrieveReturnsEmptyWithoutRAGBinding(t *testing.T) {
	s := New(nil, "", nil)
	out := s.Retrieve(context.Background(), "query", &registry.Agent{ID: "a"})
	assert.Empty(t, out)
}

func TestRetrieveReturnsEmptyForNilAgent(t *testing.T) {
	s := New(nil, "", nil)
	out := s.Retrieve(context.Background(), "query", nil)
	assert.Empty(t, out)
}

func TestRetrieveReturnsEmptyForUnknownBackend(t *testing.T) {
	s := New(nil, "", map[string]vectorstore.Store{})
	out := s.Retrieve(context.Background(), "query", &registry.Agent{
		ID:  "a",
		RAG: &registry.RAGBinding{BackendKind: "nonexistent", IndexName: "docs"},
	})
	assert.Empty(t, out)
}
