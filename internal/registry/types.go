// Package registry implements C6: the agent registry. Agents are loaded
// from YAML/JSON files and from Postgres, decrypted, indexed by id and by
// webhook name, and held behind a single copy-on-write map pair so readers
// never block on a reload.
package registry

import "regexp"

// idPattern is the allowed charset for both Agent.ID and Agent.WebhookName.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RAGBinding configures an agent's retrieval-augmented generation backend.
type RAGBinding struct {
	BackendKind string `json:"backend_kind" yaml:"backend_kind"`
	IndexName   string `json:"index_name" yaml:"index_name"`
	TopK        int    `json:"top_k" yaml:"top_k"`
	ChunkSize   int    `json:"chunk_size" yaml:"chunk_size"`
	Overlap     int    `json:"overlap" yaml:"overlap"`
}

// DataAnalysisBinding configures an agent's data-query tool access.
type DataAnalysisBinding struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Files   []string `json:"files" yaml:"files"`
	Engine  string   `json:"engine" yaml:"engine"`
}

// ToolDeclaration describes one tool an agent may call.
type ToolDeclaration struct {
	Name        string         `json:"name" yaml:"name"`
	Kind        string         `json:"kind" yaml:"kind"`
	URL         string         `json:"url,omitempty" yaml:"url,omitempty"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Agent is the full agent definition from spec §3.
type Agent struct {
	ID           string               `json:"id" yaml:"id"`
	Name         string               `json:"name,omitempty" yaml:"name,omitempty"`
	WebhookName  string               `json:"webhook_name,omitempty" yaml:"webhook_name,omitempty"`
	Model        string               `json:"model" yaml:"model"`
	Credential   string               `json:"credential,omitempty" yaml:"credential,omitempty"`
	SystemPrompt string               `json:"system_prompt" yaml:"system_prompt"`
	InputSchema  map[string]any       `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	OutputSchema map[string]any       `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
	RAG          *RAGBinding          `json:"rag,omitempty" yaml:"rag,omitempty"`
	DataAnalysis *DataAnalysisBinding `json:"data_analysis,omitempty" yaml:"data_analysis,omitempty"`
	Tools        []ToolDeclaration    `json:"tools,omitempty" yaml:"tools,omitempty"`
	WebhookURL   string               `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	GroupID      string               `json:"group_id,omitempty" yaml:"group_id,omitempty"`
}

// ValidateID reports whether id matches the required `[A-Za-z0-9_-]+` charset.
func ValidateID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}
