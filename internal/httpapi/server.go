// Package httpapi exposes the non-webhook HTTP surface from spec §6: first-run
// setup, session auth, agent CRUD, per-agent file/data-query operations, RAG
// index management, and metrics, following the teacher's method-and-path
// http.ServeMux registration style.
package httpapi

import (
	"net/http"

	"agentforge/internal/agentsvc"
	"agentforge/internal/auth"
	"agentforge/internal/dataquery"
	"agentforge/internal/metrics"
	"agentforge/internal/queue"
	"agentforge/internal/rag"
	"agentforge/internal/registry"
	"agentforge/internal/vectorstore"
)

// Server wires every non-webhook component together behind one mux.
type Server struct {
	registry *registry.Manager
	authSt   *auth.Store
	issuer   *auth.TokenIssuer
	agents   *agentsvc.Service
	rag      *rag.Service
	cache    *dataquery.Cache
	pool     *dataquery.Pool
	metrics  *metrics.Service
	queue    *queue.Client
	stores   map[string]vectorstore.Store
	dataDir  string
	secure   bool // cookie Secure flag; true outside development

	mux *http.ServeMux
}

type Deps struct {
	Registry *registry.Manager
	AuthSt   *auth.Store
	Issuer   *auth.TokenIssuer
	Agents   *agentsvc.Service
	RAG      *rag.Service
	Cache    *dataquery.Cache
	Pool     *dataquery.Pool
	Metrics  *metrics.Service
	Queue    *queue.Client
	Stores   map[string]vectorstore.Store
	DataDir  string
	Secure   bool
}

func NewServer(d Deps) *Server {
	s := &Server{
		registry: d.Registry,
		authSt:   d.AuthSt,
		issuer:   d.Issuer,
		agents:   d.Agents,
		rag:      d.RAG,
		cache:    d.Cache,
		pool:     d.Pool,
		metrics:  d.Metrics,
		queue:    d.Queue,
		stores:   d.Stores,
		dataDir:  d.DataDir,
		secure:   d.Secure,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/setup", s.handleSetup)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/auth/verify", s.handleVerify)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	s.mux.HandleFunc("GET /agents", s.handleListAgents)
	s.mux.HandleFunc("POST /agents/create", s.handleCreateAgent)
	s.mux.HandleFunc("GET /agents/{id}", s.handleGetAgent)
	s.mux.HandleFunc("PUT /agents/{id}", s.handleUpdateAgent)
	s.mux.HandleFunc("DELETE /agents/{id}", s.handleDeleteAgent)
	s.mux.HandleFunc("POST /agents/{id}/reload", s.handleReloadAgent)
	s.mux.HandleFunc("POST /agents/reload", s.handleReloadAll)

	s.mux.HandleFunc("GET /agents/{id}/files", s.handleListFiles)
	s.mux.HandleFunc("POST /agents/{id}/files/{name}", s.handleUploadFile)
	s.mux.HandleFunc("GET /agents/{id}/files/{name}", s.handleGetFile)
	s.mux.HandleFunc("DELETE /agents/{id}/files/{name}", s.handleDeleteFile)

	s.mux.HandleFunc("POST /agents/{id}/data/query", s.handleDataQuery)

	s.mux.HandleFunc("GET /rag/indexes", s.handleListIndexes)
	s.mux.HandleFunc("GET /rag/{index}/stats", s.handleIndexStats)
	s.mux.HandleFunc("GET /rag/{index}/documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /rag/{index}/documents", s.handleIngestDocument)
	s.mux.HandleFunc("DELETE /rag/{index}/documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("POST /rag/{index}/search", s.handleSearchIndex)

	s.mux.HandleFunc("GET /metrics/agents/{id}", s.handleAgentMetrics)
	s.mux.HandleFunc("GET /metrics/global", s.handleGlobalMetrics)
}
