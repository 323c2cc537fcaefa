package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"agentforge/internal/apperr"
	"agentforge/internal/auth"
	"agentforge/internal/dataquery"
	"agentforge/internal/logging"
	"agentforge/internal/metrics"
	"agentforge/internal/registry"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func respondAppErr(w http.ResponseWriter, err error) {
	respondError(w, apperr.StatusFor(err), err)
}

// defaultBackend picks the first configured vector-store backend, favoring
// the persistent one, when a route needs a backend but none is named.
func (s *Server) defaultBackend() string {
	if _, ok := s.stores["qdrant"]; ok {
		return "qdrant"
	}
	for k := range s.stores {
		return k
	}
	return "cache"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]any{
		"status":        "ok",
		"redis":         "ok",
		"agents_loaded": len(s.registry.Registry.IDs()),
	}
	if err := s.queue.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
	}
	respondJSON(w, http.StatusOK, status)
}

// ---- auth ----

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.authSt == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("httpapi: auth store not configured"))
		return
	}
	exists, err := s.authSt.AnyUserExists(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if exists {
		respondError(w, http.StatusConflict, errors.New("httpapi: setup already completed"))
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusUnprocessableEntity, errors.New("httpapi: email and password are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	u := &auth.User{Email: req.Email, PasswordHash: hash, Level: auth.LevelAdminGeral}
	if _, err := s.authSt.CreateUser(ctx, u); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "email": u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.authSt == nil || s.issuer == nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("httpapi: auth not configured"))
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	u, err := s.authSt.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, auth.ErrNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		respondError(w, http.StatusUnauthorized, errors.New("httpapi: invalid credentials"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	token, jti, expiresAt, err := s.issuer.Issue(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.authSt.RecordAccessToken(ctx, &auth.AccessToken{
		JTI: jti, UserID: u.ID, IssuedAt: time.Now(), ExpiresAt: expiresAt,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	auth.SetAccessTokenCookie(w, token, expiresAt, s.secure)
	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_at":   expiresAt,
		"user":         map[string]string{"id": u.ID, "email": u.Email, "level": string(u.Level)},
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("httpapi: no active session"))
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.authSt != nil && s.issuer != nil {
		if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
			if claims, err := s.issuer.Verify(c.Value); err == nil {
				_ = s.authSt.RevokeToken(ctx, claims.ID)
			}
		}
	}
	auth.ClearAccessTokenCookie(w, s.secure)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ---- agents ----

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"agents": s.registry.Registry.All()})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.registry.Registry.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: agent not found"))
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var a registry.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.registry.Save(r.Context(), &a); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var a registry.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.ID = r.PathValue("id")
	if err := s.registry.Save(r.Context(), &a); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondAppErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReloadAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.ReloadOne(r.Context(), r.PathValue("id")); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleReloadAll(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.LoadAll(r.Context()); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// ---- agent files / data query (C8) ----

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	respondJSON(w, http.StatusOK, map[string]any{"files": s.cache.Files(id)})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := dataquery.SaveFile(s.dataDir, id, name, data); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	frame, err := dataquery.LoadFile(name, data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.cache.Put(id, name, frame)
	rows, cols := frame.Shape()
	respondJSON(w, http.StatusCreated, map[string]any{"name": name, "rows": rows, "columns": cols})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")
	frame, ok := s.cache.Get(id, name)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: file not loaded"))
		return
	}
	rows, cols := frame.Shape()
	respondJSON(w, http.StatusOK, map[string]any{
		"name": name, "rows": rows, "columns": cols,
		"columns_list": frame.Columns, "dtypes": frame.Dtypes(),
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")
	s.cache.Evict(id, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDataQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Query string `json:"query"`
		File  string `json:"file,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	filename := req.File
	if filename == "" {
		files := s.cache.Files(id)
		if len(files) == 0 {
			respondError(w, http.StatusNotFound, errors.New("httpapi: no dataframe loaded for this agent"))
			return
		}
		filename = files[0]
	}
	frame, ok := s.cache.Get(id, filename)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: file not loaded"))
		return
	}
	respondJSON(w, http.StatusOK, s.pool.Run(frame, req.Query))
}

// ---- rag (C7) ----

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seen := map[string]bool{}
	var names []string
	for _, store := range s.stores {
		cols, err := store.ListCollections(ctx)
		if err != nil {
			continue
		}
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				names = append(names, c)
			}
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"indexes": names})
}

func (s *Server) resolveStore(r *http.Request) (string, bool) {
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		backend = s.defaultBackend()
	}
	_, ok := s.rag.Store(backend)
	return backend, ok
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	backend, ok := s.resolveStore(r)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: unknown backend"))
		return
	}
	store, _ := s.rag.Store(backend)
	count, err := store.Count(r.Context(), index)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"index": index, "backend": backend, "count": count})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	backend, ok := s.resolveStore(r)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: unknown backend"))
		return
	}
	store, _ := s.rag.Store(backend)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	points, next, err := store.Scroll(r.Context(), index, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": points, "next_cursor": next})
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	var req struct {
		AgentID    string `json:"agent_id"`
		SourceFile string `json:"source_file"`
		Text       string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a, ok := s.registry.Registry.Get(req.AgentID)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: unknown agent"))
		return
	}
	if a.RAG == nil || a.RAG.IndexName != index {
		respondError(w, http.StatusUnprocessableEntity, errors.New("httpapi: agent is not bound to this index"))
		return
	}

	ids, err := s.rag.IngestDocument(r.Context(), a, req.SourceFile, req.Text)
	if err != nil {
		logging.From(r.Context()).Error().Err(err).Msg("rag_ingest_failed")
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	index, id := r.PathValue("index"), r.PathValue("id")
	backend, ok := s.resolveStore(r)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: unknown backend"))
		return
	}
	store, _ := s.rag.Store(backend)
	if err := store.Delete(r.Context(), index, id); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchIndex(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
		Model string `json:"embed_model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	backend, ok := s.resolveStore(r)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("httpapi: unknown backend"))
		return
	}
	store, _ := s.rag.Store(backend)

	k := req.TopK
	if k <= 0 {
		k = 5
	}
	vec, err := s.rag.Embed(r.Context(), req.Model, req.Query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	hits, err := store.Search(r.Context(), index, vec, k)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// ---- metrics (C12) ----

func (s *Server) handleAgentMetrics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	agg, err := s.metrics.AggregateFor(r.Context(), metrics.AgentScope(id))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, agg)
}

func (s *Server) handleGlobalMetrics(w http.ResponseWriter, r *http.Request) {
	agg, err := s.metrics.AggregateFor(r.Context(), metrics.GlobalScope())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, agg)
}
