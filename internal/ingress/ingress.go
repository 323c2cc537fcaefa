// Package ingress implements C10: webhook body normalization, sanitization,
// routing by agent id or webhook name, and the branch between the
// synchronous SSE path and the durable-queue path, per spec §4.10.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agentforge/internal/agentsvc"
	"agentforge/internal/apperr"
	"agentforge/internal/logging"
	"agentforge/internal/metrics"
	"agentforge/internal/queue"
	"agentforge/internal/registry"
	"agentforge/internal/sanitize"
)

const defaultJobStream = "agentforge:jobs"

// webhookBody is the inbound shape from spec §4.10.
type webhookBody struct {
	UserID           string            `json:"user_id,omitempty"`
	Channel          string            `json:"channel,omitempty"`
	Text             string            `json:"text"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	History          []historyEntry    `json:"history,omitempty"`
	Stream           bool              `json:"stream,omitempty"`
	WebhookOutputURL string            `json:"webhook_output_url,omitempty"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Handler wires the registry, queue, agent service, and metrics together
// for both inbound webhook routes.
type Handler struct {
	Registry  *registry.Manager
	Queue     *queue.Client
	Agents    *agentsvc.Service
	Metrics   *metrics.Service
	JobStream string
}

func New(reg *registry.Manager, q *queue.Client, agents *agentsvc.Service, m *metrics.Service, jobStream string) *Handler {
	if jobStream == "" {
		jobStream = defaultJobStream
	}
	return &Handler{Registry: reg, Queue: q, Agents: agents, Metrics: m, JobStream: jobStream}
}

// ByAgentID handles POST /webhooks/agent/{agent_id}.
func (h *Handler) ByAgentID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("agent_id")
	a, ok := h.Registry.Registry.Get(id)
	if !ok {
		writeError(w, apperr.NotFound(fmt.Sprintf("ingress: unknown agent %q", id)))
		return
	}
	h.handle(w, r, a)
}

// ByWebhookName handles POST /webhooks/{webhook_name}.
func (h *Handler) ByWebhookName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("webhook_name")
	a, ok := h.Registry.Registry.GetByWebhookName(name)
	if !ok {
		writeError(w, apperr.NotFound(fmt.Sprintf("ingress: unknown webhook %q", name)))
		return
	}
	h.handle(w, r, a)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, a *registry.Agent) {
	ctx := logging.WithComponent(r.Context(), "ingress")
	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.Validation("ingress: invalid request body"))
		return
	}

	msg, history := normalize(body)

	if body.Stream {
		h.runStream(ctx, w, a, msg, history)
		return
	}
	h.enqueue(ctx, w, a, msg, history, body.WebhookOutputURL)
}

// normalize sanitizes every user-controlled string field, per spec §4.10's
// allow-list policy, before the message ever reaches a prompt or storage.
func normalize(body webhookBody) (queue.Message, []queue.HistoryTurn) {
	msg := queue.Message{
		UserID:         sanitize.Text(body.UserID),
		Channel:        sanitize.Text(body.Channel),
		Text:           sanitize.Text(body.Text),
		Metadata:       sanitize.Map(body.Metadata),
		ConversationID: sanitize.Text(body.ConversationID),
	}
	history := make([]queue.HistoryTurn, 0, len(body.History))
	for _, he := range body.History {
		if he.Role != "user" && he.Role != "assistant" {
			continue
		}
		history = append(history, queue.HistoryTurn{Role: he.Role, Content: sanitize.Text(he.Content)})
	}
	return msg, history
}

// runStream opens an SSE response and streams C9's content deltas,
// matching the teacher's handlers_chat.go writeSSE pattern: a
// mutex-guarded Flusher-backed writer emitting `data: <json>\n\n` frames.
func (h *Handler) runStream(ctx context.Context, w http.ResponseWriter, a *registry.Agent, msg queue.Message, history []queue.HistoryTurn) {
	log := logging.From(ctx)
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	writeSSE := func(payload string) {
		b, err := json.Marshal(payload)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "data: %s\n\n", b)
		fl.Flush()
	}

	start := time.Now()
	result := h.Agents.Process(ctx, a, msg, history, func(delta string) {
		writeSSE(delta)
	})
	if !result.Success {
		writeSSE(fmt.Sprintf("[ERRO: %s]", result.Content))
	}

	h.Metrics.Record(ctx, a.ID, time.Since(start), result.Usage.TotalTokens, result.Success)
	log.Info().Str("agent_id", a.ID).Bool("success", result.Success).Msg("ingress_stream_done")
}

// enqueue builds a Job and durably appends it to the queue, per spec
// §4.10's asynchronous path.
func (h *Handler) enqueue(ctx context.Context, w http.ResponseWriter, a *registry.Agent, msg queue.Message, history []queue.HistoryTurn, webhookOutputURL string) {
	log := logging.From(ctx)
	start := time.Now()

	job := queue.Job{
		AgentID:          a.ID,
		Message:          msg,
		History:          history,
		Stream:           false,
		WebhookOutputURL: webhookOutputURL,
	}
	jobID, err := h.Queue.Enqueue(ctx, h.JobStream, job)
	success := err == nil
	h.Metrics.Record(ctx, a.ID, time.Since(start), 0, success)
	if err != nil {
		log.Error().Str("agent_id", a.ID).Err(err).Msg("ingress_enqueue_failed")
		writeError(w, apperr.Unavailable("ingress: could not enqueue job"))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   "enqueued",
		"job_id":   jobID,
		"agent_id": a.ID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusFor(err), map[string]string{"error": err.Error()})
}
