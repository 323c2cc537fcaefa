// Package metrics implements C12: per-agent and global counters plus a
// rolling response-time window, built entirely on C3's Redis primitives —
// no separate metrics store, per spec §4.12.
package metrics

import (
	"context"
	"strconv"
	"time"

	"agentforge/internal/queue"
)

const (
	ttl            = 30 * 24 * time.Hour
	responseWindow = 1000 // entries kept per rolling list
	avgWindow      = 100  // entries averaged for avg_response_time
	globalScope    = "global"
)

// Service records and aggregates turn outcomes.
type Service struct {
	q *queue.Client
}

func New(q *queue.Client) *Service {
	return &Service{q: q}
}

func counterKey(scope, name string) string {
	return "metrics:" + scope + ":" + name
}

func responseTimesKey(scope string) string {
	return "metrics:" + scope + ":response_times"
}

// Record implements spec §4.10/§4.11's "on exit emit metrics" contract:
// increments messages/success-or-errors/tokens for both the agent scope and
// the global scope, and pushes responseTime onto both rolling windows.
// Read operations (Aggregate) never block this path — every call here is a
// fire-and-forget Redis write.
func (s *Service) Record(ctx context.Context, agentID string, responseTime time.Duration, tokensUsed int, success bool) {
	s.recordScope(ctx, agentID, responseTime, tokensUsed, success)
	s.recordScope(ctx, globalScope, responseTime, tokensUsed, success)
}

func (s *Service) recordScope(ctx context.Context, scope string, responseTime time.Duration, tokensUsed int, success bool) {
	s.incr(ctx, scope, "messages", 1)
	if success {
		s.incr(ctx, scope, "success", 1)
	} else {
		s.incr(ctx, scope, "errors", 1)
	}
	if tokensUsed > 0 {
		s.incr(ctx, scope, "tokens", int64(tokensUsed))
	}

	key := responseTimesKey(scope)
	ms := responseTime.Milliseconds()
	_ = s.q.LPush(ctx, key, strconv.FormatInt(ms, 10))
	_ = s.q.LTrim(ctx, key, 0, responseWindow-1)
	_ = s.q.Expire(ctx, key, ttl)
}

func (s *Service) incr(ctx context.Context, scope, name string, delta int64) {
	key := counterKey(scope, name)
	_, _ = s.q.IncrBy(ctx, key, delta)
	_ = s.q.Expire(ctx, key, ttl)
}

// Aggregate is the read-side result for spec §6's /metrics endpoints.
type Aggregate struct {
	Messages        int64   `json:"messages"`
	Tokens          int64   `json:"tokens"`
	Success         int64   `json:"success"`
	Errors          int64   `json:"errors"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseMS   float64 `json:"avg_response_time_ms"`
}

// AggregateFor reads the counters and rolling response-time window for one
// scope, either one agent or the global totals. Use AgentScope(id) or
// GlobalScope() for scope.
func (s *Service) AggregateFor(ctx context.Context, scope string) (Aggregate, error) {
	messages, err := s.q.GetInt(ctx, counterKey(scope, "messages"))
	if err != nil {
		return Aggregate{}, err
	}
	tokens, err := s.q.GetInt(ctx, counterKey(scope, "tokens"))
	if err != nil {
		return Aggregate{}, err
	}
	success, err := s.q.GetInt(ctx, counterKey(scope, "success"))
	if err != nil {
		return Aggregate{}, err
	}
	errs, err := s.q.GetInt(ctx, counterKey(scope, "errors"))
	if err != nil {
		return Aggregate{}, err
	}

	agg := Aggregate{Messages: messages, Tokens: tokens, Success: success, Errors: errs}
	if success+errs > 0 {
		agg.SuccessRate = float64(success) / float64(success+errs)
	}

	end := int64(avgWindow - 1)
	samples, err := s.q.LRange(ctx, responseTimesKey(scope), 0, end)
	if err != nil {
		return Aggregate{}, err
	}
	if len(samples) > 0 {
		var sum float64
		for _, v := range samples {
			if ms, err := strconv.ParseFloat(v, 64); err == nil {
				sum += ms
			}
		}
		agg.AvgResponseMS = sum / float64(len(samples))
	}
	return agg, nil
}

// AgentScope is the metrics scope key for a given agent id.
func AgentScope(agentID string) string { return agentID }

// GlobalScope is the metrics scope key for cross-agent totals.
func GlobalScope() string { return globalScope }
