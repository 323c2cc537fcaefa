// Package worker implements C11: a cooperative pool of consumers draining
// the durable job queue, running one turn through C9 per job, and
// delivering the result by outbound webhook and pub/sub, per spec §4.11.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"agentforge/internal/agentsvc"
	"agentforge/internal/logging"
	"agentforge/internal/metrics"
	"agentforge/internal/queue"
	"agentforge/internal/registry"
)

const (
	defaultJobStream = "agentforge:jobs"
	group            = "workers"
	blockTimeout     = 1 * time.Second
	pollBackoff      = 100 * time.Millisecond
	webhookTimeout   = 10 * time.Second

	retryKey   = "worker:retries"
	dlqKey     = "worker:dead_letter"
	dlqMaxSize = 10000
	maxRetries = 3
)

// Pool runs N cooperative consumers sharing one consumer group.
type Pool struct {
	Queue     *queue.Client
	Registry  *registry.Manager
	Agents    *agentsvc.Service
	Metrics   *metrics.Service
	N         int
	JobStream string

	httpClient *http.Client
	wg         sync.WaitGroup
}

func New(q *queue.Client, reg *registry.Manager, agents *agentsvc.Service, m *metrics.Service, n int, jobStream string) *Pool {
	if n <= 0 {
		n = 3
	}
	if jobStream == "" {
		jobStream = defaultJobStream
	}
	return &Pool{
		Queue:      q,
		Registry:   reg,
		Agents:     agents,
		Metrics:    m,
		N:          n,
		JobStream:  jobStream,
		httpClient: &http.Client{Timeout: webhookTimeout},
	}
}

// Start ensures the consumer group exists and launches N consumer
// goroutines. It returns immediately; call Wait or let ctx cancellation
// drive shutdown.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.Queue.EnsureGroup(ctx, p.JobStream, group); err != nil {
		return err
	}
	for i := 1; i <= p.N; i++ {
		name := consumerName(i)
		p.wg.Add(1)
		go p.run(ctx, name)
	}
	return nil
}

// Wait blocks until every consumer goroutine has returned (i.e. the
// in-flight job at cancellation time has finished).
func (p *Pool) Wait() {
	p.wg.Wait()
}

func consumerName(i int) string {
	return "worker-" + strconv.Itoa(i)
}

// run implements the consumer loop from spec §4.11: blocking read, process,
// light backoff. Cancellation is bounded by one block interval because the
// read itself uses the blocking variant.
func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	log := logging.From(ctx).With().Str("consumer", name).Logger()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker_shutdown")
			return
		default:
		}

		deliveries, err := p.Queue.Read(ctx, p.JobStream, group, name, blockTimeout, 1)
		if err != nil {
			log.Warn().Err(err).Msg("worker_read_failed")
			time.Sleep(pollBackoff)
			continue
		}
		for _, d := range deliveries {
			p.processJob(ctx, d)
		}
		time.Sleep(pollBackoff)
	}
}

// processJob implements spec §4.11's process_job contract.
func (p *Pool) processJob(ctx context.Context, d queue.Delivery) {
	log := logging.From(ctx).With().Str("job_id", d.Job.JobID).Str("agent_id", d.Job.AgentID).Logger()
	start := time.Now()

	a, ok := p.Registry.Registry.Get(d.Job.AgentID)
	if !ok {
		log.Warn().Msg("worker_unknown_agent_dropped")
		_ = p.Queue.Ack(ctx, p.JobStream, group, d.ID)
		return
	}

	result := p.Agents.Process(ctx, a, d.Job.Message, d.Job.History, nil)

	if d.Job.WebhookOutputURL != "" {
		if err := p.postOutput(ctx, d.Job.WebhookOutputURL, d.Job, result); err != nil {
			log.Error().Err(err).Msg("worker_webhook_post_failed")
		}
	}

	_ = p.Queue.Publish(ctx, "agent_response:"+a.ID, map[string]any{
		"job_id":      d.Job.JobID,
		"agent_id":    a.ID,
		"response":    result.Content,
		"success":     result.Success,
		"tokens_used": result.Usage.TotalTokens,
	})

	// Ack unconditionally: a failed turn is a user-visible error message,
	// not a transport failure, and retrying it would just repeat the same
	// error. Retrying is reserved for failures before this point.
	_ = p.Queue.Ack(ctx, p.JobStream, group, d.ID)

	p.Metrics.Record(ctx, a.ID, time.Since(start), result.Usage.TotalTokens, result.Success)
}

func (p *Pool) postOutput(ctx context.Context, url string, job queue.Job, result agentsvc.TurnResult) error {
	body, err := json.Marshal(map[string]any{
		"job_id":   job.JobID,
		"agent_id": job.AgentID,
		"content":  result.Content,
		"success":  result.Success,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ScheduleRetry implements spec §4.11's optional retry path: schedule a
// retry entry due at now + 2^attempt*60s, moving to a capped dead-letter
// list after maxRetries attempts.
func (p *Pool) ScheduleRetry(ctx context.Context, jobID string, attempt int) error {
	if attempt >= maxRetries {
		if err := p.Queue.LPush(ctx, dlqKey, jobID); err != nil {
			return err
		}
		return p.Queue.LTrim(ctx, dlqKey, 0, dlqMaxSize-1)
	}
	due := float64(time.Now().Add(backoff(attempt)).Unix())
	return p.Queue.ZAdd(ctx, retryKey, due, jobID)
}

func backoff(attempt int) time.Duration {
	mult := 1 << uint(attempt)
	return time.Duration(mult) * 60 * time.Second
}

// DueRetries returns job ids whose retry is due as of now.
func (p *Pool) DueRetries(ctx context.Context) ([]string, error) {
	return p.Queue.ZRangeByScoreDue(ctx, retryKey, float64(time.Now().Unix()))
}
