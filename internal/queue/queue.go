// Package queue implements C3: a Redis Streams-backed durable queue client
// plus the key-value cache, counter, list, sorted-set, and set primitives
// the rest of the service builds on.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agentforge/internal/logging"
)

// Job is the durable queue payload from spec §3.
type Job struct {
	JobID            string          `json:"job_id"`
	AgentID          string          `json:"agent_id"`
	Message          Message         `json:"message"`
	History          []HistoryTurn   `json:"history"`
	Stream           bool            `json:"stream"`
	WebhookOutputURL string        `json:"webhook_output_url,omitempty"`
	EnqueuedAt       time.Time     `json:"enqueued_at"`
}

// Message is an inbound chat message, normalized by C10 before enqueue.
type Message struct {
	UserID         string            `json:"user_id"`
	Channel        string            `json:"channel"`
	Text           string            `json:"text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// HistoryTurn is one entry of prior conversation history.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delivery wraps a read message with the stream id needed to ack it.
type Delivery struct {
	ID  string
	Job Job
}

// Client wraps a single Redis connection with the queue/cache primitives
// spec §4.3 requires.
type Client struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping verifies connectivity, used by /health.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Enqueue appends job to the named stream with a server-assigned entry id,
// stamping a fresh job_id and enqueued_at if not already set.
func (c *Client) Enqueue(ctx context.Context, stream string, job Job) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("queue: marshal job: %w", err)
	}
	if _, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"payload": payload},
	}).Result(); err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return job.JobID, nil
}

// EnsureGroup creates the consumer group from offset 0 if it doesn't
// already exist; BUSYGROUP collisions are ignored.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue: ensure group: %w", err)
	}
	return nil
}

// Read performs a blocking consumer-group read of up to count messages.
func (c *Client) Read(ctx context.Context, stream, group, consumer string, block time.Duration, count int64) ([]Delivery, error) {
	if block <= 0 {
		block = time.Second
	}
	if count <= 0 {
		count = 1
	}
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: read: %w", err)
	}
	var out []Delivery
	for _, s := range res {
		for _, msg := range s.Messages {
			raw, _ := msg.Values["payload"].(string)
			var job Job
			if err := json.Unmarshal([]byte(raw), &job); err != nil {
				logging.From(ctx).Warn().Str("msg_id", msg.ID).Err(err).Msg("queue_unmarshal_job_failed")
				continue
			}
			out = append(out, Delivery{ID: msg.ID, Job: job})
		}
	}
	return out, nil
}

// Ack acknowledges one delivered message.
func (c *Client) Ack(ctx context.Context, stream, group, msgID string) error {
	return c.rdb.XAck(ctx, stream, group, msgID).Err()
}

// Publish is a best-effort pub/sub notification of a final answer.
func (c *Client) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, channel, data).Err()
}

// GetJSON reads and unmarshals a cached value. Returns ok=false on miss.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals and caches a value with ttl (0 = no expiry).
func (c *Client) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// IncrBy increments a counter and returns its new value.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.rdb.IncrBy(ctx, key, delta).Result()
}

// GetInt returns a counter's current value, 0 if unset.
func (c *Client) GetInt(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// LPush prepends values to a list.
func (c *Client) LPush(ctx context.Context, key string, values ...any) error {
	return c.rdb.LPush(ctx, key, values...).Err()
}

// LTrim bounds a list to [start, stop].
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) error {
	return c.rdb.LTrim(ctx, key, start, stop).Err()
}

// LRange returns list elements in [start, stop].
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}

// ZAdd inserts a scored member into a sorted set (used for retry scheduling).
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZRangeByScoreDue returns members whose score is <= maxScore (due retries).
func (c *Client) ZRangeByScoreDue(ctx context.Context, key string, maxScore float64) ([]string, error) {
	return c.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", maxScore),
	}).Result()
}

// ZRem removes a member from a sorted set.
func (c *Client) ZRem(ctx context.Context, key, member string) error {
	return c.rdb.ZRem(ctx, key, member).Err()
}

// SAdd adds members to a set (index membership tracking).
func (c *Client) SAdd(ctx context.Context, key string, members ...any) error {
	return c.rdb.SAdd(ctx, key, members...).Err()
}

// SMembers returns all members of a set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

// SRem removes a member from a set.
func (c *Client) SRem(ctx context.Context, key string, member any) error {
	return c.rdb.SRem(ctx, key, member).Err()
}

// Expire sets a TTL on a key, used to age out metrics keys.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// MGet reads multiple string keys in one round trip, used by the
// cache-backed vector store's batched brute-force search.
func (c *Client) MGet(ctx context.Context, keys ...string) ([]any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return c.rdb.MGet(ctx, keys...).Result()
}

// Del removes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
