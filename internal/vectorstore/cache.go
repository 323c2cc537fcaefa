package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"agentforge/internal/queue"
)

const cacheSearchBatch = 200

// storedVector is the JSON shape cached under vec:<collection>:<id>.
type storedVector struct {
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// cacheStore is the brute-force fallback backend: vectors and payloads live
// as cache keys, and a per-collection set tracks membership for scan/search.
type cacheStore struct {
	q *queue.Client

	mu   sync.Mutex
	dims map[string]int
}

func NewCacheStore(q *queue.Client) Store {
	return &cacheStore{q: q, dims: make(map[string]int)}
}

func vectorKey(collection, id string) string {
	return fmt.Sprintf("vec:%s:%s", collection, id)
}

func indexKey(collection string) string {
	return fmt.Sprintf("vecidx:%s", collection)
}

func (c *cacheStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dims[name]; !ok {
		c.dims[name] = dim
	}
	return nil
}

func (c *cacheStore) Upsert(ctx context.Context, name, id string, vec []float32, payload map[string]string) error {
	if err := c.q.SetJSON(ctx, vectorKey(name, id), storedVector{Vector: vec, Payload: payload}, 0); err != nil {
		return err
	}
	return c.q.SAdd(ctx, indexKey(name), id)
}

func (c *cacheStore) Delete(ctx context.Context, name, id string) error {
	if err := c.q.Del(ctx, vectorKey(name, id)); err != nil {
		return err
	}
	return c.q.SRem(ctx, indexKey(name), id)
}

func (c *cacheStore) Count(ctx context.Context, name string) (int64, error) {
	ids, err := c.q.SMembers(ctx, indexKey(name))
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (c *cacheStore) Scroll(ctx context.Context, name string, limit int, cursor string) ([]Point, string, error) {
	ids, err := c.q.SMembers(ctx, indexKey(name))
	if err != nil {
		return nil, "", err
	}
	sort.Strings(ids)
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id > cursor {
				start = i
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[start:end]

	points := make([]Point, 0, len(page))
	for _, id := range page {
		var sv storedVector
		ok, err := c.q.GetJSON(ctx, vectorKey(name, id), &sv)
		if err != nil || !ok {
			continue
		}
		points = append(points, Point{ID: id, Payload: sv.Payload})
	}
	next := ""
	if end < len(ids) {
		next = ids[end-1]
	}
	return points, next, nil
}

// Search performs brute-force cosine similarity over every member of the
// collection's index set, batching cache reads 200 at a time, sorting
// descending, and truncating to k, per spec §4.4.
func (c *cacheStore) Search(ctx context.Context, name string, vec []float32, k int) ([]Point, error) {
	if k <= 0 {
		k = 10
	}
	ids, err := c.q.SMembers(ctx, indexKey(name))
	if err != nil {
		return nil, err
	}

	var scored []Point
	for start := 0; start < len(ids); start += cacheSearchBatch {
		end := start + cacheSearchBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = vectorKey(name, id)
		}
		raw, err := c.q.MGet(ctx, keys...)
		if err != nil {
			return nil, err
		}
		for i, r := range raw {
			if r == nil {
				continue
			}
			s, ok := r.(string)
			if !ok {
				continue
			}
			var sv storedVector
			if err := json.Unmarshal([]byte(s), &sv); err != nil {
				continue
			}
			scored = append(scored, Point{
				ID:      batch[i],
				Score:   cosine(vec, sv.Vector),
				Payload: sv.Payload,
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (c *cacheStore) Exists(ctx context.Context, name, id string) (bool, error) {
	var sv storedVector
	ok, err := c.q.GetJSON(ctx, vectorKey(name, id), &sv)
	return ok, err
}

func (c *cacheStore) ListCollections(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.dims))
	for name := range c.dims {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (c *cacheStore) Close() error { return nil }
