package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"agentforge/internal/logging"
)

// payloadIDField stores the original caller-supplied id when it isn't
// itself a UUID, since Qdrant point ids must be UUIDs or positive integers.
const payloadIDField = "_original_id"

type qdrantStore struct {
	client *qdrant.Client
	metric string
}

// NewQdrantStore connects to a Qdrant instance over gRPC, retrying the
// initial connection up to 30 times with a 1s pause, per spec §4.4.
func NewQdrantStore(ctx context.Context, dsn, metric string) (Store, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid qdrant port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	var client *qdrant.Client
	var lastErr error
	for attempt := 1; attempt <= 30; attempt++ {
		client, lastErr = qdrant.NewClient(cfg)
		if lastErr == nil {
			if _, pingErr := client.HealthCheck(ctx); pingErr == nil {
				break
			} else {
				lastErr = pingErr
			}
		}
		logging.From(ctx).Warn().Int("attempt", attempt).Err(lastErr).Msg("vectorstore_qdrant_connect_retry")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("vectorstore: connect to qdrant after 30 attempts: %w", lastErr)
	}

	return &qdrantStore{client: client, metric: strings.ToLower(strings.TrimSpace(metric))}, nil
}

func (q *qdrantStore) distance() qdrant.Distance {
	switch q.metric {
	case "l2", "euclidean":
		return qdrant.Distance_Euclid
	case "ip", "dot":
		return qdrant.Distance_Dot
	case "manhattan":
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Cosine
	}
}

// EnsureCollection is idempotent: it creates the collection with the given
// dimension only if it doesn't already exist.
func (q *qdrantStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("vectorstore: check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if dim <= 0 {
		return fmt.Errorf("vectorstore: dimension must be > 0 to create collection %q", name)
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: q.distance(),
		}),
	})
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *qdrantStore) Upsert(ctx context.Context, name, id string, vec []float32, payload map[string]string) error {
	uuidStr := pointUUID(id)
	payloadAny := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		payloadAny[k] = v
	}
	if uuidStr != id {
		payloadAny[payloadIDField] = id
	}
	v := make([]float32, len(vec))
	copy(v, vec)
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(v),
			Payload: qdrant.NewValueMap(payloadAny),
		}},
	})
	return err
}

func (q *qdrantStore) Delete(ctx context.Context, name, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointUUID(id))),
	})
	return err
}

func (q *qdrantStore) Count(ctx context.Context, name string) (int64, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: name})
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (q *qdrantStore) Scroll(ctx context.Context, name string, limit int, cursor string) ([]Point, string, error) {
	if limit <= 0 {
		limit = 100
	}
	req := &qdrant.ScrollPoints{
		CollectionName: name,
		Limit:          uint32Ptr(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if cursor != "" {
		req.Offset = qdrant.NewIDUUID(cursor)
	}
	points, err := q.client.Scroll(ctx, req)
	if err != nil {
		return nil, "", err
	}
	out := make([]Point, 0, len(points))
	var next string
	for _, p := range points {
		out = append(out, toPoint(p.GetId(), 0, p.GetPayload()))
		next = p.GetId().GetUuid()
	}
	if len(points) < limit {
		next = ""
	}
	return out, next, nil
}

func (q *qdrantStore) Search(ctx context.Context, name string, vec []float32, k int) ([]Point, error) {
	if k <= 0 {
		k = 10
	}
	v := make([]float32, len(vec))
	copy(v, vec)
	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQueryDense(v),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Point, 0, len(hits))
	for _, hit := range hits {
		out = append(out, toPoint(hit.GetId(), float64(hit.GetScore()), hit.GetPayload()))
	}
	return out, nil
}

func (q *qdrantStore) Exists(ctx context.Context, name, id string) (bool, error) {
	res, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: name,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointUUID(id))},
	})
	if err != nil {
		return false, err
	}
	return len(res) > 0, nil
}

func (q *qdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	return q.client.ListCollections(ctx)
}

func (q *qdrantStore) Close() error {
	return q.client.Close()
}

func toPoint(rawID *qdrant.PointId, score float64, payload map[string]*qdrant.Value) Point {
	uuidStr := rawID.GetUuid()
	if uuidStr == "" {
		uuidStr = rawID.String()
	}
	metadata := make(map[string]string, len(payload))
	originalID := ""
	for k, v := range payload {
		if k == payloadIDField {
			originalID = v.GetStringValue()
			continue
		}
		metadata[k] = v.GetStringValue()
	}
	id := originalID
	if id == "" {
		id = uuidStr
	}
	return Point{ID: id, Score: score, Payload: metadata}
}

func uint32Ptr(v uint32) *uint32 { return &v }
