package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"documind/internal/model"
)

// perPointPayloadBytes is the allowance used by SizeEstimate for chunk
// text plus metadata, on top of the raw vector bytes.
const perPointPayloadBytes = 512

// Qdrant is a minimal REST client to a Qdrant collection. It assumes
// cosine distance and creates the collection if missing.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Qdrant) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	s.dimension = dimension

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil); err != nil {
		return err
	}

	// Payload indexes speed up the metadata filters; existing indexes make
	// these calls fail harmlessly.
	indexes := map[string]string{
		"user_id":    "keyword",
		"session_id": "keyword",
		"filename":   "keyword",
		"permanent":  "bool",
		"created_at": "float",
		"expires_at": "float",
	}
	for field, schema := range indexes {
		req := map[string]any{"field_name": field, "field_schema": schema}
		_ = s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/index", s.collection), req, nil)
	}
	return nil
}

func (s *Qdrant) Upsert(ctx context.Context, chunks []model.Chunk) UpsertResult {
	var result UpsertResult
	if len(chunks) == 0 {
		return result
	}

	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":      PointID(ch.Filename, ch.Sequence),
			"vector":  ch.Embedding,
			"payload": chunkPayload(ch),
		}
	}
	body := map[string]any{"points": points}
	err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
	if err == nil {
		result.Stored = len(chunks)
		return result
	}

	// Batch write failed; retry point by point so one bad chunk cannot
	// sink the rest of the document.
	for i, ch := range chunks {
		single := map[string]any{"points": points[i : i+1]}
		if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), single, nil); err != nil {
			log.Printf("store chunk %s#%d failed: %v", ch.Filename, ch.Sequence, err)
			result.Failures = append(result.Failures, fmt.Sprintf("%s#%d: %v", ch.Filename, ch.Sequence, err))
			continue
		}
		result.Stored++
	}
	return result
}

func (s *Qdrant) Query(ctx context.Context, vector []float32, f Filter, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if qf := buildFilter(f); qf != nil {
		req["filter"] = qf
	}

	var resp struct {
		Result []struct {
			Score   *float64       `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), req, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		sr := SearchResult{Chunk: chunkFromPayload(r.Payload)}
		if r.Score != nil {
			// Cosine "score" is a similarity in [-1,1]; distance is its
			// complement.
			sr.Distance = 1 - *r.Score
			sr.HasDistance = true
		}
		results = append(results, sr)
	}
	return results, nil
}

func (s *Qdrant) Delete(ctx context.Context, f Filter) (int, error) {
	qf := buildFilter(f)
	if qf == nil {
		return 0, fmt.Errorf("refusing to delete with an empty filter")
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	countReq := map[string]any{"filter": qf, "exact": true}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", s.collection), countReq, &countResp); err != nil {
		return 0, err
	}
	if countResp.Result.Count == 0 {
		return 0, nil
	}

	deleteReq := map[string]any{"filter": qf}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), deleteReq, nil); err != nil {
		return 0, err
	}
	return countResp.Result.Count, nil
}

func (s *Qdrant) SetExpiry(ctx context.Context, f Filter, expiresAt time.Time) error {
	qf := buildFilter(f)
	if qf == nil {
		return fmt.Errorf("refusing to update payload with an empty filter")
	}
	req := map[string]any{
		"payload": map[string]any{"expires_at": float64(expiresAt.Unix())},
		"filter":  qf,
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/payload?wait=true", s.collection), req, nil)
}

// SizeEstimate approximates the collection footprint from its point count:
// vector bytes plus a flat payload allowance per point. Qdrant does not
// expose disk usage over this API.
func (s *Qdrant) SizeEstimate(ctx context.Context) (int64, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil, &resp); err != nil {
		return 0, err
	}
	perPoint := int64(s.dimension*4 + perPointPayloadBytes)
	return resp.Result.PointsCount * perPoint, nil
}

func chunkPayload(ch model.Chunk) map[string]any {
	payload := map[string]any{
		"filename":   ch.Filename,
		"doctype":    string(ch.DocType),
		"page":       ch.Page,
		"chunk_id":   ch.Sequence,
		"text":       ch.Text,
		"user_id":    ch.UserID,
		"permanent":  ch.Permanent,
		"created_at": float64(ch.CreatedAt.Unix()),
	}
	if ch.SessionID != "" {
		payload["session_id"] = ch.SessionID
	}
	if ch.ExpiresAt != nil {
		payload["expires_at"] = float64(ch.ExpiresAt.Unix())
	}
	return payload
}

func chunkFromPayload(payload map[string]any) model.Chunk {
	var ch model.Chunk
	if v, ok := payload["filename"].(string); ok {
		ch.Filename = v
	}
	if v, ok := payload["doctype"].(string); ok {
		ch.DocType = model.DocType(v)
	}
	if v, ok := payload["page"].(float64); ok {
		ch.Page = int(v)
	}
	if v, ok := payload["chunk_id"].(float64); ok {
		ch.Sequence = int(v)
	}
	if v, ok := payload["text"].(string); ok {
		ch.Text = v
	}
	if v, ok := payload["user_id"].(string); ok {
		ch.UserID = v
	}
	if v, ok := payload["session_id"].(string); ok {
		ch.SessionID = v
	}
	if v, ok := payload["permanent"].(bool); ok {
		ch.Permanent = v
	}
	if v, ok := payload["created_at"].(float64); ok {
		ch.CreatedAt = time.Unix(int64(v), 0)
	}
	if v, ok := payload["expires_at"].(float64); ok {
		t := time.Unix(int64(v), 0)
		ch.ExpiresAt = &t
	}
	return ch
}

func buildFilter(f Filter) map[string]any {
	var must []map[string]any
	var should []map[string]any

	match := func(key string, value any) map[string]any {
		return map[string]any{"key": key, "match": map[string]any{"value": value}}
	}
	rangeLt := func(key string, t time.Time) map[string]any {
		return map[string]any{"key": key, "range": map[string]any{"lt": float64(t.Unix())}}
	}

	if f.UserID != "" {
		must = append(must, match("user_id", f.UserID))
	}
	if f.Filename != "" {
		must = append(must, match("filename", f.Filename))
	}
	if f.SessionID != "" {
		if f.OrPermanent {
			should = append(should, match("session_id", f.SessionID), match("permanent", true))
		} else {
			must = append(must, match("session_id", f.SessionID))
		}
	}
	if f.Permanent != nil {
		must = append(must, match("permanent", *f.Permanent))
	}
	if !f.ExpiredBefore.IsZero() {
		must = append(must, rangeLt("expires_at", f.ExpiredBefore))
	}
	if !f.CreatedBefore.IsZero() {
		must = append(must, rangeLt("created_at", f.CreatedBefore))
	}

	if len(must) == 0 && len(should) == 0 {
		return nil
	}
	out := map[string]any{}
	if len(must) > 0 {
		out["must"] = must
	}
	if len(should) > 0 {
		out["should"] = should
	}
	return out
}

func (s *Qdrant) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse qdrant response failed: %w", err)
		}
	}
	return nil
}
