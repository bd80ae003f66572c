package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// QdrantStore keeps the index in a Qdrant collection over its HTTP
// API. Qdrant owns durability, so Store/Delete need no extra persist
// step.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	created bool
}

// qdrantStatus accepts both `"ok"` and `{"error":"..."}` shapes.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Score   float64        `json:"score,omitempty"`
}

func NewQdrantStore(baseURL, collection, apiKey string) *QdrantStore {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (qs *QdrantStore) do(ctx context.Context, method, path string, payload any, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode qdrant request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, qs.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if qs.apiKey != "" {
		req.Header.Set("api-key", qs.apiKey)
	}

	resp, err := qs.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read qdrant response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

func (qs *QdrantStore) ensureCollection(ctx context.Context, dim int) error {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	if qs.created {
		return nil
	}
	payload := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	// PUT is idempotent for an existing collection of the same shape.
	var env qdrantEnvelope[any]
	if err := qs.do(ctx, http.MethodPut, "/collections/"+qs.collection, payload, &env); err != nil {
		// A conflict means the collection already exists; keep going.
		if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "status 409") {
			return err
		}
	}
	qs.created = true
	return nil
}

func (qs *QdrantStore) Store(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	if err := qs.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payload := map[string]any{"content": doc.Content}
		for k, v := range doc.Metadata {
			payload["meta_"+k] = v
		}
		points[i] = map[string]any{
			"id":      doc.ID,
			"vector":  vectors[i],
			"payload": payload,
		}
	}
	var env qdrantEnvelope[any]
	return qs.do(ctx, http.MethodPut,
		"/collections/"+qs.collection+"/points?wait=true",
		map[string]any{"points": points}, &env)
}

func (qs *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	payload := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var env qdrantEnvelope[[]qdrantPoint]
	if err := qs.do(ctx, http.MethodPost,
		"/collections/"+qs.collection+"/points/search", payload, &env); err != nil {
		return nil, err
	}
	if env.Status.State == "error" {
		return nil, fmt.Errorf("qdrant search: %s", env.Status.Error)
	}

	out := make([]ScoredDocument, 0, len(env.Result))
	for _, p := range env.Result {
		doc := Document{ID: p.ID, Metadata: map[string]string{}}
		for key, val := range p.Payload {
			sval, ok := val.(string)
			if !ok {
				continue
			}
			if key == "content" {
				doc.Content = sval
			} else if meta, found := strings.CutPrefix(key, "meta_"); found {
				doc.Metadata[meta] = sval
			}
		}
		out = append(out, ScoredDocument{Document: doc, Score: p.Score})
	}
	return out, nil
}

func (qs *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var env qdrantEnvelope[any]
	return qs.do(ctx, http.MethodPost,
		"/collections/"+qs.collection+"/points/delete?wait=true",
		map[string]any{"points": ids}, &env)
}

func (qs *QdrantStore) Count(ctx context.Context) (int, error) {
	var env qdrantEnvelope[struct {
		Count int `json:"count"`
	}]
	if err := qs.do(ctx, http.MethodPost,
		"/collections/"+qs.collection+"/points/count",
		map[string]any{"exact": true}, &env); err != nil {
		return 0, err
	}
	return env.Result.Count, nil
}

func (qs *QdrantStore) Close(context.Context) error { return nil }

var _ VectorStore = (*QdrantStore)(nil)
