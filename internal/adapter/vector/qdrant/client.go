// Package qdrant mirrors candidate embeddings into a Qdrant collection over
// its HTTP API. It backs the optional similar-candidate search; the ranking
// path never reads from it.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hiregrid/matchengine/internal/domain"
)

// Index is a minimal Qdrant HTTP client bound to one collection.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

// New constructs an Index with baseURL, optional apiKey, and collection name.
func New(baseURL, apiKey, collection string) *Index {
	return &Index{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureCollection creates the collection if it does not exist.
func (c *Index) EnsureCollection(ctx context.Context, vectorSize int) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil)
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	payload := map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	}
	b, _ := json.Marshal(payload)
	req, _ = http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), bytes.NewReader(b))
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err = c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant ensure create status %d", resp.StatusCode)
	}
	return nil
}

// UpsertCandidate inserts or replaces one candidate point keyed by the
// candidate id.
func (c *Index) UpsertCandidate(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if id == "" || len(vector) == 0 {
		return fmt.Errorf("qdrant upsert: id and vector are required: %w", domain.ErrInvalidArgument)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["candidate_id"] = id
	body := map[string]any{
		"points": []map[string]any{{
			"id":      id,
			"vector":  vector,
			"payload": payload,
		}},
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points", c.baseURL, c.collection), bytes.NewReader(b))
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status %d", resp.StatusCode)
	}
	return nil
}

// SearchSimilar returns the top-k nearest candidates for a vector.
func (c *Index) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]domain.SimilarCandidate, error) {
	body := map[string]any{"vector": vector, "limit": topK, "with_payload": true}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection), bytes.NewReader(b))
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status %d", resp.StatusCode)
	}
	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	hits := make([]domain.SimilarCandidate, 0, len(out.Result))
	for _, r := range out.Result {
		id, _ := r.ID.(string)
		if id == "" {
			if cid, ok := r.Payload["candidate_id"].(string); ok {
				id = cid
			}
		}
		hits = append(hits, domain.SimilarCandidate{CandidateID: id, Score: r.Score})
	}
	return hits, nil
}

func (c *Index) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
