package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEncoder implements Encoder against a remote embedding API. Only the
// request/response shape differs from provider to provider; callers supply
// the endpoint and model via Config.
type HTTPEncoder struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	model     string
	dimension int
}

// NewHTTPEncoder creates a new remote-API-backed encoder.
func NewHTTPEncoder(endpoint, apiKey, model string, dimension int, timeout time.Duration) *HTTPEncoder {
	if dimension <= 0 {
		dimension = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEncoder{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
	}
}

func (e *HTTPEncoder) Dimension() int { return e.dimension }
func (e *HTTPEncoder) Model() string  { return e.model }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Encode implements Encoder.
func (e *HTTPEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: no vector returned for text")
	}
	return vecs[0], nil
}

// EncodeBatch implements Encoder.
func (e *HTTPEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: failed to parse response: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
