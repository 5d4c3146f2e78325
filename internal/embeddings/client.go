// Package embeddings implements the batch-oriented path that fills
// Job.Embedding: a plain EmbeddingClient over the configured provider,
// and a Runner that walks jobs with a null embedding.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

// OllamaClient calls a local Ollama server's /api/embeddings endpoint
// one text at a time — the only mode its embeddings API supports —
// and satisfies interfaces.EmbeddingClient's batch signature by looping.
type OllamaClient struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaClient builds an OllamaClient against baseURL (e.g.
// "http://localhost:11434").
func NewOllamaClient(baseURL, model string, dimensions int) *OllamaClient {
	return &OllamaClient{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

var _ interfaces.EmbeddingClient = (*OllamaClient)(nil)

func (c *OllamaClient) Dimensions() int { return c.dimensions }

// Embed returns one vector per text, in order. A single failed call
// aborts the whole batch rather than returning a partial/misaligned
// result — callers retry the batch wholesale via ListNeedingEmbedding
// on the next Run.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d/%d: %w", i+1, len(texts), err)
		}
		out[i] = v
	}
	return out, nil
}

func (c *OllamaClient) embedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"model": c.model, "prompt": text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return result.Embedding, nil
}
