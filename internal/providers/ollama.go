package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docchat/internal/util"
)

// OllamaEmbeddingProvider produces local, free embeddings via the Ollama
// HTTP API. Example model: nomic-embed-text.
type OllamaEmbeddingProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEmbeddingProvider(baseURL, model string) *OllamaEmbeddingProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbeddingProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (o *OllamaEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no embedding inputs: %w", util.ErrEmbedding)
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		payload, _ := json.Marshal(map[string]any{
			"model":  o.model,
			"prompt": text,
		})
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("ollama embedding request failed: %w: %v", util.ErrEmbedding, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("ollama embedding error %d: %s: %w", resp.StatusCode, truncateBody(body), util.ErrEmbedding)
		}
		var parsed struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode ollama embedding response: %w: %v", util.ErrEmbedding, err)
		}
		if len(parsed.Embedding) == 0 {
			return nil, fmt.Errorf("ollama returned empty embedding: %w", util.ErrEmbedding)
		}
		out = append(out, parsed.Embedding)
	}
	return out, nil
}
