package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"docchat/internal/models"
	"docchat/internal/util"
)

// LocalProvider is the locally hosted backend: a llama.cpp-family model
// served on localhost, loaded once from a weights file and reused across
// calls. Any failure here is fatal for the call; a missing weights file will
// not appear by retrying.
type LocalProvider struct {
	baseURL     string
	model       string
	weightsPath string
	client      *http.Client
}

func NewLocalProvider(baseURL, model, weightsPath string) *LocalProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "gemma2:2b"
	}
	return &LocalProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		weightsPath: weightsPath,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

func (l *LocalProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if l.weightsPath != "" {
		if _, err := os.Stat(l.weightsPath); err != nil {
			return "", fmt.Errorf("weights file %s: %w", l.weightsPath, util.ErrModelUnavailable)
		}
	}

	system := req.SystemContext
	if len(req.Passages) > 0 {
		system += "\n\nContext:\n" + strings.Join(req.Passages, "\n\n")
	}
	messages := make([]map[string]string, 0, len(req.History)+2)
	messages = append(messages, map[string]string{"role": "system", "content": system})
	for _, m := range req.History {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, map[string]string{"role": role, "content": m.Content})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Query})

	payload, _ := json.Marshal(map[string]any{
		"model":    l.model,
		"messages": messages,
		"stream":   false,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build local request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("local model request failed: %w: %v", util.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("local model error %d: %s: %w", resp.StatusCode, truncateBody(body), util.ErrModelUnavailable)
	}

	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode local response: %w: %v", util.ErrModelUnavailable, err)
	}
	if parsed.Message.Content == "" {
		return "", fmt.Errorf("local model returned empty response: %w", util.ErrModelUnavailable)
	}
	return parsed.Message.Content, nil
}
