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

	"docchat/internal/models"
	"docchat/internal/util"
)

// GoogleProvider is the cloud backend: a stateless call to the Gemini
// generateContent REST API.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewGoogleProvider(model, apiKey string) *GoogleProvider {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (g *GoogleProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", fmt.Errorf("google backend: %w", util.ErrAuthentication)
	}

	system := req.SystemContext
	if len(req.Passages) > 0 {
		system += "\n\nContext:\n" + strings.Join(req.Passages, "\n\n")
	}
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, m := range req.History {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Query}}})

	payload, _ := json.Marshal(map[string]any{
		"system_instruction": geminiContent{Parts: []geminiPart{{Text: system}}},
		"contents":           contents,
		"generationConfig":   map[string]any{"temperature": 0.1},
	})
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w: %v", util.ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("gemini rejected key (%d): %w", resp.StatusCode, util.ErrAuthentication)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("gemini throttled: %w", util.ErrRateLimited)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("gemini error %d: %s: %w", resp.StatusCode, truncateBody(body), util.ErrUpstream)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w: %v", util.ErrUpstream, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates: %w", util.ErrUpstream)
	}
	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func truncateBody(b []byte) string {
	s := string(b)
	if len(s) > 300 {
		return s[:300]
	}
	return s
}
