package providers

import (
	"fmt"
	"strings"

	"docchat/internal/config"
)

// Manager builds the configured embedding provider once and resolves an
// inference backend per request from a model identifier string such as
// "google:gemini-2.5-flash" or "local:gemma2:2b".
type Manager struct {
	cfg      config.Config
	embedder EmbeddingProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{cfg: cfg}
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "", "ollama":
		m.embedder = NewOllamaEmbeddingProvider(cfg.EmbedBaseURL, cfg.EmbedModel)
	case "mock":
		m.embedder = NewMockProvider(cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unsupported embed provider: %s", cfg.EmbedProvider)
	}
	return m, nil
}

func (m *Manager) Embedder() EmbeddingProvider {
	return m.embedder
}

// Resolve picks the backend variant for one request. An empty selection
// falls back to the configured default; apiKeyOverride, when set, replaces
// the server-configured cloud key for this call only.
func (m *Manager) Resolve(selection, apiKeyOverride string) (LLMProvider, error) {
	sel := strings.TrimSpace(selection)
	if sel == "" {
		sel = m.cfg.DefaultModel
	}
	name, modelID := splitSelection(sel)
	switch {
	case strings.Contains(name, "google"), strings.Contains(name, "gemini"):
		key := apiKeyOverride
		if key == "" {
			key = m.cfg.GoogleAPIKey
		}
		return NewGoogleProvider(modelID, key), nil
	case strings.Contains(name, "local"), strings.Contains(name, "gemma"), strings.Contains(name, "llama"):
		return NewLocalProvider(m.cfg.LocalBaseURL, modelID, m.cfg.LocalModelPath), nil
	case name == "mock":
		return NewMockProvider(m.cfg.EmbedDim), nil
	default:
		return nil, fmt.Errorf("unknown model selection: %s", selection)
	}
}

// splitSelection separates a backend name from an optional model id.
// "google:gemini-2.5-flash" -> ("google", "gemini-2.5-flash");
// "local:gemma2:2b" -> ("local", "gemma2:2b"); UI labels like
// "Google (Gemini 2.5 Flash)" resolve by name with the default model id.
func splitSelection(sel string) (name, modelID string) {
	low := strings.ToLower(sel)
	if i := strings.Index(low, ":"); i >= 0 {
		return low[:i], sel[i+1:]
	}
	return low, ""
}
