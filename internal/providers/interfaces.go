package providers

import (
	"context"

	"docchat/internal/models"
)

// GenerateRequest carries everything one chat turn hands to a backend:
// the system framing, the retrieved passages, the bounded conversation
// history, and the user's query. Both backend variants consume the same
// request and report the same sentinel error taxonomy, so the caller never
// branches on which one is active.
type GenerateRequest struct {
	SystemContext string
	Passages      []string
	History       []models.Message
	Query         string
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order. All vectors
	// from one provider instance share the same dimension.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
