package engine

import (
	"context"
	"fmt"
	"time"

	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/util"
)

// Chat runs one retrieval-augmented turn. Only a fully completed turn is
// persisted: a backend failure, timeout, or request cancellation leaves the
// transcript exactly as it was.
func (e *Engine) Chat(ctx context.Context, sessionID, query, model, apiKeyOverride string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query cannot be empty")
	}

	lk := e.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	ix, err := e.indexes.CreateOrLoad(sessionID)
	if err != nil {
		return "", err
	}

	// A session that never ingested documents has no index; the turn runs on
	// history-only context instead of refusing.
	var passages []string
	if ix.Len() > 0 {
		embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
		vectors, err := e.embedder.Embed(embedCtx, []string{query})
		cancel()
		if err != nil {
			return "", err
		}
		if len(vectors) != 1 {
			return "", fmt.Errorf("got %d vectors for one query: %w", len(vectors), util.ErrEmbedding)
		}
		for _, c := range ix.Search(vectors[0], e.cfg.RetrievalK) {
			passages = append(passages, passageLabel(c))
		}
	}

	llm, err := e.llms.Resolve(model, apiKeyOverride)
	if err != nil {
		return "", err
	}

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	answer, err := llm.Generate(genCtx, providers.GenerateRequest{
		SystemContext: systemContext,
		Passages:      passages,
		History:       boundedHistory(sess.ChatHistory, e.cfg.HistoryWindow),
		Query:         query,
	})
	cancel()
	if err != nil {
		return "", err
	}

	// The initiating request may have been aborted while the backend was
	// working; a cancelled turn must not mutate the transcript.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := time.Now()
	err = e.store.AppendMessages(ctx, sessionID, []models.Message{
		{Role: models.RoleUser, Content: query, CreatedAt: now},
		{Role: models.RoleAssistant, Content: answer, CreatedAt: now},
	})
	if err != nil {
		return "", err
	}

	// First turn names the session after the query.
	if len(sess.ChatHistory) == 0 {
		if err := e.store.Rename(ctx, sessionID, util.TruncateRunes(query, titleMaxRunes)); err != nil {
			return "", err
		}
	}
	return answer, nil
}
