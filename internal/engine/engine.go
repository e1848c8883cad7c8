// Package engine orchestrates the session-scoped RAG lifecycle: ingestion,
// chat turns, rename, delete, and transcript export. It is stateless between
// calls except for the durable stores; every operation takes the session ID
// explicitly.
package engine

import (
	"context"
	"errors"
	"fmt"

	"docchat/internal/config"
	"docchat/internal/extract"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/vectorstore"
)

var ErrNoTranscript = errors.New("no chat history to export")

// SessionStore is the durable session record: metadata, uploaded-file list,
// transcript. Implemented by storage.SessionRepo.
type SessionStore interface {
	Create(ctx context.Context, s models.Session) error
	Get(ctx context.Context, sessionID string) (models.Session, error)
	List(ctx context.Context) ([]models.SessionSummary, error)
	AppendMessages(ctx context.Context, sessionID string, msgs []models.Message) error
	Rename(ctx context.Context, sessionID, title string) error
	AddUploadedFiles(ctx context.Context, sessionID string, filenames []string) error
	Delete(ctx context.Context, sessionID string) (bool, error)
}

// IndexStore locates per-session vector indexes. Implemented by
// vectorstore.Manager.
type IndexStore interface {
	CreateOrLoad(sessionID string) (*vectorstore.Index, error)
	Persist(sessionID string, ix *vectorstore.Index) error
	Delete(sessionID string) error
}

// LLMResolver picks an inference backend from a per-request model selection.
// Implemented by providers.Manager.
type LLMResolver interface {
	Resolve(selection, apiKeyOverride string) (providers.LLMProvider, error)
}

// ExtractorFunc turns one uploaded document's bytes into plain text.
// Defaults to extract.Text.
type ExtractorFunc func(data []byte, filename string) (string, error)

const systemContext = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know. " +
	"Keep the answer concise."

const titleMaxRunes = 50

type Engine struct {
	cfg         config.Config
	store       SessionStore
	indexes     IndexStore
	embedder    providers.EmbeddingProvider
	llms        LLMResolver
	extractText ExtractorFunc
	locks       *sessionLocks
}

func New(cfg config.Config, store SessionStore, indexes IndexStore, embedder providers.EmbeddingProvider, llms LLMResolver) *Engine {
	return &Engine{
		cfg:         cfg,
		store:       store,
		indexes:     indexes,
		embedder:    embedder,
		llms:        llms,
		extractText: extract.Text,
		locks:       newSessionLocks(),
	}
}

func (e *Engine) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	return e.store.List(ctx)
}

func (e *Engine) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	return e.store.Get(ctx, sessionID)
}

// Rename updates the session title. Renaming to the current title is a no-op
// for the title but still refreshes last_updated.
func (e *Engine) Rename(ctx context.Context, sessionID, title string) error {
	lk := e.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()
	return e.store.Rename(ctx, sessionID, title)
}

// Delete removes the session's vector index artifact and its record as one
// logical operation: the artifact goes first, and a failure there leaves the
// record in place so the error surfaces instead of orphaning the index.
// Deleting an absent session is not an error. The session lock is taken, so
// a delete racing an ingestion blocks until the ingestion finishes.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	lk := e.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	if err := e.indexes.Delete(sessionID); err != nil {
		return fmt.Errorf("delete session %s index: %w", sessionID, err)
	}
	if _, err := e.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	return nil
}

// boundedHistory returns the most recent window messages, oldest dropped
// first, to keep the prompt size capped.
func boundedHistory(history []models.Message, window int) []models.Message {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}

func passageLabel(c models.RetrievedChunk) string {
	return fmt.Sprintf("[Source: %s]\n%s", c.SourceFile, c.Text)
}
