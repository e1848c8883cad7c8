package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docchat/internal/models"
	"docchat/internal/util"

	"github.com/google/uuid"
)

type FileUpload struct {
	Name string
	Data []byte
}

type SkippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type IngestInput struct {
	// SessionID, when set, appends to an existing session; otherwise a new
	// session is created on successful ingestion.
	SessionID      string
	Files          []FileUpload
	Model          string
	APIKeyOverride string
}

type IngestResult struct {
	SessionID     string        `json:"session_id"`
	Title         string        `json:"title"`
	UploadedFiles []string      `json:"uploaded_files"`
	Skipped       []SkippedFile `json:"skipped,omitempty"`
	Message       string        `json:"message"`
}

// Ingest runs one upload batch: extract each PDF, chunk, embed, extend the
// session's vector index, persist it, and record the session. Per-file
// extraction failures skip that file and continue with siblings; an
// embedding failure aborts the whole batch with nothing applied, preserving
// the index's chunk/vector invariant.
func (e *Engine) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	if len(in.Files) == 0 {
		return IngestResult{}, fmt.Errorf("no files provided")
	}
	// Fail fast on an unusable model selection before touching any state.
	if _, err := e.llms.Resolve(in.Model, in.APIKeyOverride); err != nil {
		return IngestResult{}, err
	}

	sessionID := in.SessionID
	creating := sessionID == ""
	if creating {
		sessionID = uuid.NewString()
	}

	lk := e.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	var existing models.Session
	if !creating {
		var err error
		existing, err = e.store.Get(ctx, sessionID)
		if err != nil {
			return IngestResult{}, err
		}
	}

	var (
		chunks   []models.Chunk
		ingested []string
		skipped  []SkippedFile
	)
	for _, f := range in.Files {
		text, err := e.extractText(f.Data, f.Name)
		if err != nil {
			skipped = append(skipped, SkippedFile{Filename: f.Name, Reason: reason(err)})
			continue
		}
		parts := util.ChunkText(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
		// Zero chunks means nothing to index for this file, which is not a
		// failure; the file is still recorded as uploaded.
		for i, p := range parts {
			chunks = append(chunks, models.Chunk{SourceFile: f.Name, ChunkIndex: i, Text: p})
		}
		ingested = append(ingested, f.Name)
	}
	if len(ingested) == 0 {
		return IngestResult{}, fmt.Errorf("no text could be extracted from the documents: %s", skipSummary(skipped))
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
		vectors, err := e.embedder.Embed(embedCtx, texts)
		cancel()
		if err != nil {
			return IngestResult{}, err
		}
		if len(vectors) != len(texts) {
			return IngestResult{}, fmt.Errorf("got %d vectors for %d chunks: %w", len(vectors), len(texts), util.ErrEmbedding)
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}

		ix, err := e.indexes.CreateOrLoad(sessionID)
		if err != nil {
			return IngestResult{}, err
		}
		if err := ix.Add(chunks); err != nil {
			return IngestResult{}, err
		}
		if err := e.indexes.Persist(sessionID, ix); err != nil {
			return IngestResult{}, err
		}
	}

	title := existing.Title
	if creating {
		title = deriveTitle(ingested)
		if err := e.store.Create(ctx, models.Session{SessionID: sessionID, Title: title, CreatedAt: time.Now()}); err != nil {
			return IngestResult{}, err
		}
	}
	if err := e.store.AddUploadedFiles(ctx, sessionID, ingested); err != nil {
		return IngestResult{}, err
	}

	msg := fmt.Sprintf("Documents processed! Chatting with %s.", modelLabel(in.Model, e.cfg.DefaultModel))
	if len(skipped) > 0 {
		msg += " Skipped: " + skipSummary(skipped) + "."
	}
	return IngestResult{
		SessionID:     sessionID,
		Title:         title,
		UploadedFiles: ingested,
		Skipped:       skipped,
		Message:       msg,
	}, nil
}

func deriveTitle(filenames []string) string {
	return util.TruncateRunes("Chat with "+strings.Join(filenames, ", "), titleMaxRunes)
}

func modelLabel(selection, fallback string) string {
	if strings.TrimSpace(selection) == "" {
		return fallback
	}
	return selection
}

func reason(err error) string {
	return util.TruncateRunes(err.Error(), 200)
}

func skipSummary(skipped []SkippedFile) string {
	parts := make([]string, 0, len(skipped))
	for _, s := range skipped {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Filename, s.Reason))
	}
	return strings.Join(parts, "; ")
}
