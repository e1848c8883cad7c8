package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/util"
)

// fakeStore is an in-memory SessionStore. revisions counts mutations per
// session so tests can assert that last_updated was refreshed.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[string]models.Session
	revisions map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[string]models.Session),
		revisions: make(map[string]int),
	}
}

func (f *fakeStore) Create(ctx context.Context, s models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.SessionID]; ok {
		return fmt.Errorf("duplicate session %s", s.SessionID)
	}
	s.LastUpdated = time.Now()
	f.sessions[s.SessionID] = s
	f.revisions[s.SessionID]++
	return nil
}

func (f *fakeStore) Get(ctx context.Context, sessionID string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return models.Session{}, fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	return s, nil
}

func (f *fakeStore) List(ctx context.Context) ([]models.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SessionSummary, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, models.SessionSummary{SessionID: s.SessionID, Title: s.Title, LastUpdated: s.LastUpdated})
	}
	return out, nil
}

func (f *fakeStore) AppendMessages(ctx context.Context, sessionID string, msgs []models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	s.ChatHistory = append(s.ChatHistory, msgs...)
	s.LastUpdated = time.Now()
	f.sessions[sessionID] = s
	f.revisions[sessionID]++
	return nil
}

func (f *fakeStore) Rename(ctx context.Context, sessionID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	s.Title = title
	s.LastUpdated = time.Now()
	f.sessions[sessionID] = s
	f.revisions[sessionID]++
	return nil
}

func (f *fakeStore) AddUploadedFiles(ctx context.Context, sessionID string, filenames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, util.ErrSessionNotFound)
	}
	s.UploadedFiles = append(s.UploadedFiles, filenames...)
	s.LastUpdated = time.Now()
	f.sessions[sessionID] = s
	f.revisions[sessionID]++
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[sessionID]
	delete(f.sessions, sessionID)
	return ok, nil
}

func (f *fakeStore) revision(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revisions[sessionID]
}

// fakeEmbedder returns fixed-dimension vectors, or fails on demand.
type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	fail  bool
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	dim, fail := f.dim, f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("embedder offline: %w", util.ErrEmbedding)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(len(texts[i])%7) + float32(j)
		}
		out[i] = v
	}
	return out, nil
}

// stubLLM records the last request and returns a canned answer or error.
type stubLLM struct {
	answer  string
	err     error
	lastReq providers.GenerateRequest
	onCall  func()
}

func (s *stubLLM) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	s.lastReq = req
	if s.onCall != nil {
		s.onCall()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type stubResolver struct {
	llm providers.LLMProvider
	err error
}

func (s *stubResolver) Resolve(selection, apiKeyOverride string) (providers.LLMProvider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.llm, nil
}
