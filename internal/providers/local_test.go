package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/util"
)

func TestLocalGenerateMissingWeights(t *testing.T) {
	l := NewLocalProvider("http://localhost:1", "gemma2:2b", filepath.Join(t.TempDir(), "absent.gguf"))
	_, err := l.Generate(context.Background(), GenerateRequest{Query: "hi"})
	if !errors.Is(err, util.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLocalGenerateServerDown(t *testing.T) {
	weights := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(weights, []byte("gguf"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reachable address, refused connection
	l := NewLocalProvider(srv.URL, "gemma2:2b", weights)
	_, err := l.Generate(context.Background(), GenerateRequest{Query: "hi"})
	if !errors.Is(err, util.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLocalGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"content":"local answer"}}`))
	}))
	t.Cleanup(srv.Close)
	l := NewLocalProvider(srv.URL, "gemma2:2b", "")
	got, err := l.Generate(context.Background(), GenerateRequest{Query: "hi", Passages: []string{"ctx"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "local answer" {
		t.Fatalf("unexpected answer: %q", got)
	}
}
