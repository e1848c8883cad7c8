package providers

import (
	"context"
	"math"
	"testing"

	"docchat/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		EmbedProvider: "mock",
		EmbedDim:      8,
		DefaultModel:  "google:gemini-2.5-flash",
		GoogleAPIKey:  "server-key",
	}
}

func TestManagerResolveVariants(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	p, err := m.Resolve("google:gemini-2.5-flash", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*GoogleProvider); !ok {
		t.Fatalf("expected GoogleProvider, got %T", p)
	}

	p, err = m.Resolve("Local (Gemma 2 2B)", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*LocalProvider); !ok {
		t.Fatalf("expected LocalProvider, got %T", p)
	}

	// Empty selection falls back to the configured default.
	p, err = m.Resolve("", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*GoogleProvider); !ok {
		t.Fatalf("expected default GoogleProvider, got %T", p)
	}

	if _, err := m.Resolve("claude-3", ""); err == nil {
		t.Fatal("expected error for unknown selection")
	}
}

func TestManagerAPIKeyOverride(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	p, err := m.Resolve("google", "caller-key")
	if err != nil {
		t.Fatal(err)
	}
	if g := p.(*GoogleProvider); g.apiKey != "caller-key" {
		t.Fatalf("override not applied, got %q", g.apiKey)
	}
	p, err = m.Resolve("google", "")
	if err != nil {
		t.Fatal(err)
	}
	if g := p.(*GoogleProvider); g.apiKey != "server-key" {
		t.Fatalf("server key not used, got %q", g.apiKey)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	a, err := m.Embedder().Embed(context.Background(), []string{"same text", "other"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Embedder().Embed(context.Background(), []string{"same text"})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 || len(a[0]) != 8 {
		t.Fatalf("unexpected shape: %d vectors, dim %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("identical input must embed identically")
		}
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	vecs, err := NewMockProvider(8).Embed(context.Background(), []string{"some text"})
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range vecs[0] {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-4 {
		t.Fatalf("expected unit-length vector, squared norm = %f", sum)
	}
}
