package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// MockProvider is a deterministic stand-in for both contracts, used by tests
// and as an offline fallback.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 768
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	_ = ctx
	vectors := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vectors = append(vectors, deterministicVector(t, m.dim))
	}
	return vectors, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	_ = ctx
	b := strings.Builder{}
	b.WriteString("Deterministic answer to: ")
	b.WriteString(req.Query)
	for i := range req.Passages {
		b.WriteString(" [C")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("]")
	}
	return b.String(), nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
