// Package vectorstore owns one similarity-search index per session: an
// in-memory brute-force cosine index with an atomic on-disk JSON artifact.
package vectorstore

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docchat/internal/models"
	"docchat/internal/util"
)

type entry struct {
	SourceFile string    `json:"source_file"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// Index is the in-memory handle for one session's chunk vectors. A single
// entries slice holds vector and metadata together, so their counts cannot
// diverge. The zero dimension means "uninitialized": the first Add fixes it.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

func NewIndex() *Index {
	return &Index{}
}

// Add appends chunks with their vectors. On an uninitialized index the first
// vector's length fixes the dimension; any mismatch afterwards (or within
// the batch) fails with ErrDimensionMismatch and leaves the index unmodified.
func (ix *Index) Add(chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if dim == 0 {
		dim = len(chunks[0].Vector)
		if dim == 0 {
			return fmt.Errorf("chunk %s[%d] has empty vector: %w", chunks[0].SourceFile, chunks[0].ChunkIndex, util.ErrDimensionMismatch)
		}
	}
	for _, c := range chunks {
		if len(c.Vector) != dim {
			return fmt.Errorf("chunk %s[%d] has dimension %d, index has %d: %w",
				c.SourceFile, c.ChunkIndex, len(c.Vector), dim, util.ErrDimensionMismatch)
		}
	}

	ix.dim = dim
	for _, c := range chunks {
		ix.entries = append(ix.entries, entry{
			SourceFile: c.SourceFile,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Vector:     c.Vector,
		})
	}
	return nil
}

// Search returns the k nearest chunks by cosine similarity, best first.
// Ties break by insertion order (earlier wins). k larger than the index
// returns every entry.
func (ix *Index) Search(query []float32, k int) []models.RetrievedChunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}
	type scored struct {
		pos   int
		score float64
	}
	list := make([]scored, 0, len(ix.entries))
	for i := range ix.entries {
		list = append(list, scored{pos: i, score: cosineSimilarity(query, ix.entries[i].Vector)})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})
	if k > len(list) {
		k = len(list)
	}
	out := make([]models.RetrievedChunk, 0, k)
	for _, s := range list[:k] {
		e := ix.entries[s.pos]
		out = append(out, models.RetrievedChunk{
			SourceFile: e.SourceFile,
			ChunkIndex: e.ChunkIndex,
			Text:       e.Text,
			Score:      s.score,
		})
	}
	return out
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
