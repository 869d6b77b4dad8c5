package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrIndexNotFound = errors.New("index not found")

// Key identifies one build of a document's index. Version changes whenever the
// extracted text changes, so a re-extracted document never reuses a stale index.
type Key struct {
	DocumentID uint
	Version    string
}

func (k Key) String() string {
	return fmt.Sprintf("%d@%s", k.DocumentID, k.Version)
}

// VersionOf derives the index version from the text the index is built from.
func VersionOf(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

type Chunk struct {
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

type ScoredChunk struct {
	Index      int
	Content    string
	Similarity float64
}

// Index is a built, persisted per-document index.
type Index interface {
	Key() Key
	Len() int
	Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error)
}

// Store persists indexes. Load returns ErrIndexNotFound when no index exists for the key.
type Store interface {
	Load(ctx context.Context, key Key) (Index, error)
	Save(ctx context.Context, key Key, chunks []Chunk) (Index, error)
	Delete(ctx context.Context, documentID uint) error
}

// memoryIndex is a brute-force cosine index over chunks held in memory.
type memoryIndex struct {
	key    Key
	chunks []Chunk
}

func newMemoryIndex(key Key, chunks []Chunk) *memoryIndex {
	return &memoryIndex{key: key, chunks: chunks}
}

func (m *memoryIndex) Key() Key { return m.key }

func (m *memoryIndex) Len() int { return len(m.chunks) }

// Search ranks chunks by cosine similarity. Equal scores keep chunk order.
func (m *memoryIndex) Search(_ context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 3
	}

	scored := make([]ScoredChunk, len(m.chunks))
	for i, c := range m.chunks {
		scored[i] = ScoredChunk{
			Index:      c.Index,
			Content:    c.Content,
			Similarity: cosine(c.Embedding, query),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
