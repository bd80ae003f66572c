package index

import (
	"context"
	"math"
)

// Document is a text chunk with provenance metadata, the unit held in
// the knowledge index. The index exclusively owns indexed documents;
// other components only query them.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredDocument is a search hit with its similarity score.
type ScoredDocument struct {
	Document
	Score float64
}

// VectorStore is the contract for index backends. Implementations own
// durability: Store and Delete leave the backend persisted.
type VectorStore interface {
	Store(ctx context.Context, docs []Document, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Close(ctx context.Context) error
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
