package embed

import (
	"context"
	"testing"

	"github.com/medkitlab/medirag/src/config"
)

func TestDummyEmbeddingIsDeterministic(t *testing.T) {
	a := DummyEmbedding("aspirin dosage")
	b := DummyEmbedding("aspirin dosage")
	if len(a) != 768 {
		t.Fatalf("dimension = %d, want 768", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}

	c := DummyEmbedding("completely different text")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should not share an embedding")
	}
}

func TestDummyEmbedPassages(t *testing.T) {
	vecs, err := DummyEmbedder{}.EmbedPassages(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("EmbedPassages: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
}

func TestNewEmbedderSelection(t *testing.T) {
	e, err := NewEmbedder(context.Background(), &config.Config{EmbedProvider: "dummy"})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, ok := e.(DummyEmbedder); !ok {
		t.Errorf("embedder = %T, want DummyEmbedder", e)
	}

	if _, err := NewEmbedder(context.Background(), &config.Config{EmbedProvider: "word2vec"}); err == nil {
		t.Error("expected error for unknown embedding provider")
	}
}
