package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/medkitlab/medirag/src/config"
)

// Embedder is a pluggable text-embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// DummyEmbedder folds bytes into a fixed-width vector. Deterministic
// and dependency-free; the fallback for offline runs and tests.
type DummyEmbedder struct{}

func (DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return DummyEmbedding(text), nil
}

func (DummyEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = DummyEmbedding(t)
	}
	return out, nil
}

// DummyEmbedding is exported for tests.
func DummyEmbedding(text string) []float32 {
	vec := make([]float32, 768)
	for i, ch := range []byte(text) {
		vec[i%768] += float32(ch) / 255.0
	}
	return vec
}

// NewEmbedder returns the provider selected by the config.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch strings.ToLower(cfg.EmbedProvider) {
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbedModel)
	case "fastembed":
		return NewFastEmbedder(ctx, cfg.EmbedModel)
	case "dummy", "":
		return DummyEmbedder{}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}

var _ Embedder = DummyEmbedder{}
