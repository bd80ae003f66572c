//go:build fastembed

package embed

import (
	"context"
	"fmt"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedder runs a local ONNX embedding model via fastembed.
// Build with -tags fastembed; the onnxruntime shared library must be
// available at runtime.
type FastEmbedder struct {
	model *fastembed.FlagEmbedding
}

func NewFastEmbedder(_ context.Context, model string) (*FastEmbedder, error) {
	name := fastembed.AllMiniLML6V2
	if model != "" && model != "sentence-transformers/all-MiniLM-L6-v2" {
		name = fastembed.EmbeddingModel(model)
	}
	fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:     name,
		MaxLength: 512,
	})
	if err != nil {
		return nil, fmt.Errorf("init fastembed model %q: %w", name, err)
	}
	return &FastEmbedder{model: fe}, nil
}

func (f *FastEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.model.QueryEmbed(text)
}

func (f *FastEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	return f.model.PassageEmbed(texts, 32)
}

// Close releases the ONNX session.
func (f *FastEmbedder) Close() error {
	f.model.Destroy()
	return nil
}

var _ Embedder = (*FastEmbedder)(nil)
