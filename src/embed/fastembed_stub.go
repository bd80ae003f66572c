//go:build !fastembed

package embed

import (
	"context"
	"fmt"
)

// NewFastEmbedder is a stub for default builds; rebuild with
// -tags fastembed for local ONNX embeddings.
func NewFastEmbedder(_ context.Context, _ string) (Embedder, error) {
	return nil, fmt.Errorf("fastembed support not included; rebuild with -tags fastembed")
}
