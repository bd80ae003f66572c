package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/medkitlab/medirag/src/config"
	"github.com/medkitlab/medirag/src/embed"
)

// ErrNoDocuments is returned by Build when given an empty collection.
// Callers must substitute a placeholder document instead of building
// an empty index.
var ErrNoDocuments = errors.New("no documents to index")

// Index is the knowledge index: an embedder plus a vector store.
// Build/Load/Add/Delete manage the indexed set; Search degrades to
// "no context" on any failure because retrieval problems must never
// end a conversation.
type Index struct {
	embedder embed.Embedder
	store    VectorStore
}

func New(embedder embed.Embedder, store VectorStore) *Index {
	return &Index{embedder: embedder, store: store}
}

// NewStore constructs the backend selected by the config.
func NewStore(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "local", "":
		return NewLocalStore(cfg.VectorDBPath), nil
	case "qdrant":
		return NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantAPIKey), nil
	case "postgres", "pgvector":
		return NewPostgresStore(ctx, cfg.PostgresURL)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.VectorBackend)
	}
}

// Build embeds and indexes the documents. Fails loudly on an empty
// collection.
func (ix *Index) Build(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}
	return ix.Add(ctx, docs)
}

// Load reconstructs a previously persisted index. (false, nil) means
// no index exists yet and the caller should build instead.
func (ix *Index) Load(ctx context.Context) (bool, error) {
	if ls, ok := ix.store.(*LocalStore); ok {
		return ls.LoadFromDisk()
	}
	// Remote backends persist on write; an existing build shows up as
	// a non-empty collection.
	n, err := ix.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("probe vector store: %w", err)
	}
	return n > 0, nil
}

// Search returns the top-k documents by semantic similarity. An
// uninitialized index or a backend failure logs and yields an empty
// result, never an error.
func (ix *Index) Search(ctx context.Context, query string, k int) []ScoredDocument {
	if ix == nil || ix.store == nil || ix.embedder == nil {
		return nil
	}
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("index: embed query failed, degrading to empty context: %v", err)
		return nil
	}
	docs, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		log.Printf("index: search failed, degrading to empty context: %v", err)
		return nil
	}
	return docs
}

// Add embeds and inserts documents incrementally; the backend
// re-persists as part of the write.
func (ix *Index) Add(ctx context.Context, docs []Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := ix.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d documents: %w", len(docs), err)
	}
	if err := ix.store.Store(ctx, docs, vectors); err != nil {
		return fmt.Errorf("store %d documents: %w", len(docs), err)
	}
	return nil
}

// Delete removes documents by id; the backend re-persists.
func (ix *Index) Delete(ctx context.Context, ids []string) error {
	return ix.store.Delete(ctx, ids)
}

// Count reports the number of indexed documents.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// Close releases backend resources.
func (ix *Index) Close(ctx context.Context) error {
	return ix.store.Close(ctx)
}
