package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	indexFileName = "index.json"
	metaFileName  = "meta.json"
)

// LocalStore is the default backend: vectors and documents held in
// memory and persisted to two files under a directory, the vector
// index and a metadata sidecar. Both being present is the signal that
// a build already exists. With an empty dir the store is memory-only.
//
// Reads are cheap and searches brute-force over all vectors; the
// corpora this serves are small.
type LocalStore struct {
	mu   sync.RWMutex
	dir  string
	docs []Document
	vecs map[string][]float32
}

type localIndexFile struct {
	Dimension int                  `json:"dimension"`
	Vectors   map[string][]float32 `json:"vectors"`
}

type localMetaFile struct {
	SavedAt   time.Time  `json:"saved_at"`
	Documents []Document `json:"documents"`
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir, vecs: map[string][]float32{}}
}

// Exists reports whether a persisted index (both files) is present.
func (s *LocalStore) Exists() bool {
	if s.dir == "" {
		return false
	}
	for _, name := range []string{indexFileName, metaFileName} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return false
		}
	}
	return true
}

// LoadFromDisk reconstructs the store. A missing index is reported as
// (false, nil) so callers know to build rather than fail.
func (s *LocalStore) LoadFromDisk() (bool, error) {
	if !s.Exists() {
		return false, nil
	}

	indexData, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if err != nil {
		return false, fmt.Errorf("read index file: %w", err)
	}
	metaData, err := os.ReadFile(filepath.Join(s.dir, metaFileName))
	if err != nil {
		return false, fmt.Errorf("read meta file: %w", err)
	}

	var idx localIndexFile
	if err := json.Unmarshal(indexData, &idx); err != nil {
		return false, fmt.Errorf("decode index file: %w", err)
	}
	var meta localMetaFile
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return false, fmt.Errorf("decode meta file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = meta.Documents
	s.vecs = idx.Vectors
	if s.vecs == nil {
		s.vecs = map[string][]float32{}
	}
	return true, nil
}

func (s *LocalStore) persistLocked() error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	dim := 0
	for _, v := range s.vecs {
		dim = len(v)
		break
	}
	files := map[string]any{
		indexFileName: localIndexFile{Dimension: dim, Vectors: s.vecs},
		metaFileName:  localMetaFile{SavedAt: time.Now().UTC(), Documents: s.docs},
	}
	for name, payload := range files {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(s.dir, name)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("persist %s: %w", name, err)
		}
	}
	return nil
}

func (s *LocalStore) Store(_ context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		if _, seen := s.vecs[doc.ID]; !seen {
			s.docs = append(s.docs, doc)
		} else {
			for j := range s.docs {
				if s.docs[j].ID == doc.ID {
					s.docs[j] = doc
					break
				}
			}
		}
		s.vecs[doc.ID] = vectors[i]
	}
	return s.persistLocked()
}

func (s *LocalStore) Search(_ context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.docs) == 0 {
		return nil, nil
	}
	scored := make([]ScoredDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		vec, ok := s.vecs[doc.ID]
		if !ok {
			continue
		}
		scored = append(scored, ScoredDocument{Document: doc, Score: cosineSimilarity(vector, vec)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *LocalStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.docs[:0]
	for _, doc := range s.docs {
		if drop[doc.ID] {
			delete(s.vecs, doc.ID)
			continue
		}
		kept = append(kept, doc)
	}
	s.docs = kept
	return s.persistLocked()
}

func (s *LocalStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *LocalStore) Close(context.Context) error { return nil }

var _ VectorStore = (*LocalStore)(nil)
