package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the index in a pgvector-enabled Postgres table.
// The table is created lazily on the first Store call, once the
// embedding dimension is known.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string

	mu      sync.Mutex
	created bool
}

func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	if connURL == "" {
		return nil, fmt.Errorf("postgres connection URL is required")
	}
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, table: "medirag_documents"}, nil
}

func (ps *PostgresStore) ensureTable(ctx context.Context, dim int) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.created {
		return nil
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, ps.table, dim),
	}
	for _, stmt := range stmts {
		if _, err := ps.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init postgres schema: %w", err)
		}
	}
	ps.created = true
	return nil
}

// vectorLiteral renders a pgvector input literal like "[0.1,0.2]".
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func (ps *PostgresStore) Store(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	if err := ps.ensureTable(ctx, len(vectors[0])); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, ps.table)
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", doc.ID, err)
		}
		if _, err := ps.pool.Exec(ctx, query, doc.ID, doc.Content, meta, vectorLiteral(vectors[i])); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (ps *PostgresStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	query := fmt.Sprintf(`SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s ORDER BY embedding <=> $1::vector LIMIT $2`, ps.table)
	rows, err := ps.pool.Query(ctx, query, vectorLiteral(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search postgres: %w", err)
	}
	defer rows.Close()

	var out []ScoredDocument
	for rows.Next() {
		var (
			doc   Document
			meta  []byte
			score float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &doc.Metadata)
		}
		out = append(out, ScoredDocument{Document: doc, Score: score})
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, ps.table)
	if _, err := ps.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := ps.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ps.table)).Scan(&n)
	if err != nil {
		// A missing table means no build has happened yet.
		if strings.Contains(err.Error(), "does not exist") {
			return 0, nil
		}
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (ps *PostgresStore) Close(context.Context) error {
	ps.pool.Close()
	return nil
}

var _ VectorStore = (*PostgresStore)(nil)
