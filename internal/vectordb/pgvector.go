package vectordb

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PgvectorStore implements VectorStore on PostgreSQL with the pgvector
// extension. Similarity is cosine; rows persist on their own, so Persist and
// Load are no-ops.
type PgvectorStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgvectorStore connects to dsn and ensures the chunk table exists.
func NewPgvectorStore(ctx context.Context, dsn, table string) (*PgvectorStore, error) {
	if table == "" {
		table = DefaultCollection
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PgvectorStore{pool: pool, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgvectorStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc_index INT NOT NULL,
			chunk_index INT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding VECTOR NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_url ON %s(url)", s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PgvectorStore) Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, doc_index, chunk_index, url, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, s.table)

	for i, c := range chunks {
		if _, err := tx.Exec(ctx, insert, c.ID, c.DocIndex, c.Index, c.URL, c.Title, c.Text, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, doc_index, chunk_index, url, title, content,
		       (embedding <=> $1::vector) AS distance
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, s.table), pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, k)
	for rows.Next() {
		var c Chunk
		var distance float64
		if err := rows.Scan(&c.ID, &c.DocIndex, &c.Index, &c.URL, &c.Title, &c.Text, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		results = append(results, SearchResult{Chunk: c, Score: float32(1 - distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *PgvectorStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", s.table)); err != nil {
		return fmt.Errorf("truncate chunks: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Persist(ctx context.Context) error { return nil }

func (s *PgvectorStore) Load(ctx context.Context) error { return nil }

func (s *PgvectorStore) Close() error {
	s.pool.Close()
	return nil
}

var (
	_ VectorStore = (*PgvectorStore)(nil)
	_ VectorStore = (*ChromemStore)(nil)
)
