package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/vachat/internal/embeddings"
)

// DefaultCollection is the chromem collection chunks are stored in.
const DefaultCollection = "va_docs"

const chromemFile = "chromem.gob.gz"

// ChromemStore implements VectorStore using chromem-go. With a directory it
// persists to a compressed gob file; without one it is purely in-memory.
type ChromemStore struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dir        string
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new ChromemStore. The embedder only backs
// chromem's own text queries; chunks are always added with precomputed
// vectors.
func NewChromemStore(dir, collection string, embedder embeddings.Embedder) (*ChromemStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		name:       collection,
		dir:        dir,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()

	docs := make([]chromem.Document, 0, len(chunks))
	for i, c := range chunks {
		if _, err := col.GetByID(ctx, c.ID); err == nil {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  c.Metadata(),
			Embedding: vectors[i],
		})
	}
	if len(docs) == 0 {
		return nil
	}

	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}

	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Chunk: chunkFromMetadata(r.ID, r.Content, r.Metadata),
			Score: r.Similarity,
		}
	}
	return out, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count(), nil
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = col

	if s.dir != "" {
		if err := os.Remove(filepath.Join(s.dir, chromemFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove persisted store: %w", err)
		}
	}
	return nil
}

func (s *ChromemStore) Persist(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.ExportToFile(filepath.Join(s.dir, chromemFile), true, "")
}

// Load imports the persisted file if one exists. A missing file leaves the
// store empty.
func (s *ChromemStore) Load(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	path := filepath.Join(s.dir, chromemFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(s.name, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", s.name)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Close() error { return nil }
