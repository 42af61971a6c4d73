package vectordb

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the backing index cannot serve a
// request. Callers answering a question treat it as "no context".
var ErrStoreUnavailable = errors.New("document store unavailable")

// VectorStore is a backing index for precomputed chunk embeddings.
type VectorStore interface {
	// Add stores chunks with their embeddings. vectors[i] belongs to
	// chunks[i]. Re-adding an existing id leaves the stored chunk unchanged.
	Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// Query returns up to k chunks nearest to vector by cosine similarity,
	// most similar first.
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset removes every stored chunk.
	Reset(ctx context.Context) error

	// Persist flushes the store to durable storage, if it has any.
	Persist(ctx context.Context) error

	// Load restores previously persisted data, if any.
	Load(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
