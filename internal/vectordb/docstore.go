package vectordb

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ziadkadry99/vachat/internal/embeddings"
)

// DefaultTopK is the number of chunks returned when a search does not ask
// for a specific count.
const DefaultTopK = 8

// ProgressReporter receives ingestion progress. progress.Reporter satisfies it.
type ProgressReporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// IngestStats summarizes one Ingest call.
type IngestStats struct {
	Documents int
	Chunks    int
	Skipped   bool // store was already populated
}

// DocumentStore chunks, embeds and indexes crawled pages and answers
// similarity searches over them. Searches may run concurrently; ingestion
// excludes searches for its duration.
type DocumentStore struct {
	mu        sync.RWMutex
	store     VectorStore
	embedder  embeddings.Embedder
	chunkSize int
	batchSize int
	logger    *log.Logger
	progress  ProgressReporter
}

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithLogger sets the logger used for ingestion and retrieval diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(d *DocumentStore) { d.logger = l }
}

// WithProgress reports embedding progress during ingestion.
func WithProgress(p ProgressReporter) Option {
	return func(d *DocumentStore) { d.progress = p }
}

// WithBatchSize sets how many chunks are embedded and stored per step.
func WithBatchSize(n int) Option {
	return func(d *DocumentStore) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// NewDocumentStore wraps a backing index with chunking and embedding.
func NewDocumentStore(store VectorStore, embedder embeddings.Embedder, chunkSize int, opts ...Option) *DocumentStore {
	d := &DocumentStore{
		store:     store,
		embedder:  embedder,
		chunkSize: chunkSize,
		batchSize: embeddings.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Default()
	}
	return d
}

// Count returns the number of indexed chunks.
func (d *DocumentStore) Count(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, err := d.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Ingest chunks and embeds docs into the store. Ingestion only happens into
// an empty store; if the store already holds chunks, Ingest is a no-op and
// reports Skipped. Any failure aborts ingestion and clears chunks already
// written, so a later Ingest starts over instead of skipping a partial index.
func (d *DocumentStore) Ingest(ctx context.Context, docs []SourceDocument) (IngestStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := IngestStats{Documents: len(docs)}

	existing, err := d.store.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existing > 0 {
		d.logger.Printf("vectordb: store already holds %d chunks, skipping ingestion", existing)
		stats.Skipped = true
		return stats, nil
	}

	chunks := ChunkDocuments(docs, d.chunkSize)
	if len(chunks) == 0 {
		d.logger.Printf("vectordb: no content to ingest from %d documents", len(docs))
		return stats, nil
	}

	if d.progress != nil {
		d.progress.Start(len(chunks))
		defer d.progress.Finish()
	}

	if err := d.addChunks(ctx, chunks, &stats); err != nil {
		if stats.Chunks > 0 {
			if rerr := d.store.Reset(ctx); rerr != nil {
				return stats, fmt.Errorf("%w (discarding %d partial chunks: %v)", err, stats.Chunks, rerr)
			}
			d.logger.Printf("vectordb: ingestion failed, discarded %d partial chunks", stats.Chunks)
			stats.Chunks = 0
		}
		return stats, err
	}

	d.logger.Printf("vectordb: ingested %d chunks from %d documents", stats.Chunks, len(docs))
	return stats, nil
}

// addChunks embeds and stores chunks batch by batch, then persists the store.
func (d *DocumentStore) addChunks(ctx context.Context, chunks []Chunk, stats *IngestStats) error {
	for start := 0; start < len(chunks); start += d.batchSize {
		end := start + d.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vecs, err := d.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(batch) {
			return &embeddings.ProviderError{
				Provider: d.embedder.Name(),
				Err:      fmt.Errorf("returned %d embeddings for %d chunks", len(vecs), len(batch)),
			}
		}

		if err := d.store.Add(ctx, batch, vecs); err != nil {
			return fmt.Errorf("%w: adding chunks: %v", ErrStoreUnavailable, err)
		}
		stats.Chunks += len(batch)

		if d.progress != nil {
			d.progress.Update(end, batch[len(batch)-1].URL)
		}
	}

	if err := d.store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting store: %w", err)
	}
	return nil
}

// Rebuild clears the store so the next Ingest repopulates it.
func (d *DocumentStore) Rebuild(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.store.Reset(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Search embeds query and returns at most k chunks ordered by descending
// relevance. k <= 0 uses DefaultTopK. Embedding failures surface as
// *embeddings.ProviderError; index failures wrap ErrStoreUnavailable.
func (d *DocumentStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vecs, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, &embeddings.ProviderError{Provider: d.embedder.Name(), Err: fmt.Errorf("no embedding returned for query")}
	}

	d.mu.RLock()
	results, err := d.store.Query(ctx, vecs[0], k)
	d.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close releases the backing store.
func (d *DocumentStore) Close() error {
	return d.store.Close()
}
