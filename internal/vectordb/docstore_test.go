package vectordb

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ziadkadry99/vachat/internal/embeddings"
)

// countingEmbedder wraps mockEmbedder and counts Embed calls. A non-zero
// failOn makes only that call fail with err.
type countingEmbedder struct {
	*mockEmbedder
	calls  int32
	failOn int32
	err    error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if c.err != nil && (c.failOn == 0 || c.failOn == n) {
		return nil, c.err
	}
	return c.mockEmbedder.Embed(ctx, texts)
}

var errOffline = errors.New("index offline")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Add(context.Context, []Chunk, [][]float32) error { return errOffline }
func (brokenStore) Query(context.Context, []float32, int) ([]SearchResult, error) {
	return nil, errOffline
}
func (brokenStore) Count(context.Context) (int, error) { return 0, errOffline }
func (brokenStore) Reset(context.Context) error        { return errOffline }
func (brokenStore) Persist(context.Context) error      { return errOffline }
func (brokenStore) Load(context.Context) error         { return errOffline }
func (brokenStore) Close() error                       { return nil }

type recordingProgress struct {
	total, last int
	finished    bool
}

func (r *recordingProgress) Start(total int)              { r.total = total }
func (r *recordingProgress) Update(current int, _ string) { r.last = current }
func (r *recordingProgress) Finish()                      { r.finished = true }

func newTestDocStore(t *testing.T, e embeddings.Embedder, chunkSize int, opts ...Option) *DocumentStore {
	t.Helper()
	store, err := NewChromemStore("", "", e)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	opts = append(opts, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	return NewDocumentStore(store, e, chunkSize, opts...)
}

var vaDocs = []SourceDocument{
	{URL: "https://www.va.gov/disability/", Title: "Disability compensation", Content: "Apply for VA disability compensation if you have a service-connected condition. You can file online by mail or in person."},
	{URL: "https://www.va.gov/education/", Title: "Education and training", Content: "The GI Bill can help you pay for college graduate school and training programs."},
	{URL: "https://www.va.gov/housing-assistance/", Title: "Housing assistance", Content: "VA home loan guaranty helps you buy build or improve a home."},
}

func TestDocumentStore_IngestSingleChunkMetadata(t *testing.T) {
	ctx := context.Background()
	ds := newTestDocStore(t, newMockEmbedder(32), 100)

	stats, err := ds.Ingest(ctx, []SourceDocument{{URL: "u1", Title: "t1", Content: strings.Repeat("word ", 50)}})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stats.Chunks != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", stats.Chunks)
	}

	results, err := ds.Search(ctx, "word", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	md := results[0].Chunk.Metadata()
	want := map[string]string{"url": "u1", "title": "t1", "chunk_idx": "0"}
	if len(md) != len(want) {
		t.Errorf("metadata = %v, want %v", md, want)
	}
	for k, v := range want {
		if md[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, md[k], v)
		}
	}
	if results[0].Chunk.ID != "doc_0_chunk_0" {
		t.Errorf("id = %q", results[0].Chunk.ID)
	}
}

func TestDocumentStore_ReingestIsNoop(t *testing.T) {
	ctx := context.Background()
	e := &countingEmbedder{mockEmbedder: newMockEmbedder(32)}
	ds := newTestDocStore(t, e, 5)

	first, err := ds.Ingest(ctx, vaDocs)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	before, _ := ds.Count(ctx)
	if before != first.Chunks || before == 0 {
		t.Fatalf("count %d does not match ingested chunks %d", before, first.Chunks)
	}
	callsBefore := atomic.LoadInt32(&e.calls)

	second, err := ds.Ingest(ctx, append(vaDocs, SourceDocument{URL: "new", Content: "extra page content"}))
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if !second.Skipped {
		t.Error("second ingest into a populated store should be skipped")
	}
	after, _ := ds.Count(ctx)
	if after != before {
		t.Errorf("chunk count changed from %d to %d", before, after)
	}
	if atomic.LoadInt32(&e.calls) != callsBefore {
		t.Error("skipped ingest should not call the embedder")
	}
}

func TestDocumentStore_SearchBounds(t *testing.T) {
	ctx := context.Background()
	ds := newTestDocStore(t, newMockEmbedder(32), 6)
	if _, err := ds.Ingest(ctx, vaDocs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	stored := map[string]bool{}
	for _, c := range ChunkDocuments(vaDocs, 6) {
		stored[c.ID] = true
	}

	for _, k := range []int{1, 3, 100} {
		results, err := ds.Search(ctx, "GI Bill college", k)
		if err != nil {
			t.Fatalf("Search(k=%d): %v", k, err)
		}
		if len(results) > k {
			t.Errorf("Search(k=%d) returned %d results", k, len(results))
		}
		for i, r := range results {
			if !stored[r.Chunk.ID] {
				t.Errorf("result %s is not a stored chunk", r.Chunk.ID)
			}
			if i > 0 && r.Score > results[i-1].Score {
				t.Errorf("results not in descending relevance at %d", i)
			}
		}
	}
}

func TestDocumentStore_SearchEmptyStore(t *testing.T) {
	ds := newTestDocStore(t, newMockEmbedder(32), 10)
	results, err := ds.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestDocumentStore_SearchStoreUnavailable(t *testing.T) {
	e := newMockEmbedder(8)
	ds := NewDocumentStore(brokenStore{}, e, 10, WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	_, err := ds.Search(context.Background(), "benefits", 3)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	_, err = ds.Ingest(context.Background(), vaDocs)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from ingest, got %v", err)
	}
}

func TestDocumentStore_EmbeddingFailure(t *testing.T) {
	perr := &embeddings.ProviderError{Provider: "mock", Err: errors.New("401")}
	e := &countingEmbedder{mockEmbedder: newMockEmbedder(8), err: perr}
	ds := newTestDocStore(t, e, 10)

	_, err := ds.Ingest(context.Background(), vaDocs)
	var pe *embeddings.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("ingest: expected *ProviderError, got %v", err)
	}
	if n, _ := ds.Count(context.Background()); n != 0 {
		t.Errorf("failed ingest should store nothing, got %d chunks", n)
	}

	_, err = ds.Search(context.Background(), "q", 3)
	if !errors.As(err, &pe) {
		t.Fatalf("search: expected *ProviderError, got %v", err)
	}
}

func TestDocumentStore_PartialIngestIsDiscarded(t *testing.T) {
	ctx := context.Background()
	e := &countingEmbedder{mockEmbedder: newMockEmbedder(8), failOn: 2, err: errors.New("transport down")}
	ds := newTestDocStore(t, e, 5, WithBatchSize(2))
	docs := []SourceDocument{{URL: "https://www.va.gov/pension/", Title: "Pension", Content: strings.Repeat("word ", 30)}}

	stats, err := ds.Ingest(ctx, docs)
	if err == nil || !strings.Contains(err.Error(), "transport down") {
		t.Fatalf("expected embedding failure, got %v", err)
	}
	if stats.Chunks != 0 {
		t.Errorf("stats.Chunks = %d after failed ingest, want 0", stats.Chunks)
	}
	if n, _ := ds.Count(ctx); n != 0 {
		t.Fatalf("store holds %d chunks after failed ingest, want 0", n)
	}

	stats, err = ds.Ingest(ctx, docs)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if stats.Skipped || stats.Chunks != 6 {
		t.Errorf("stats = %+v, want 6 fresh chunks", stats)
	}
	if n, _ := ds.Count(ctx); n != 6 {
		t.Errorf("count = %d, want 6", n)
	}
}

// resetFailStore accepts writes but cannot be cleared.
type resetFailStore struct {
	brokenStore
	added int
}

func (s *resetFailStore) Add(_ context.Context, c []Chunk, _ [][]float32) error {
	s.added += len(c)
	return nil
}
func (s *resetFailStore) Count(context.Context) (int, error) { return s.added, nil }

func TestDocumentStore_PartialIngestResetFailure(t *testing.T) {
	store := &resetFailStore{}
	ds := NewDocumentStore(store, newMockEmbedder(8), 5, WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	_, err := ds.Ingest(context.Background(), vaDocs)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "persisting store") || !strings.Contains(err.Error(), "discarding") {
		t.Errorf("error should report both the failure and the failed cleanup: %v", err)
	}
}

func TestDocumentStore_RebuildAllowsReingest(t *testing.T) {
	ctx := context.Background()
	ds := newTestDocStore(t, newMockEmbedder(32), 50)
	_, _ = ds.Ingest(ctx, vaDocs[:1])

	if err := ds.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	stats, err := ds.Ingest(ctx, vaDocs)
	if err != nil {
		t.Fatalf("Ingest after rebuild: %v", err)
	}
	if stats.Skipped || stats.Chunks != 3 {
		t.Errorf("stats = %+v, want 3 fresh chunks", stats)
	}
}

func TestDocumentStore_BatchingAndProgress(t *testing.T) {
	e := &countingEmbedder{mockEmbedder: newMockEmbedder(16)}
	p := &recordingProgress{}
	ds := newTestDocStore(t, e, 3, WithBatchSize(2), WithProgress(p))

	stats, err := ds.Ingest(context.Background(), vaDocs)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	wantCalls := int32((stats.Chunks + 1) / 2)
	if got := atomic.LoadInt32(&e.calls); got != wantCalls {
		t.Errorf("embed calls = %d, want %d", got, wantCalls)
	}
	if p.total != stats.Chunks || p.last != stats.Chunks || !p.finished {
		t.Errorf("progress = %+v, chunks = %d", p, stats.Chunks)
	}
}

func TestDocumentStore_ConcurrentSearches(t *testing.T) {
	ctx := context.Background()
	ds := newTestDocStore(t, newMockEmbedder(32), 8)
	if _, err := ds.Ingest(ctx, vaDocs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ds.Search(ctx, "home loan", 2); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent search: %v", err)
	}
}
