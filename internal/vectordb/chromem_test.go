package vectordb

import (
	"context"
	"math"
	"strings"
	"testing"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text.
// Similar texts will produce similar vectors because shared characters contribute
// to the same positions in the vector.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	// Normalize
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func sampleChunks(t *testing.T, e *mockEmbedder) ([]Chunk, [][]float32) {
	t.Helper()
	chunks := []Chunk{
		{ID: "doc_0_chunk_0", Text: "Apply for disability compensation online at VA.gov", URL: "https://www.va.gov/disability/", Title: "Disability", Index: 0},
		{ID: "doc_1_chunk_0", Text: "The GI Bill helps pay for college and training", URL: "https://www.va.gov/education/", Title: "Education", Index: 0, DocIndex: 1},
		{ID: "doc_1_chunk_1", Text: "Post-9/11 GI Bill housing allowance rates", URL: "https://www.va.gov/education/", Title: "Education", Index: 1, DocIndex: 1},
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, _ := e.Embed(context.Background(), texts)
	return chunks, vecs
}

func TestChromemStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore("", "", embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	chunks, vecs := sampleChunks(t, embedder)
	if err := store.Add(ctx, chunks, vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if n, _ := store.Count(ctx); n != 3 {
		t.Fatalf("Count: got %d, want 3", n)
	}

	results, err := store.Query(ctx, vecs[1], 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Query returned %d results, want 2", len(results))
	}
	if results[0].Chunk.ID != "doc_1_chunk_0" {
		t.Errorf("expected exact match first, got %s", results[0].Chunk.ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by descending score: %f < %f", results[0].Score, results[1].Score)
	}
	if results[0].Chunk.URL != "https://www.va.gov/education/" || results[0].Chunk.Title != "Education" || results[0].Chunk.DocIndex != 1 {
		t.Errorf("metadata not round-tripped: %+v", results[0].Chunk)
	}
}

func TestChromemStore_QueryClampsToCount(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store, _ := NewChromemStore("", "", embedder)

	results, err := store.Query(ctx, make([]float32, 64), 5)
	if err != nil {
		t.Fatalf("Query on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty store, got %d", len(results))
	}

	chunks, vecs := sampleChunks(t, embedder)
	_ = store.Add(ctx, chunks, vecs)
	results, err = store.Query(ctx, vecs[0], 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected results clamped to 3, got %d", len(results))
	}
}

func TestChromemStore_AddIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store, _ := NewChromemStore("", "", embedder)

	chunks, vecs := sampleChunks(t, embedder)
	_ = store.Add(ctx, chunks, vecs)

	changed := []Chunk{chunks[0]}
	changed[0].Text = "rewritten text"
	if err := store.Add(ctx, changed, vecs[:1]); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, _ := store.Query(ctx, vecs[0], 1)
	if results[0].Chunk.Text != chunks[0].Text {
		t.Errorf("re-adding an id should not replace the stored chunk, got %q", results[0].Chunk.Text)
	}
	if n, _ := store.Count(ctx); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestChromemStore_AddLengthMismatch(t *testing.T) {
	store, _ := NewChromemStore("", "", newMockEmbedder(8))
	err := store.Add(context.Background(), []Chunk{{ID: "a", Text: "a"}}, nil)
	if err == nil {
		t.Error("expected error for chunk/vector length mismatch")
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	dir := t.TempDir()

	store, err := NewChromemStore(dir, "va_docs", embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	chunks, vecs := sampleChunks(t, embedder)
	if err := store.Add(ctx, chunks, vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	store2, err := NewChromemStore(dir, "va_docs", embedder)
	if err != nil {
		t.Fatalf("NewChromemStore for load: %v", err)
	}
	if err := store2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n, _ := store2.Count(ctx); n != 3 {
		t.Errorf("Count after load: got %d, want 3", n)
	}

	results, err := store2.Query(ctx, vecs[0], 1)
	if err != nil {
		t.Fatalf("Query after load: %v", err)
	}
	if results[0].Chunk.URL != "https://www.va.gov/disability/" {
		t.Errorf("metadata lost across persist/load: %+v", results[0].Chunk)
	}
}

func TestChromemStore_LoadMissingFileIsEmpty(t *testing.T) {
	store, _ := NewChromemStore(t.TempDir(), "", newMockEmbedder(8))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load with no file: %v", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
}

func TestChromemStore_Reset(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	dir := t.TempDir()
	store, _ := NewChromemStore(dir, "", embedder)
	chunks, vecs := sampleChunks(t, embedder)
	_ = store.Add(ctx, chunks, vecs)
	_ = store.Persist(ctx)

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count after reset: got %d, want 0", n)
	}

	// The persisted file is gone too, so a fresh load stays empty.
	store2, _ := NewChromemStore(dir, "", embedder)
	_ = store2.Load(ctx)
	if n, _ := store2.Count(ctx); n != 0 {
		t.Errorf("Count after reload: got %d, want 0", n)
	}
}

func TestFormatResults(t *testing.T) {
	results := []SearchResult{
		{
			Chunk: Chunk{ID: "doc_0_chunk_0", Text: "Apply online", URL: "https://www.va.gov/disability/", Title: "Disability"},
			Score: 0.95,
		},
	}

	output := FormatResults(results)
	for _, want := range []string{"Found 1 result(s)", "https://www.va.gov/disability/", "Apply online", "0.9500", "Title: Disability"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestFormatResults_Empty(t *testing.T) {
	output := FormatResults(nil)
	if output != "No results found." {
		t.Errorf("expected 'No results found.', got %q", output)
	}
}
