package vectordb

import (
	"fmt"
	"strconv"
)

// SourceDocument is one crawled page as produced by the site crawler.
type SourceDocument struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Links   []string `json:"links,omitempty"`
}

// Chunk is a contiguous piece of a source document's text. Chunks are
// immutable once stored and are only removed by a full rebuild.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Index    int    `json:"chunk_idx"` // position within its document
	DocIndex int    `json:"doc_idx"`   // position of the document in the ingested batch
}

// ChunkID returns the stable identifier of chunk j of document i.
func ChunkID(docIndex, chunkIndex int) string {
	return fmt.Sprintf("doc_%d_chunk_%d", docIndex, chunkIndex)
}

// Metadata returns the metadata stored alongside the chunk text.
func (c Chunk) Metadata() map[string]string {
	return map[string]string{
		"url":       c.URL,
		"title":     c.Title,
		"chunk_idx": strconv.Itoa(c.Index),
	}
}

// chunkFromMetadata rebuilds a Chunk from stored id, text and metadata.
func chunkFromMetadata(id, text string, md map[string]string) Chunk {
	idx, _ := strconv.Atoi(md["chunk_idx"])
	var docIdx, j int
	_, _ = fmt.Sscanf(id, "doc_%d_chunk_%d", &docIdx, &j)
	return Chunk{
		ID:       id,
		Text:     text,
		URL:      md["url"],
		Title:    md["title"],
		Index:    idx,
		DocIndex: docIdx,
	}
}

// SearchResult pairs a chunk with its relevance score (cosine similarity,
// higher is more relevant).
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
