package vectordb

import "strings"

// ChunkText splits text into chunks of at most size words. Words are packed
// greedily and never split; whitespace inside a chunk is normalized to
// single spaces. size <= 0 yields a single chunk.
func ChunkText(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{strings.Join(words, " ")}
	}

	chunks := make([]string, 0, len(words)/size+1)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// ChunkDocuments splits every document into chunks with stable ids.
// Documents with no words produce no chunks.
func ChunkDocuments(docs []SourceDocument, size int) []Chunk {
	var out []Chunk
	for i, doc := range docs {
		for j, text := range ChunkText(doc.Content, size) {
			out = append(out, Chunk{
				ID:       ChunkID(i, j),
				Text:     text,
				URL:      doc.URL,
				Title:    doc.Title,
				Index:    j,
				DocIndex: i,
			})
		}
	}
	return out
}
