package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results for a terminal or an MCP client:
// rank, score, page title and source URL, then the chunk text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n", len(results))
	for i, r := range results {
		title := r.Chunk.Title
		if title == "" {
			title = "(untitled page)"
		}
		fmt.Fprintf(&sb, "\n[%d] score %.4f  %s\n", i+1, r.Score, r.Chunk.ID)
		fmt.Fprintf(&sb, "Title: %s\n", title)
		if r.Chunk.URL != "" {
			fmt.Fprintf(&sb, "Source: %s\n", r.Chunk.URL)
		}
		sb.WriteString(strings.TrimSpace(r.Chunk.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}
