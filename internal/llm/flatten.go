package llm

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
)

// contentBlock is one element of a Messages-API content array.
type contentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// FlattenContent turns a content payload into plain text. Accepted shapes:
//
//   - a JSON string, returned unchanged
//   - a single {"type":"text","text":...} block
//   - an array of blocks; text blocks are joined with "\n" in order
//
// Non-text blocks (tool_use, image, ...) are logged and skipped. Anything
// else is a *ResponseShapeError.
func FlattenContent(raw json.RawMessage) (string, error) {
	return flattenContent("content", raw)
}

func flattenContent(provider string, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", &ResponseShapeError{Provider: provider, Reason: "content is missing"}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", &ResponseShapeError{Provider: provider, Reason: "content string: " + err.Error()}
		}
		return s, nil

	case '{':
		var b contentBlock
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", &ResponseShapeError{Provider: provider, Reason: "content block: " + err.Error()}
		}
		if b.Text == nil {
			return "", &ResponseShapeError{Provider: provider, Reason: "content block of type " + quoteType(b.Type) + " has no text"}
		}
		return *b.Text, nil

	case '[':
		var blocks []contentBlock
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return "", &ResponseShapeError{Provider: provider, Reason: "content blocks: " + err.Error()}
		}
		var texts []string
		for i, b := range blocks {
			if b.Text == nil || (b.Type != "" && b.Type != "text") {
				log.Printf("llm: %s: skipping content block %d of type %s", provider, i, quoteType(b.Type))
				continue
			}
			texts = append(texts, *b.Text)
		}
		if len(texts) == 0 {
			return "", &ResponseShapeError{Provider: provider, Reason: "no text blocks in content"}
		}
		return strings.Join(texts, "\n"), nil

	default:
		return "", &ResponseShapeError{Provider: provider, Reason: "content is neither a string, a block nor a list of blocks"}
	}
}

func quoteType(t string) string {
	if t == "" {
		return `""`
	}
	return t
}
