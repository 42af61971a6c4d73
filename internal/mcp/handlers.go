package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/embeddings"
	"github.com/ziadkadry99/vachat/internal/vectordb"
)

// handleSearchBenefits performs semantic search over the indexed VA.gov pages.
func (s *Server) handleSearchBenefits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", vectordb.DefaultTopK)
	if limit <= 0 {
		limit = vectordb.DefaultTopK
	}

	if s.service == nil || s.service.Search == nil {
		return mcp.NewToolResultError("search is not configured"), nil
	}

	results, err := s.service.Search.Search(ctx, query, limit)
	if err != nil {
		var pe *embeddings.ProviderError
		switch {
		case errors.Is(err, vectordb.ErrStoreUnavailable):
			return mcp.NewToolResultError(fmt.Sprintf("document store unavailable: %v", err)), nil
		case errors.As(err, &pe):
			return mcp.NewToolResultError(fmt.Sprintf("embedding failed: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The document store may be empty. Run `vachat ingest` to index crawled pages."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleAskBenefits answers a single question with one provider slot.
func (s *Server) handleAskBenefits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	if s.service == nil || s.service.Engine == nil {
		return mcp.NewToolResultError("assistant is not configured"), nil
	}

	var slots []string
	if slot := request.GetString("slot", ""); slot != "" {
		slots = []string{slot}
	}

	res, err := s.service.Engine.Respond(ctx, question, nil, slots)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	if !res.Verdict.Allowed {
		return mcp.NewToolResultText(res.Verdict.Message), nil
	}
	if len(res.Answers) == 0 {
		return mcp.NewToolResultError("no answer was produced"), nil
	}

	answer := res.Answers[0]
	if answer.Err != nil {
		return mcp.NewToolResultError(answer.Text), nil
	}

	if s.service.Recorder != nil {
		if err := s.service.Recorder.Record(ctx, res); err != nil {
			log.Printf("mcp: recording evaluation: %v", err)
		}
	}

	return mcp.NewToolResultText(formatAnswer(answer, res.Sources)), nil
}

// handleCheckPolicy runs the input gate on a message.
func (s *Server) handleCheckPolicy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	if s.service == nil || s.service.Gate == nil {
		return mcp.NewToolResultError("policy gate is not configured"), nil
	}

	v, err := s.service.Gate.CheckInput(ctx, text)

	var sb strings.Builder
	if v.Allowed {
		sb.WriteString("Allowed: the assistant would answer this message.\n")
	} else {
		sb.WriteString(fmt.Sprintf("Blocked (%s).\n\n%s\n", v.Category, v.Message))
	}
	if len(v.Flagged) > 0 {
		sb.WriteString(fmt.Sprintf("Flagged categories: %s\n", strings.Join(v.Flagged, ", ")))
	}
	if err != nil {
		sb.WriteString(fmt.Sprintf("Moderation check failed: %v\n", err))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatAnswer renders an answer with its deduplicated source URLs.
func formatAnswer(a assistant.Answer, sources []assistant.Source) string {
	var sb strings.Builder
	sb.WriteString(a.Text)

	seen := make(map[string]bool)
	var urls []string
	for _, src := range sources {
		if src.URL == "" || seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		urls = append(urls, src.URL)
	}
	if len(urls) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, u := range urls {
			sb.WriteString("- " + u + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n(answered by %s)", a.Slot))
	return sb.String()
}
