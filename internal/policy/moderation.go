package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// ModerationResult is a classifier's answer for one text.
type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// Moderator classifies text against a content policy.
type Moderator interface {
	Moderate(ctx context.Context, text string) (ModerationResult, error)
}

// OpenAIModerator calls the OpenAI moderation endpoint.
type OpenAIModerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIModerator creates a moderator. baseURL may be empty for the
// public API.
func NewOpenAIModerator(apiKey, model, baseURL string) *OpenAIModerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (m *OpenAIModerator) Moderate(ctx context.Context, text string) (ModerationResult, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: m.model,
	})
	if err != nil {
		return ModerationResult{}, fmt.Errorf("openai moderation: %w", err)
	}
	if len(resp.Results) == 0 {
		return ModerationResult{}, fmt.Errorf("openai moderation: no results returned")
	}

	result := resp.Results[0]
	if !result.Flagged {
		return ModerationResult{}, nil
	}
	categories, err := flaggedCategories(result.Categories)
	if err != nil {
		return ModerationResult{}, err
	}
	return ModerationResult{Flagged: true, Categories: categories}, nil
}

// flaggedCategories lists the set flags of a category struct by their wire
// names, sorted.
func flaggedCategories(v any) ([]string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding moderation categories: %w", err)
	}
	var flags map[string]any
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, fmt.Errorf("decoding moderation categories: %w", err)
	}

	var out []string
	for name, val := range flags {
		if set, ok := val.(bool); ok && set {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
