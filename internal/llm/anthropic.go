package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	anthropicAPIURL           = "https://api.anthropic.com/v1/messages"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 1000
)

// AnthropicProvider serves the alt-chat kind: a Claude-style Messages API
// whose replies arrive as content blocks.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider. An empty endpoint
// uses the public Messages API.
func NewAnthropicProvider(apiKey, model, endpoint string, client *http.Client) *AnthropicProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &AnthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: orDefault(endpoint, anthropicAPIURL),
		client:   client,
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content    json.RawMessage `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      anthropicUsage  `json:"usage"`
	Error      *anthropicError `json:"error,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	system, turns := splitSystem(req.Messages)
	apiReq := anthropicRequest{
		Model:       orDefault(req.Model, p.model),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      system,
	}
	for _, m := range turns {
		apiReq.Messages = append(apiReq.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var apiResp anthropicResponse
	if err := postJSON(ctx, p.client, p.Name(), p.endpoint, header, apiReq, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Error != nil {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: fmt.Sprintf("API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)}
	}

	// Messages API replies are content blocks, never a bare string.
	content, err := flattenContent(p.Name(), apiResp.Content)
	if err != nil {
		return nil, err
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		Model:        apiResp.Model,
		FinishReason: apiResp.StopReason,
	}, nil
}
