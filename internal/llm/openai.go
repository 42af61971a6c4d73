package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the Chat Completions API. With a
// base URL it also serves any OpenAI-compatible backend (OpenRouter, vLLM,
// LM Studio).
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewCompatibleProvider creates a provider for an OpenAI-compatible backend
// at baseURL.
func NewCompatibleProvider(apiKey, model, baseURL string, httpClient *http.Client) *OpenAIProvider {
	return newChatCompletionsProvider("compatible", apiKey, model, baseURL, httpClient)
}

func newChatCompletionsProvider(name, apiKey, model, baseURL string, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:       orDefault(req.Model, p.model),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, wrapOpenAIError(p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ResponseShapeError{Provider: p.name, Reason: "no choices in response"}
	}
	choice := resp.Choices[0]

	return &CompletionResponse{
		Content:      choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
	}, nil
}
