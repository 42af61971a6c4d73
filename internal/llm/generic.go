package llm

import (
	"context"
	"net/http"
)

// GenericHTTPProvider posts a flat system+user prompt to an arbitrary
// endpoint (Azure-style deployments) and reads an OpenAI-shaped reply.
type GenericHTTPProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGenericHTTPProvider creates a provider for the given endpoint URL.
func NewGenericHTTPProvider(apiKey, model, endpoint string, client *http.Client) *GenericHTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &GenericHTTPProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   client,
	}
}

func (p *GenericHTTPProvider) Name() string {
	return "generic-http"
}

type genericRequest struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type genericResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *GenericHTTPProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	system, user := FlattenMessages(req.Messages)
	in := genericRequest{
		System:      system,
		User:        user,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	header := http.Header{}
	header.Set("api-key", p.apiKey)

	var apiResp genericResponse
	if err := postJSON(ctx, p.client, p.Name(), p.endpoint, header, in, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Choices) == 0 {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: "no choices in response"}
	}
	choice := apiResp.Choices[0]
	if choice.Message.Content == nil {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: "choices[0].message.content is missing"}
	}

	return &CompletionResponse{
		Content:      *choice.Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		Model:        orDefault(apiResp.Model, p.model),
		FinishReason: choice.FinishReason,
	}, nil
}
