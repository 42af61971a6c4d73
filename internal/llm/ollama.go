package llm

import (
	"context"
	"net/http"
	"strings"
)

// OllamaProvider talks to a local Ollama server's /api/chat endpoint with
// streaming off.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// DefaultOllamaHost is used when no endpoint is given.
const DefaultOllamaHost = "http://localhost:11434"

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(baseURL string, model string, client *http.Client) *OllamaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(orDefault(baseURL, DefaultOllamaHost), "/"),
		model:   model,
		client:  client,
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message         *ollamaMessage `json:"message"`
	Model           string         `json:"model"`
	Done            bool           `json:"done"`
	DoneReason      string         `json:"done_reason"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	EvalCount       int            `json:"eval_count"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	in := ollamaChatRequest{
		Model: orDefault(req.Model, p.model),
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range req.Messages {
		in.Messages = append(in.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	var out ollamaChatResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/api/chat", nil, in, &out); err != nil {
		return nil, err
	}
	if out.Message == nil {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: "message is missing"}
	}

	return &CompletionResponse{
		Content:      out.Message.Content,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		Model:        out.Model,
		FinishReason: out.DoneReason,
	}, nil
}
