package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const geminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider calls the Gemini generateContent API. The key travels in
// the query string, so transport errors are redacted.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini provider. An empty baseURL uses the
// public generativelanguage endpoint.
func NewGeminiProvider(apiKey, model, baseURL string, client *http.Client) *GeminiProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(orDefault(baseURL, geminiAPIBaseURL), "/"),
		client:  client,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
	Error         *geminiError         `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := orDefault(req.Model, p.model)

	system, turns := splitSystem(req.Messages)
	apiReq := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if system != "" {
		apiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		apiReq.Contents = append(apiReq.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	// The API rejects a request with no contents.
	if len(apiReq.Contents) == 0 {
		apiReq.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: ""}}}}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, model, url.QueryEscape(p.apiKey))
	var apiResp geminiResponse
	if err := postJSON(ctx, p.client, p.Name(), endpoint, nil, apiReq, &apiResp); err != nil {
		var he *HTTPError
		if errors.As(err, &he) && he.Err != nil {
			he.Err = redactKey(he.Err, p.apiKey)
		}
		return nil, err
	}

	if apiResp.Error != nil {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: fmt.Sprintf("API error (%s): %s", apiResp.Error.Status, apiResp.Error.Message)}
	}
	if len(apiResp.Candidates) == 0 || apiResp.Candidates[0].Content == nil {
		return nil, &ResponseShapeError{Provider: p.Name(), Reason: "no candidates in response"}
	}

	cand := apiResp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	out := &CompletionResponse{
		Content:      sb.String(),
		Model:        model,
		FinishReason: cand.FinishReason,
	}
	if u := apiResp.UsageMetadata; u != nil {
		out.InputTokens = u.PromptTokenCount
		out.OutputTokens = u.CandidatesTokenCount
	}
	return out, nil
}

// redactKey strips the API key from transport errors, which echo the URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	if msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s", msg)
}
