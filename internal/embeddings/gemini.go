package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const geminiEmbedBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiModel represents a supported Gemini embedding model.
type GeminiModel string

const (
	ModelGeminiEmbedding001 GeminiModel = "gemini-embedding-001"
	ModelTextEmbedding004   GeminiModel = "text-embedding-004"
)

func (m GeminiModel) dimensions() int {
	switch m {
	case ModelGeminiEmbedding001:
		return 3072
	case ModelTextEmbedding004:
		return 768
	default:
		return 0
	}
}

// GeminiEmbedder generates embeddings using the Gemini embedContent API,
// one request per text.
type GeminiEmbedder struct {
	apiKey     string
	model      GeminiModel
	baseURL    string
	httpClient *http.Client
}

// NewGeminiEmbedder creates a new Gemini embedder. An empty baseURL uses the
// public generativelanguage endpoint.
func NewGeminiEmbedder(apiKey string, model GeminiModel, baseURL string) *GeminiEmbedder {
	if baseURL == "" {
		baseURL = geminiEmbedBaseURL
	}
	return &GeminiEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (e *GeminiEmbedder) Name() string {
	return string(e.model)
}

func (e *GeminiEmbedder) Dimensions() int {
	return e.model.dimensions()
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for _, text := range texts {
		emb, err := e.embedSingle(ctx, text)
		if err != nil {
			return nil, &ProviderError{Provider: e.Name(), Err: err}
		}
		results = append(results, emb)
	}
	if err := checkVectors(e.Name(), results, len(texts), e.Dimensions()); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *GeminiEmbedder) embedSingle(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(geminiEmbedRequest{
		Content: geminiContent{
			Parts: []geminiPart{{Text: text}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gemini embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini embed API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gemini embed response: %w", err)
	}

	return result.Embedding.Values, nil
}
