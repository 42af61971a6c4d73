package embeddings

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBatchSize is the number of texts sent per embeddings request.
const DefaultBatchSize = 100

// OpenAIModel represents a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
	ModelTextEmbeddingAda002 OpenAIModel = "text-embedding-ada-002"
)

func (m OpenAIModel) dimensions() int {
	switch m {
	case ModelTextEmbedding3Small, ModelTextEmbeddingAda002:
		return 1536
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 0
	}
}

// OpenAIEmbedder generates embeddings using OpenAI's API or any server
// exposing the same /embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     OpenAIModel
	dims      int
	batchSize int
}

// NewOpenAIEmbedder creates a new OpenAI embedder. baseURL may be empty;
// batchSize <= 0 uses DefaultBatchSize. dims overrides the model's known
// dimension when non-zero.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel, baseURL string, batchSize, dims int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if dims == 0 {
		dims = model.dimensions()
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dims:      dims,
		batchSize: batchSize,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return string(e.model)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, &ProviderError{Provider: e.Name(), Err: fmt.Errorf("embedding request failed: %w", err)}
		}

		// The API reports each vector's input position; don't rely on order.
		data := resp.Data
		sort.SliceStable(data, func(a, b int) bool { return data[a].Index < data[b].Index })

		vecs := make([][]float32, len(data))
		for j, emb := range data {
			vecs[j] = emb.Embedding
		}
		if err := checkVectors(e.Name(), vecs, len(batch), e.dims); err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, vecs...)
	}

	return allEmbeddings, nil
}
