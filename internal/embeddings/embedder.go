package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed returns one vector per input text, in input order. An empty
	// input yields an empty result and makes no remote call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors,
	// or 0 when the model's size is not known up front.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// ProviderError is returned when the embedding service cannot be reached,
// rejects the request, or answers with missing or mis-sized vectors.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// checkVectors validates a provider response against the request size and,
// when known, the model dimension. Zero-length vectors are rejected rather
// than passed on as padding.
func checkVectors(provider string, vecs [][]float32, want, dims int) error {
	if len(vecs) != want {
		return &ProviderError{Provider: provider, Err: fmt.Errorf("returned %d embeddings, expected %d", len(vecs), want)}
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return &ProviderError{Provider: provider, Err: fmt.Errorf("embedding %d is empty", i)}
		}
		if dims > 0 && len(v) != dims {
			return &ProviderError{Provider: provider, Err: fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), dims)}
		}
		if len(v) != len(vecs[0]) {
			return &ProviderError{Provider: provider, Err: fmt.Errorf("embedding %d has %d dimensions, first had %d", i, len(v), len(vecs[0]))}
		}
	}
	return nil
}
