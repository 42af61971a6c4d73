package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// ToChromemFunc adapts e to chromem's one-text-at-a-time embedding hook,
// used when chromem embeds a query itself. A provider that returns no
// vector, or one of the wrong size, fails the call.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	dims := e.Dimensions()
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err == nil {
			err = checkVectors(e.Name(), vecs, 1, dims)
		}
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	}
}
