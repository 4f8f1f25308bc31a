package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// Embedder converts text into embedding vectors.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewEmbedder creates an embedder for the given model or Azure deployment.
// dimensions is the model's fixed output size and is reported by Dimensions.
func NewEmbedder(client openai.Client, model string, dimensions int) *Embedder {
	return &Embedder{client: client, model: model, dimensions: dimensions}
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, providerError("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, providerError("embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, providerError("embed", fmt.Errorf("embedding index %d out of range", data.Index))
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		vectors[data.Index] = vec
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, providerError("embed", fmt.Errorf("missing embedding for input %d", i))
		}
	}
	return vectors, nil
}

// Dimensions returns the configured embedding size, 0 if unknown.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the embedding model or deployment name.
func (e *Embedder) ModelName() string {
	return e.model
}
