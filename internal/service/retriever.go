package service

import (
	"context"
	"fmt"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// Retriever embeds a query and searches the vector index
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	field    string
}

// NewRetriever creates a new retriever searching over the given vector field
func NewRetriever(embedder Embedder, index VectorIndex, field string) *Retriever {
	return &Retriever{embedder: embedder, index: index, field: field}
}

// Retrieve returns up to k documents most similar to query, best first
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedDocument, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, &domain.ProviderError{
			Provider: "embedding",
			Op:       "embed",
			Body:     fmt.Sprintf("expected 1 vector, got %d", len(vectors)),
		}
	}

	vector := vectors[0]
	if dims := r.embedder.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, &domain.DimensionMismatchError{Expected: dims, Got: len(vector)}
	}

	docs, err := r.index.SimilaritySearch(ctx, vector, k, r.field)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return docs, nil
}
