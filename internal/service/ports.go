package service

import (
	"context"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// Embedder turns texts into fixed-length vectors, one per input, in order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorIndex stores embedded records and answers k-NN queries
type VectorIndex interface {
	Upsert(ctx context.Context, records []domain.IndexRecord) ([]string, error)
	SimilaritySearch(ctx context.Context, vector []float32, k int, field string) ([]domain.RetrievedDocument, error)
}

// CollectionInitializer is implemented by indexes that must be created
// before the first upsert
type CollectionInitializer interface {
	EnsureCollection(ctx context.Context, dim int) error
}

// Completer runs chat completions
type Completer interface {
	Complete(ctx context.Context, messages []domain.PromptMessage) (string, error)
	Stream(ctx context.Context, messages []domain.PromptMessage, onToken func(string)) (string, error)
}

// HistoryStore is the durable, append-only chat history
type HistoryStore interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...*domain.Message) error
}
