// Package qdrant is a vector index backend over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/liliang-cn/ragchat/internal/domain"
)

const providerName = "qdrant"

// Payload keys.
const (
	payloadID          = "id"
	payloadPageContent = "pageContent"
	payloadFilename    = domain.MetadataKeyFilename
	payloadSource      = domain.MetadataKeySource
)

// pointNamespace seeds the UUIDv5 point ids derived from record ids.
var pointNamespace = uuid.MustParse("6f1c1c7e-4a52-4b43-9d8e-7f0a4f2f8b11")

// Config configures the store.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Store implements the vector index on one Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
}

// NewStore connects to Qdrant.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: "connect", Err: err}
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection creates a cosine collection of the given dimension if it
// does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &domain.ValidationError{Field: "dimension", Reason: "must be positive"}
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: "collection_exists", Err: err}
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: "create_collection", Err: err}
	}
	return nil
}

// Upsert writes records and waits until they are searchable.
func (s *Store) Upsert(ctx context.Context, records []domain.IndexRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	keys := make([]string, len(records))
	for i, r := range records {
		p, err := toPoint(r)
		if err != nil {
			return nil, err
		}
		points[i] = p
		keys[i] = r.ID
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: "upsert", Err: err}
	}
	return keys, nil
}

// SimilaritySearch returns up to k nearest records, highest score first.
// The collection has a single unnamed vector, so field is ignored.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, k int, _ string) ([]domain.RetrievedDocument, error) {
	if k <= 0 {
		return nil, &domain.ValidationError{Field: "k", Reason: "must be positive"}
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: "query", Err: err}
	}

	docs := make([]domain.RetrievedDocument, 0, len(points))
	for _, p := range points {
		docs = append(docs, fromScored(p))
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

// PointID maps a record id to its Qdrant point id.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func toPoint(r domain.IndexRecord) (*qdrant.PointStruct, error) {
	if r.ID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if len(r.Embedding) == 0 {
		return nil, &domain.ValidationError{Field: "embedding", Reason: "must not be empty"}
	}
	payload, err := qdrant.TryValueMap(map[string]any{
		payloadID:          r.ID,
		payloadPageContent: r.PageContent,
		payloadFilename:    r.Metadata.Filename,
		payloadSource:      r.Metadata.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("build payload for %s: %w", r.ID, err)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(PointID(r.ID)),
		Vectors: qdrant.NewVectors(r.Embedding...),
		Payload: payload,
	}, nil
}

func fromScored(p *qdrant.ScoredPoint) domain.RetrievedDocument {
	payload := p.GetPayload()
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	id := str(payloadID)
	if id == "" {
		id = p.GetId().GetUuid()
	}
	return domain.RetrievedDocument{
		ID:          id,
		PageContent: str(payloadPageContent),
		Metadata: domain.DocumentMetadata{
			Filename: str(payloadFilename),
			Source:   str(payloadSource),
		},
		Score: float64(p.GetScore()),
	}
}
