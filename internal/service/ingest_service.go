package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// IngestConfig configures an ingestion run
type IngestConfig struct {
	DocRoot string
	Source  string
}

// IngestResult summarizes an ingestion run
type IngestResult struct {
	Documents int      `json:"documents"`
	Keys      []string `json:"keys"`
}

// IngestService embeds a directory of text documents and uploads them to the
// vector index. Every run inserts fresh records; nothing is deduplicated.
type IngestService struct {
	embedder Embedder
	index    VectorIndex
	cfg      IngestConfig
	logger   *zap.Logger
	newID    func() string
}

// NewIngestService creates a new ingest service
func NewIngestService(embedder Embedder, index VectorIndex, cfg IngestConfig, logger *zap.Logger) *IngestService {
	return &IngestService{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
		newID:    func() string { return "id" + uuid.New().String() },
	}
}

// LoadDocuments reads every regular file directly under dir, sorted by name
func LoadDocuments(dir, source string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []domain.Document
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		docs = append(docs, domain.Document{
			PageContent: string(content),
			Metadata: domain.DocumentMetadata{
				Filename: entry.Name(),
				Source:   source,
			},
		})
	}
	return docs, nil
}

// Run loads the configured directory, embeds every document in one batch and
// upserts all records in one batch
func (s *IngestService) Run(ctx context.Context) (*IngestResult, error) {
	docs, err := LoadDocuments(s.cfg.DocRoot, s.cfg.Source)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Loaded documents",
		zap.String("doc_root", s.cfg.DocRoot),
		zap.Int("count", len(docs)),
	)
	if len(docs) == 0 {
		return &IngestResult{}, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.PageContent
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, &domain.ProviderError{
			Provider: "embedding",
			Op:       "embed",
			Body:     fmt.Sprintf("expected %d vectors, got %d", len(docs), len(vectors)),
		}
	}

	dims := s.embedder.Dimensions()
	if dims == 0 {
		dims = len(vectors[0])
	}
	records := make([]domain.IndexRecord, len(docs))
	for i, d := range docs {
		if len(vectors[i]) != dims {
			return nil, &domain.DimensionMismatchError{Expected: dims, Got: len(vectors[i])}
		}
		records[i] = domain.IndexRecord{
			ID:          s.newID(),
			PageContent: d.PageContent,
			Metadata:    d.Metadata,
			Embedding:   vectors[i],
		}
	}

	if ci, ok := s.index.(CollectionInitializer); ok {
		if err := ci.EnsureCollection(ctx, dims); err != nil {
			return nil, fmt.Errorf("failed to prepare collection: %w", err)
		}
	}

	keys, err := s.index.Upsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert records: %w", err)
	}
	s.logger.Info("Ingested documents",
		zap.Int("records", len(records)),
		zap.Int("dimensions", dims),
	)

	return &IngestResult{Documents: len(records), Keys: keys}, nil
}
