// Command loaddocs embeds every file in ./docs/ihr and uploads it to the
// configured vector index. Re-running inserts the documents again.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/app"
	"github.com/liliang-cn/ragchat/internal/config"
	"github.com/liliang-cn/ragchat/internal/domain"
	"github.com/liliang-cn/ragchat/internal/service"
)

const (
	envFile = ".env.local"
	docRoot = "./docs/ihr"
	source  = "ihr"
)

func main() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", envFile, err)
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	result, err := run(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Ingestion failed", failureFields(err)...)
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Ingestion finished", zap.Int("documents", result.Documents))
	logger.Sync()
}

// run ingests docRoot; providers are released before it returns
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.IngestResult, error) {
	embedder, _, err := app.NewLLM(cfg)
	if err != nil {
		return nil, err
	}
	index, closeIndex, err := app.NewVectorIndex(cfg)
	if err != nil {
		return nil, err
	}
	defer closeIndex()

	logger.Info("Loading documents",
		zap.String("doc_root", docRoot),
		zap.String("embedding_model", embedder.ModelName()),
		zap.String("vector_provider", cfg.Vector.Provider),
	)

	ingest := service.NewIngestService(embedder, index, service.IngestConfig{
		DocRoot: docRoot,
		Source:  source,
	}, logger)
	return ingest.Run(ctx)
}

// failureFields carries the remote status and body of a provider failure
func failureFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		fields = append(fields, zap.Int("status", pe.StatusCode), zap.String("body", pe.Body))
	}
	return fields
}
