// Package app builds the configured providers shared by the server and the
// ingestion command.
package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/config"
	"github.com/liliang-cn/ragchat/internal/llm"
	"github.com/liliang-cn/ragchat/internal/repository"
	"github.com/liliang-cn/ragchat/internal/service"
	"github.com/liliang-cn/ragchat/internal/vectorstore/azuresearch"
	"github.com/liliang-cn/ragchat/internal/vectorstore/qdrant"
)

// CloseFunc releases a provider's resources
type CloseFunc func() error

func noopClose() error { return nil }

// NewLogger creates the process logger
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewLLM creates the embedding and completion clients
func NewLLM(cfg *config.Config) (*llm.Embedder, *llm.Completer, error) {
	client, err := llm.NewClient(llm.Config{
		Provider:   cfg.OpenAI.Provider,
		BaseURL:    cfg.OpenAI.BaseURL,
		Endpoint:   cfg.OpenAIEndpoint(),
		APIVersion: cfg.OpenAI.APIVersion,
		APIKey:     cfg.OpenAI.APIKey,
	})
	if err != nil {
		return nil, nil, err
	}
	embedder := llm.NewEmbedder(client, cfg.OpenAI.EmbeddingDeployment, cfg.OpenAI.EmbeddingDimensions)
	completer := llm.NewCompleter(client, cfg.OpenAI.ChatDeployment)
	return embedder, completer, nil
}

// NewVectorIndex creates the configured vector index client
func NewVectorIndex(cfg *config.Config) (service.VectorIndex, CloseFunc, error) {
	switch cfg.Vector.Provider {
	case "azure":
		client, err := azuresearch.NewClient(azuresearch.Config{
			Endpoint:   cfg.SearchEndpoint(),
			IndexName:  cfg.Search.IndexName,
			APIKey:     cfg.Search.APIKey,
			APIVersion: cfg.Search.APIVersion,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, noopClose, nil
	case "qdrant":
		store, err := qdrant.NewStore(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector provider: %s", cfg.Vector.Provider)
	}
}

// NewHistoryStore creates the configured chat history store
func NewHistoryStore(ctx context.Context, cfg *config.Config) (service.HistoryStore, CloseFunc, error) {
	switch cfg.History.Driver {
	case "sqlite":
		db, err := repository.NewDB(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSessionRepository(db), db.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		history, err := repository.NewRedisHistory(ctx, client, cfg.Redis.KeyPrefix)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return history, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown history driver: %s", cfg.History.Driver)
	}
}
