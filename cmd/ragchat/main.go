package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/api"
	"github.com/liliang-cn/ragchat/internal/app"
	"github.com/liliang-cn/ragchat/internal/config"
	"github.com/liliang-cn/ragchat/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize history store
	history, closeHistory, err := app.NewHistoryStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize history store", zap.Error(err))
	}
	defer closeHistory()

	// Initialize providers
	embedder, completer, err := app.NewLLM(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	index, closeIndex, err := app.NewVectorIndex(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize vector index", zap.Error(err))
	}
	defer closeIndex()

	// Initialize services
	persister := service.NewPersister(history, logger)
	chatService := service.NewChatService(
		history,
		service.NewRetriever(embedder, index, cfg.RAG.VectorField),
		service.NewGenerator(completer, logger),
		persister,
		cfg.RAG.TopK,
		logger,
	)

	ingestService := service.NewIngestService(embedder, index, service.IngestConfig{
		DocRoot: cfg.Ingest.DocRoot,
		Source:  cfg.Ingest.Source,
	}, logger)
	adminService := service.NewAdminService(history, ingestService, logger)

	// Setup router
	router := api.SetupRouter(chatService, adminService, logger, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: []string{"*"},
	})

	// Streams stay open for the whole generation, so no write timeout.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting ragchat server",
			zap.String("address", cfg.Address()),
			zap.String("vector_provider", cfg.Vector.Provider),
			zap.String("history_driver", cfg.History.Driver),
			zap.String("embedding_model", embedder.ModelName()),
			zap.String("chat_model", completer.ModelName()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight turns finish writing history
	persister.Wait()

	logger.Info("Server exited")
}
