package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// ErrIngestRunning is returned while another ingestion is in progress
var ErrIngestRunning = errors.New("ingestion already running")

// SessionSummary describes a stored session
type SessionSummary struct {
	Session      *domain.Session `json:"session"`
	MessageCount int             `json:"message_count"`
}

// AdminService handles admin operations
type AdminService struct {
	history HistoryStore
	ingest  *IngestService
	logger  *zap.Logger

	mu        sync.Mutex
	ingesting bool
}

// NewAdminService creates a new admin service
func NewAdminService(history HistoryStore, ingest *IngestService, logger *zap.Logger) *AdminService {
	return &AdminService{
		history: history,
		ingest:  ingest,
		logger:  logger,
	}
}

// Ingest runs one ingestion of the configured document directory.
// Runs do not overlap; a second caller gets ErrIngestRunning.
func (s *AdminService) Ingest(ctx context.Context) (*IngestResult, error) {
	s.mu.Lock()
	if s.ingesting {
		s.mu.Unlock()
		return nil, ErrIngestRunning
	}
	s.ingesting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.ingesting = false
		s.mu.Unlock()
	}()

	result, err := s.ingest.Run(ctx)
	if err != nil {
		s.logger.Error("Ingestion failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetSession returns a session and its message count
func (s *AdminService) GetSession(ctx context.Context, id string) (*SessionSummary, error) {
	session, err := s.history.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.history.GetMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionSummary{Session: session, MessageCount: len(messages)}, nil
}
