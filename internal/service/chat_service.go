package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/domain"
	"github.com/liliang-cn/ragchat/internal/memory"
)

// DefaultTopK bounds how many documents feed one answer
const DefaultTopK = 10

// ChatService runs retrieval-augmented chat turns
type ChatService struct {
	history   HistoryStore
	retriever *Retriever
	generator *Generator
	persister *Persister
	topK      int
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	history HistoryStore,
	retriever *Retriever,
	generator *Generator,
	persister *Persister,
	topK int,
	logger *zap.Logger,
) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{
		history:   history,
		retriever: retriever,
		generator: generator,
		persister: persister,
		topK:      topK,
		logger:    logger,
	}
}

// turn is a validated chat turn ready to run
type turn struct {
	sessionID string
	question  string
	memory    *memory.Buffer
}

// ChatStream validates the request and starts a turn. Answer tokens arrive on
// the returned channel, which ends with a done or error chunk. The turn keeps
// running if ctx is cancelled; its chunks are then dropped.
func (s *ChatService) ChatStream(ctx context.Context, req *domain.ChatRequest) (string, <-chan domain.StreamChunk, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return "", nil, err
	}

	ch := make(chan domain.StreamChunk, 100)
	go func() {
		answer, _, err := s.run(context.WithoutCancel(ctx), t, func(token string) {
			send(ctx, ch, domain.StreamChunk{Type: domain.ChunkContent, Content: token})
		})
		if err != nil {
			send(ctx, ch, domain.StreamChunk{Type: domain.ChunkError, Content: err.Error()})
			close(ch)
			return
		}
		s.persister.Spawn(t.sessionID, t.question, answer)
		send(ctx, ch, domain.StreamChunk{Type: domain.ChunkDone})
		close(ch)
	}()

	return t.sessionID, ch, nil
}

// Chat runs a turn to completion and returns the whole answer. Like
// ChatStream, the turn and its persistence outlive a cancelled ctx.
func (s *ChatService) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, docs, err := s.run(context.WithoutCancel(ctx), t, nil)
	if err != nil {
		return nil, err
	}
	s.persister.Spawn(t.sessionID, t.question, answer)

	return &domain.ChatResponse{
		SessionID: t.sessionID,
		Answer:    answer,
		Sources:   domain.Sources(docs),
	}, nil
}

// History returns the stored messages of a session in order
func (s *ChatService) History(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	if _, err := s.history.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.history.GetMessages(ctx, sessionID)
}

// prepare validates the request and rebuilds the conversation memory.
// Stored history is authoritative; the client's prior messages only seed
// memory for a session the store has never seen.
func (s *ChatService) prepare(ctx context.Context, req *domain.ChatRequest) (*turn, error) {
	question, err := req.LastUserMessage()
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	var history []*domain.Message
	if sessionID == "" {
		sessionID = uuid.New().String()
	} else {
		history, err = s.history.GetMessages(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}
	if len(history) == 0 {
		prior := req.Messages[:len(req.Messages)-1]
		history = make([]*domain.Message, len(prior))
		for i, m := range prior {
			history[i] = &domain.Message{SessionID: sessionID, Role: m.Role, Content: m.Content}
		}
	}

	mem, err := memory.Build(history)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory: %w", err)
	}

	return &turn{sessionID: sessionID, question: question, memory: mem}, nil
}

// run retrieves, then generates. Map-phase summaries are never forwarded;
// onToken sees reduce-phase tokens only.
func (s *ChatService) run(ctx context.Context, t *turn, onToken func(string)) (string, []domain.RetrievedDocument, error) {
	logger := s.logger.With(zap.String("session_id", t.sessionID))

	docs, err := s.retriever.Retrieve(ctx, t.question, s.topK)
	if err != nil {
		logger.Error("Retrieval failed", zap.Error(err))
		return "", nil, err
	}
	logger.Debug("Retrieved documents", zap.Int("count", len(docs)))

	gen := s.generator.Generate(ctx, docs, t.question, t.memory)
	for token := range gen.Answer() {
		if onToken != nil {
			onToken(token.Text)
		}
	}

	answer, err := gen.Wait()
	if err != nil {
		return "", docs, err
	}
	return answer, docs, nil
}

func send(ctx context.Context, ch chan<- domain.StreamChunk, chunk domain.StreamChunk) {
	if ctx.Err() != nil {
		return
	}
	select {
	case ch <- chunk:
	case <-ctx.Done():
	}
}
