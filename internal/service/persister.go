package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// Persister appends completed turns to the chat history in the background.
// Failures are logged and reported on the task's own channel, never retried.
type Persister struct {
	store  HistoryStore
	logger *zap.Logger
	wg     conc.WaitGroup
	now    func() time.Time
}

// NewPersister creates a new persister
func NewPersister(store HistoryStore, logger *zap.Logger) *Persister {
	return &Persister{store: store, logger: logger, now: time.Now}
}

// Spawn starts appending the question and answer to the session and returns
// immediately. The returned channel receives the outcome once, then closes.
func (p *Persister) Spawn(sessionID, question, answer string) <-chan error {
	errCh := make(chan error, 1)
	p.wg.Go(func() {
		defer close(errCh)

		var pc panics.Catcher
		var err error
		pc.Try(func() {
			err = p.persist(context.Background(), sessionID, question, answer)
		})
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}

		if err != nil {
			p.logger.Error("Failed to persist chat turn",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else {
			p.logger.Debug("Persisted chat turn", zap.String("session_id", sessionID))
		}
		errCh <- err
	})
	return errCh
}

// Wait blocks until every spawned task has finished
func (p *Persister) Wait() {
	p.wg.Wait()
}

func (p *Persister) persist(ctx context.Context, sessionID, question, answer string) error {
	asked := p.now().UTC().Truncate(time.Microsecond)
	userMsg := &domain.Message{
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: asked,
	}
	// Stores keep microsecond precision at least.
	assistantMsg := &domain.Message{
		Role:      domain.RoleAssistant,
		Content:   answer,
		CreatedAt: asked.Add(time.Microsecond),
	}

	if err := p.store.AppendMessages(ctx, sessionID, userMsg, assistantMsg); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}
