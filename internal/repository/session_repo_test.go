package repository

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/ragchat/internal/domain"
)

func newTestRepo(t *testing.T) *SessionRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db)
}

func TestSessionRepository_AppendAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := repo.AppendMessages(ctx, "s1",
		&domain.Message{Role: domain.RoleUser, Content: "What is IHR?", CreatedAt: base},
		&domain.Message{Role: domain.RoleAssistant, Content: "International Health Regulations.", CreatedAt: base.Add(time.Microsecond)},
	)
	require.NoError(t, err)

	msgs, err := repo.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is IHR?", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
	assert.NotEmpty(t, msgs[0].ID)
	assert.Equal(t, "s1", msgs[1].SessionID)

	session, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
}

func TestSessionRepository_AppendOnlyOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		q := base.Add(time.Duration(2*i) * time.Second)
		require.NoError(t, repo.AppendMessages(ctx, "s1",
			&domain.Message{Role: domain.RoleUser, Content: "q", CreatedAt: q},
			&domain.Message{Role: domain.RoleAssistant, Content: "a", CreatedAt: q.Add(time.Second)},
		))
	}

	msgs, err := repo.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role)
		}
		if i > 0 {
			assert.True(t, m.CreatedAt.After(msgs[i-1].CreatedAt))
		}
	}
}

func TestSessionRepository_UnknownSession(t *testing.T) {
	repo := newTestRepo(t)

	msgs, err := repo.GetMessages(t.Context(), "missing")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = repo.GetSession(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_RejectsEmptySession(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.AppendMessages(t.Context(), "", &domain.Message{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionRepository_RejectsUnknownRole(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.AppendMessages(t.Context(), "s1",
		&domain.Message{Role: domain.RoleUser, Content: "ok"},
		&domain.Message{Role: "tool", Content: "bad"},
	)
	require.Error(t, err)

	msgs, err := repo.GetMessages(t.Context(), "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "failed transaction must not leave partial turns")
}

func TestSessionRepository_ConcurrentAppends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AppendMessages(ctx, "s1",
				&domain.Message{Role: domain.RoleUser, Content: "q"},
				&domain.Message{Role: domain.RoleAssistant, Content: "a"},
			))
		}()
	}
	wg.Wait()

	msgs, err := repo.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 16)
}
