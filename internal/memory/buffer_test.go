package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/ragchat/internal/domain"
)

func TestBuild_ReplaysInOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			history := make([]*domain.Message, n)
			for i := range history {
				role := domain.RoleUser
				if i%2 == 1 {
					role = domain.RoleAssistant
				}
				history[i] = &domain.Message{Role: role, Content: fmt.Sprintf("m%d", i)}
			}

			buf, err := Build(history)
			require.NoError(t, err)
			require.Equal(t, n, buf.Len())

			for i, turn := range buf.Turns() {
				assert.Equal(t, fmt.Sprintf("m%d", i), turn.Content)
				if i%2 == 0 {
					assert.Equal(t, HumanTurn, turn.Kind)
				} else {
					assert.Equal(t, AssistantTurn, turn.Kind)
				}
			}
		})
	}
}

func TestBuild_RejectsUnknownRole(t *testing.T) {
	history := []*domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: "system", Content: "sneaky"},
	}

	_, err := Build(history)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "history[1]")
}

func TestBuild_RejectsNil(t *testing.T) {
	_, err := Build([]*domain.Message{nil})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuffer_PromptMessages(t *testing.T) {
	buf, err := Build([]*domain.Message{
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, Content: "a"},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.PromptMessage{
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, Content: "a"},
	}, buf.PromptMessages())
}

func TestBuffer_TurnsIsCopy(t *testing.T) {
	buf, err := Build([]*domain.Message{{Role: domain.RoleUser, Content: "q"}})
	require.NoError(t, err)

	turns := buf.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "q", buf.Turns()[0].Content)
}

func TestEmpty(t *testing.T) {
	assert.Equal(t, 0, Empty().Len())
	assert.Empty(t, Empty().PromptMessages())
	var nilBuf *Buffer
	assert.Equal(t, 0, nilBuf.Len())
}
