// Package memory rebuilds short-term conversational memory from a session's history.
package memory

import (
	"fmt"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// TurnKind classifies a replayed message
type TurnKind int

const (
	HumanTurn TurnKind = iota
	AssistantTurn
)

func (k TurnKind) String() string {
	switch k {
	case HumanTurn:
		return "human"
	case AssistantTurn:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is one replayed message
type Turn struct {
	Kind    TurnKind
	Content string
}

// Buffer holds the replayed turns of a conversation in original order
type Buffer struct {
	turns []Turn
}

// Build replays history in order, classifying each message by role.
// Roles other than user and assistant are rejected.
func Build(history []*domain.Message) (*Buffer, error) {
	b := &Buffer{turns: make([]Turn, 0, len(history))}
	for i, msg := range history {
		if msg == nil {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("history[%d]", i), Reason: "nil message"}
		}
		switch msg.Role {
		case domain.RoleUser:
			b.turns = append(b.turns, Turn{Kind: HumanTurn, Content: msg.Content})
		case domain.RoleAssistant:
			b.turns = append(b.turns, Turn{Kind: AssistantTurn, Content: msg.Content})
		default:
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("history[%d]", i),
				Reason: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
	}
	return b, nil
}

// Empty returns a buffer with no turns
func Empty() *Buffer {
	return &Buffer{}
}

// Len returns the number of turns
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.turns)
}

// Turns returns a copy of the replayed turns
func (b *Buffer) Turns() []Turn {
	if b == nil {
		return nil
	}
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// PromptMessages renders the turns as completion messages
func (b *Buffer) PromptMessages() []domain.PromptMessage {
	if b == nil {
		return nil
	}
	msgs := make([]domain.PromptMessage, len(b.turns))
	for i, t := range b.turns {
		role := domain.RoleUser
		if t.Kind == AssistantTurn {
			role = domain.RoleAssistant
		}
		msgs[i] = domain.PromptMessage{Role: role, Content: t.Content}
	}
	return msgs
}
