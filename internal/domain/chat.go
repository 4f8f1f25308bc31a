package domain

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session represents a chat session
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a persisted chat message
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptMessage is a message handed to the completion provider
type PromptMessage struct {
	Role    Role
	Content string
}

// IncomingMessage is a message as sent by the client
type IncomingMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request to run one chat turn.
// The last message is the new user message.
type ChatRequest struct {
	SessionID string            `json:"id"`
	Messages  []IncomingMessage `json:"messages" binding:"required"`
}

// ChatResponse is the response from a non-streaming chat turn
type ChatResponse struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources,omitempty"`
}

// Source represents a citation source
type Source struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}

// Stream chunk types
const (
	ChunkContent = "content"
	ChunkDone    = "done"
	ChunkError   = "error"
)

// StreamChunk represents a chunk in SSE stream
type StreamChunk struct {
	Type    string `json:"type"` // content, done, error
	Content string `json:"content,omitempty"`
}

// LastUserMessage validates the request shape and returns the new user message
func (r *ChatRequest) LastUserMessage() (string, error) {
	if len(r.Messages) == 0 {
		return "", &ValidationError{Field: "messages", Reason: "at least one message is required"}
	}
	for i, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return "", &ValidationError{Field: fieldIndex("messages", i), Reason: "unknown role " + string(m.Role)}
		}
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return "", &ValidationError{Field: "messages", Reason: "last message must come from the user"}
	}
	if last.Content == "" {
		return "", &ValidationError{Field: "messages", Reason: "last message is empty"}
	}
	return last.Content, nil
}
