package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/ragchat/internal/api/respond"
	"github.com/liliang-cn/ragchat/internal/domain"
)

// SessionHeader carries the session id of a streamed turn
const SessionHeader = "X-Session-ID"

// Service is the chat behaviour the handler needs
type Service interface {
	ChatStream(ctx context.Context, req *domain.ChatRequest) (string, <-chan domain.StreamChunk, error)
	Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]*domain.Message, error)
}

// Handler handles chat API requests
type Handler struct {
	chatService Service
}

// NewHandler creates a new chat handler
func NewHandler(chatService Service) *Handler {
	return &Handler{chatService: chatService}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.ChatStream)
	r.POST("/chat/sync", h.Chat)
	r.GET("/sessions/:id/messages", h.Messages)
}

// ChatStream runs a chat turn and streams the answer (SSE)
func (h *Handler) ChatStream(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, stream, err := h.chatService.ChatStream(c.Request.Context(), &req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header(SessionHeader, sessionID)

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-stream
		if !ok {
			return false
		}
		writeSSE(w, chunk)
		return chunk.Type == domain.ChunkContent
	})
}

// Chat runs a chat turn and returns the whole answer
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Messages returns the stored history of a session
func (h *Handler) Messages(c *gin.Context) {
	messages, err := h.chatService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func writeSSE(w io.Writer, chunk domain.StreamChunk) {
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", chunk.Type, string(data))
}
