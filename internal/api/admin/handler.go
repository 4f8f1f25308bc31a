package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/ragchat/internal/api/respond"
	"github.com/liliang-cn/ragchat/internal/service"
)

// Service is the admin behaviour the handler needs
type Service interface {
	Ingest(ctx context.Context) (*service.IngestResult, error)
	GetSession(ctx context.Context, id string) (*service.SessionSummary, error)
}

// Handler handles admin API requests
type Handler struct {
	adminService Service
}

// NewHandler creates a new admin handler
func NewHandler(adminService Service) *Handler {
	return &Handler{adminService: adminService}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ingest", h.Ingest)
	r.GET("/sessions/:id", h.GetSession)
}

// Ingest re-ingests the configured document directory
func (h *Handler) Ingest(c *gin.Context) {
	result, err := h.adminService.Ingest(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrIngestRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSession returns a stored session
func (h *Handler) GetSession(c *gin.Context) {
	summary, err := h.adminService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
