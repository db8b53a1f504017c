package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/service"
)

// HealthHandler serves liveness and provider health endpoints.
type HealthHandler struct {
	chat    *service.ChatService
	started time.Time
}

func NewHealthHandler(chat *service.ChatService) *HealthHandler {
	return &HealthHandler{chat: chat, started: time.Now()}
}

// HandleHealth handles GET /health: process liveness, no dependencies.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// HandleManusHealth handles GET /api/health/manus: deep check against the
// upstream provider.
func (h *HealthHandler) HandleManusHealth(c *gin.Context) {
	status := h.chat.HealthCheck(c.Request.Context())
	code := http.StatusOK
	if status.Status != models.HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// HandleIndex handles GET /api: a small index document for discoverability.
func HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "aicbot",
		"version": "1.0",
		"endpoints": []string{
			"POST /api/chat",
			"POST /api/chat/completion",
			"GET /api/conversations",
			"POST /api/conversations",
			"GET /api/conversations/stats",
			"POST /api/conversations/prune",
			"POST /api/conversations/reset",
			"GET /api/conversations/:id",
			"PUT /api/conversations/:id",
			"DELETE /api/conversations/:id",
			"GET /api/conversations/:id/messages",
			"GET /api/models",
			"GET /api/models/:id",
			"GET /api/models/:id/settings",
			"GET /api/health/manus",
			"GET /health",
		},
	})
}
