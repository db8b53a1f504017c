package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/service"
)

// ConversationHandler serves conversation CRUD and maintenance endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// HandleList handles GET /api/conversations.
func (h *ConversationHandler) HandleList(c *gin.Context) {
	convs, err := h.conversations.List(c.Request.Context(), UserID(c))
	if err != nil {
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// HandleGet handles GET /api/conversations/:id.
func (h *ConversationHandler) HandleGet(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
			return
		}
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// HandleCreate handles POST /api/conversations.
func (h *ConversationHandler) HandleCreate(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || len(req.Title) > 200 {
		respondError(c, models.ErrCodeValidation, "title is required and must be at most 200 characters")
		return
	}
	if !req.Settings.Valid() {
		respondError(c, models.ErrCodeValidation, "settings must include a model, temperature in [0,2] and maxTokens in [1,32000]")
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), UserID(c), req.Title, req.Settings)
	if err != nil {
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// HandleUpdate handles PUT /api/conversations/:id.
func (h *ConversationHandler) HandleUpdate(c *gin.Context) {
	var req models.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 200) {
		respondError(c, models.ErrCodeValidation, "title must be between 1 and 200 characters")
		return
	}
	if req.Settings != nil && !req.Settings.Valid() {
		respondError(c, models.ErrCodeValidation, "settings must include a model, temperature in [0,2] and maxTokens in [1,32000]")
		return
	}

	conv, err := h.conversations.Update(c.Request.Context(), UserID(c), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
			return
		}
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// HandleDelete handles DELETE /api/conversations/:id.
func (h *ConversationHandler) HandleDelete(c *gin.Context) {
	deleted, err := h.conversations.Delete(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		respondFromError(c, err)
		return
	}
	if !deleted {
		respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMessages handles GET /api/conversations/:id/messages.
func (h *ConversationHandler) HandleMessages(c *gin.Context) {
	msgs, err := h.conversations.Messages(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
			return
		}
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// HandleStats handles GET /api/conversations/stats.
func (h *ConversationHandler) HandleStats(c *gin.Context) {
	stats, err := h.conversations.Stats(c.Request.Context(), UserID(c))
	if err != nil {
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandlePrune handles POST /api/conversations/prune?maxAgeHours=N.
func (h *ConversationHandler) HandlePrune(c *gin.Context) {
	maxAgeHours := 24 * 30
	if v := c.Query("maxAgeHours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(c, models.ErrCodeValidation, "maxAgeHours must be a positive integer")
			return
		}
		maxAgeHours = n
	}

	removed, err := h.conversations.Prune(c.Request.Context(), UserID(c), time.Duration(maxAgeHours)*time.Hour)
	if err != nil {
		respondFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prunedConversations": removed})
}

// HandleReset handles POST /api/conversations/reset.
func (h *ConversationHandler) HandleReset(c *gin.Context) {
	if err := h.conversations.Reset(c.Request.Context(), UserID(c)); err != nil {
		respondFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
