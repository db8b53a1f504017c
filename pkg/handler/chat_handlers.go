package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/service"
	"github.com/ahtungko/aicbot/pkg/utils"
)

const maxMessageLength = 10000

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	chat          *service.ChatService
	conversations *service.ConversationService
	logger        *slog.Logger
}

func NewChatHandler(chat *service.ChatService, conversations *service.ConversationService) *ChatHandler {
	return &ChatHandler{
		chat:          chat,
		conversations: conversations,
		logger:        utils.GetLogger(),
	}
}

func validateChatRequest(req *models.ChatRequest) string {
	if req.Message == "" {
		return "message is required"
	}
	if len(req.Message) > maxMessageLength {
		return fmt.Sprintf("message exceeds maximum length of %d characters", maxMessageLength)
	}
	if !req.Settings.Valid() {
		return "settings must include a model, temperature in [0,2] and maxTokens in [1,32000]"
	}
	return ""
}

// titleFromMessage derives a conversation title from its first message.
func titleFromMessage(message string) string {
	if len(message) > 50 {
		return message[:50] + "..."
	}
	return message
}

// HandleChat handles POST /api/chat: creates the conversation if needed,
// persists the user turn, then streams the assistant reply as SSE frames
// ending with [DONE]. Errors after the stream opens are sent as a terminal
// error frame rather than dropping the connection.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if msg := validateChatRequest(&req); msg != "" {
		respondError(c, models.ErrCodeValidation, msg)
		return
	}

	userID := UserID(c)
	ctx := c.Request.Context()

	if req.ConversationID == "" {
		conv, err := h.conversations.Create(ctx, userID, titleFromMessage(req.Message), req.Settings)
		if err != nil {
			respondFromError(c, err)
			return
		}
		req.ConversationID = conv.ID
	}

	userMsg := &models.Message{
		ID:        fmt.Sprintf("user-%d", time.Now().UnixMilli()),
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
	}
	if err := h.conversations.AddMessage(ctx, userID, req.ConversationID, userMsg); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
			return
		}
		respondFromError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	err := h.chat.SendMessage(ctx, userID, &req, func(chunk models.ChatResponse) {
		h.writeFrame(c, chunk)

		// The final chunk is the single write path for assistant content.
		if chunk.IsComplete {
			assistantMsg := &models.Message{
				ID:        chunk.ID,
				Role:      models.RoleAssistant,
				Content:   chunk.Content,
				Timestamp: time.Now(),
			}
			if err := h.conversations.AddMessage(ctx, userID, req.ConversationID, assistantMsg); err != nil {
				h.logger.Error("persist assistant message failed",
					"conversation_id", req.ConversationID, "error", err)
			}
		}
	})
	if err != nil {
		h.writeFrame(c, models.StreamErrorFrame{
			Error:     true,
			Code:      models.CodeOf(err),
			Message:   models.MessageOf(err),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// writeFrame marshals v as one SSE data frame and flushes it immediately.
func (h *ChatHandler) writeFrame(c *gin.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal sse frame failed", "error", err)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", b)
	c.Writer.Flush()
}

// HandleChatCompletion handles POST /api/chat/completion, the non-streaming
// fallback. It persists both turns and returns the complete response as JSON.
func (h *ChatHandler) HandleChatCompletion(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if msg := validateChatRequest(&req); msg != "" {
		respondError(c, models.ErrCodeValidation, msg)
		return
	}

	userID := UserID(c)
	ctx := c.Request.Context()

	if req.ConversationID == "" {
		conv, err := h.conversations.Create(ctx, userID, titleFromMessage(req.Message), req.Settings)
		if err != nil {
			respondFromError(c, err)
			return
		}
		req.ConversationID = conv.ID
	}

	userMsg := &models.Message{
		ID:        fmt.Sprintf("user-%d", time.Now().UnixMilli()),
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
	}
	if err := h.conversations.AddMessage(ctx, userID, req.ConversationID, userMsg); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, models.ErrCodeConversationNotFound, "Conversation not found")
			return
		}
		respondFromError(c, err)
		return
	}

	resp, err := h.chat.SendMessageNonStreaming(ctx, userID, &req)
	if err != nil {
		respondFromError(c, err)
		return
	}

	assistantMsg := &models.Message{
		ID:        resp.ID,
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now(),
	}
	if err := h.conversations.AddMessage(ctx, userID, req.ConversationID, assistantMsg); err != nil {
		h.logger.Error("persist assistant message failed",
			"conversation_id", req.ConversationID, "error", err)
	}

	c.JSON(http.StatusOK, resp)
}
