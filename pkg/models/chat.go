// API types for chat requests and streamed responses
package models

import (
	"time"

	"github.com/ahtungko/aicbot/pkg/db"
)

// ========== Type aliases for database types ==========
// These allow other packages to use models.Conversation instead of db.Conversation

type Conversation = db.Conversation
type Message = db.Message
type ConversationSettings = db.ConversationSettings

// Role constant aliases from db package
const (
	RoleUser      = db.RoleUser
	RoleAssistant = db.RoleAssistant
	RoleSystem    = db.RoleSystem
)

// ChatRequest is a single chat turn submitted by a client. ConversationID is
// optional: when empty the boundary creates a conversation implicitly.
type ChatRequest struct {
	Message        string               `json:"message"`
	ConversationID string               `json:"conversationId,omitempty"`
	Settings       ConversationSettings `json:"settings"`
}

// ChatResponse is one increment of a streaming assistant reply. Content is
// the full accumulated text so far, not a delta; the final chunk of a turn
// carries IsComplete=true and the complete reply.
type ChatResponse struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	IsComplete     bool   `json:"isComplete"`
}

// HistoryEntry is the {role, content} view of a persisted message, in the
// shape the upstream provider expects.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnsentMessage is an offline-queue entry: a message composed while
// disconnected, waiting to be replayed. Entries are never mutated; they are
// created on a failed/offline send and removed once successfully replayed.
type UnsentMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// CreateConversationRequest creates a conversation explicitly.
type CreateConversationRequest struct {
	Title    string               `json:"title"`
	Settings ConversationSettings `json:"settings"`
}

// UpdateConversationRequest patches title and/or settings. Nil fields are
// left untouched; any accepted patch refreshes the conversation's UpdatedAt.
type UpdateConversationRequest struct {
	Title    *string               `json:"title,omitempty"`
	Settings *ConversationSettings `json:"settings,omitempty"`
}

// ConversationStats summarizes a user's stored conversations.
type ConversationStats struct {
	TotalConversations             int     `json:"totalConversations"`
	TotalMessages                  int     `json:"totalMessages"`
	AverageMessagesPerConversation float64 `json:"averageMessagesPerConversation"`
}

// APIResponse is the JSON error envelope used outside of SSE streams and
// inside terminal SSE error frames.
type APIResponse struct {
	Success   bool      `json:"success"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// StreamErrorFrame is the payload of a mid-stream SSE error: the error flag
// plus the normalized error, followed immediately by the [DONE] terminator.
type StreamErrorFrame struct {
	Error     bool      `json:"error"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
}
