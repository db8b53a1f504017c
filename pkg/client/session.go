package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahtungko/aicbot/pkg/models"
)

// ChatSender is the streaming send operation a session needs. *APIClient
// implements it.
type ChatSender interface {
	SendMessage(ctx context.Context, req models.ChatRequest, onChunk func(models.ChatResponse)) error
}

// ChatSession is the per-conversation client state machine:
// Idle → Sending → Streaming → Idle, or Idle with a recorded error. Only one
// send may be in flight; a send requested while busy is silently ignored.
type ChatSession struct {
	sender ChatSender

	mu             sync.Mutex
	conversationID string
	settings       models.ConversationSettings
	messages       []models.Message
	sending        bool
	streaming      bool
	lastError      string
}

// NewChatSession builds a session. conversationID may be empty: the server
// then creates the conversation on the first send, and the session adopts
// the id from the first chunk.
func NewChatSession(sender ChatSender, conversationID string, settings models.ConversationSettings) *ChatSession {
	return &ChatSession{
		sender:         sender,
		conversationID: conversationID,
		settings:       settings,
	}
}

// ConversationID returns the session's conversation id, empty until the
// first exchange assigns one.
func (s *ChatSession) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Messages returns a snapshot of the session's message list.
func (s *ChatSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether a send is in flight (Sending or Streaming).
func (s *ChatSession) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending || s.streaming
}

// Err returns the user-facing error recorded by the last failed send, or "".
func (s *ChatSession) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ClearError resets the error state without touching messages.
func (s *ChatSession) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// LoadMessages replaces the session's message list with a server snapshot.
func (s *ChatSession) LoadMessages(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]models.Message{}, msgs...)
}

// Send submits one user turn and blocks until the assistant reply completes
// or fails. It is a no-op when a send is already in flight. The user message
// is appended optimistically; streamed chunks create then replace in place a
// single assistant message by id. On failure the error message is recorded
// and whatever partial assistant content arrived stays in the list.
func (s *ChatSession) Send(ctx context.Context, content string) {
	s.mu.Lock()
	if s.sending || s.streaming {
		s.mu.Unlock()
		return
	}
	s.sending = true
	s.lastError = ""

	userMsg := models.Message{
		ID:             fmt.Sprintf("user-%d", time.Now().UnixMilli()),
		ConversationID: s.conversationID,
		Role:           models.RoleUser,
		Content:        content,
		Timestamp:      time.Now(),
	}
	s.messages = append(s.messages, userMsg)

	req := models.ChatRequest{
		Message:        content,
		ConversationID: s.conversationID,
		Settings:       s.settings,
	}
	s.mu.Unlock()

	err := s.sender.SendMessage(ctx, req, func(chunk models.ChatResponse) {
		s.applyChunk(chunk)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	s.streaming = false
	if err != nil {
		// Partial assistant content already applied is kept, not retracted.
		s.lastError = models.MessageOf(err)
	}
}

// applyChunk upserts the streaming assistant message by chunk id.
func (s *ChatSession) applyChunk(chunk models.ChatResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streaming = !chunk.IsComplete
	if s.conversationID == "" && chunk.ConversationID != "" {
		s.conversationID = chunk.ConversationID
	}

	for i := range s.messages {
		if s.messages[i].ID == chunk.ID {
			s.messages[i].Content = chunk.Content
			s.messages[i].IsStreaming = !chunk.IsComplete
			s.messages[i].Timestamp = time.Now()
			return
		}
	}

	s.messages = append(s.messages, models.Message{
		ID:             chunk.ID,
		ConversationID: chunk.ConversationID,
		Role:           models.RoleAssistant,
		Content:        chunk.Content,
		Timestamp:      time.Now(),
		IsStreaming:    !chunk.IsComplete,
	})
}
