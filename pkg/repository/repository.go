package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahtungko/aicbot/pkg/db"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ConversationStats aggregates store-wide counters.
type ConversationStats struct {
	TotalConversations int64
	TotalMessages      int64
}

// ConversationRepository persists conversations and their messages.
type ConversationRepository interface {
	Create(ctx context.Context, conv *db.Conversation) error
	// Get loads a conversation with its messages ordered by timestamp.
	Get(ctx context.Context, userID, id string) (*db.Conversation, error)
	// List returns conversations without messages, most recently updated first.
	List(ctx context.Context, userID string) ([]db.Conversation, error)
	Update(ctx context.Context, conv *db.Conversation) error
	Delete(ctx context.Context, userID, id string) error
	// AddMessage appends a message and bumps the conversation's UpdatedAt.
	AddMessage(ctx context.Context, userID, conversationID string, msg *db.Message) error
	Messages(ctx context.Context, userID, conversationID string) ([]db.Message, error)
	// DeleteOlderThan removes conversations whose UpdatedAt is before cutoff,
	// including their messages. Returns how many conversations were removed.
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error)
	Stats(ctx context.Context, userID string) (ConversationStats, error)
	// Reset removes every conversation and message for the user.
	Reset(ctx context.Context, userID string) error
}
