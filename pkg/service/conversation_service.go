package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/repository"
	"github.com/ahtungko/aicbot/pkg/utils"
)

// ErrConversationNotFound is returned when a conversation id does not exist
// for the given user.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationService owns canonical conversation and message records.
type ConversationService struct {
	repo   repository.ConversationRepository
	logger *slog.Logger
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{
		repo:   repo,
		logger: utils.GetLogger(),
	}
}

// Create stores a new conversation. An empty title defaults to
// "New Conversation".
func (s *ConversationService) Create(ctx context.Context, userID, title string, settings models.ConversationSettings) (*models.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}
	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.Debug("conversation created", "conversation_id", conv.ID, "user_id", userID)
	return conv, nil
}

// List returns the user's conversations, most recently updated first,
// without message bodies.
func (s *ConversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Get returns the conversation with its messages ordered by timestamp.
func (s *ConversationService) Get(ctx context.Context, userID, id string) (*models.Conversation, error) {
	conv, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// Update applies a partial edit. Any accepted edit refreshes UpdatedAt, even
// when the new values equal the old ones.
func (s *ConversationService) Update(ctx context.Context, userID, id string, req models.UpdateConversationRequest) (*models.Conversation, error) {
	conv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		conv.Title = *req.Title
	}
	if req.Settings != nil {
		conv.Settings = *req.Settings
	}
	conv.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	return conv, nil
}

// Delete removes a conversation and its messages. It reports whether the
// conversation existed.
func (s *ConversationService) Delete(ctx context.Context, userID, id string) (bool, error) {
	err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	s.logger.Debug("conversation deleted", "conversation_id", id, "user_id", userID)
	return true, nil
}

// AddMessage appends a message to a conversation and bumps its UpdatedAt.
func (s *ConversationService) AddMessage(ctx context.Context, userID, conversationID string, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	err := s.repo.AddMessage(ctx, userID, conversationID, msg)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

// Messages returns the full ordered message list of a conversation.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	msgs, err := s.repo.Messages(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// History returns the {role, content} view of a conversation for the model
// provider. Messages still streaming are excluded: an in-progress reply must
// never be replayed to the model as history.
func (s *ConversationService) History(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error) {
	msgs, err := s.Messages(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	history := make([]models.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		if m.IsStreaming {
			continue
		}
		history = append(history, models.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// Prune deletes conversations whose UpdatedAt is older than maxAge and
// returns how many were removed.
func (s *ConversationService) Prune(ctx context.Context, userID string, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	removed, err := s.repo.DeleteOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune conversations: %w", err)
	}
	if removed > 0 {
		s.logger.Info("pruned stale conversations", "count", removed, "user_id", userID)
	}
	return removed, nil
}

// Stats summarizes the user's stored conversations. The average is zero when
// there are no conversations.
func (s *ConversationService) Stats(ctx context.Context, userID string) (models.ConversationStats, error) {
	raw, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return models.ConversationStats{}, fmt.Errorf("conversation stats: %w", err)
	}
	stats := models.ConversationStats{
		TotalConversations: int(raw.TotalConversations),
		TotalMessages:      int(raw.TotalMessages),
	}
	if raw.TotalConversations > 0 {
		stats.AverageMessagesPerConversation = float64(raw.TotalMessages) / float64(raw.TotalConversations)
	}
	return stats, nil
}

// Reset removes all of the user's conversations and messages.
func (s *ConversationService) Reset(ctx context.Context, userID string) error {
	if err := s.repo.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset conversations: %w", err)
	}
	s.logger.Info("conversation store reset", "user_id", userID)
	return nil
}
