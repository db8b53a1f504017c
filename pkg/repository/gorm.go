package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahtungko/aicbot/pkg/db"
)

// GormConversationRepository implements ConversationRepository against a GORM
// database handle (SQLite in practice).
type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(g *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: g}
}

var _ ConversationRepository = (*GormConversationRepository)(nil)

func (r *GormConversationRepository) Create(ctx context.Context, conv *db.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *GormConversationRepository) Get(ctx context.Context, userID, id string) (*db.Conversation, error) {
	var conv db.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("timestamp ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) List(ctx context.Context, userID string) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (r *GormConversationRepository) Update(ctx context.Context, conv *db.Conversation) error {
	res := r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ? AND user_id = ?", conv.ID, conv.UserID).
		Updates(map[string]any{
			"title":      conv.Title,
			"settings":   conv.Settings,
			"updated_at": conv.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return fmt.Errorf("delete conversation messages: %w", err)
		}
		return nil
	})
}

func (r *GormConversationRepository) AddMessage(ctx context.Context, userID, conversationID string, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv db.Conversation
		err := tx.Select("id").
			Where("id = ? AND user_id = ?", conversationID, userID).
			First(&conv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lookup conversation: %w", err)
		}

		msg.ConversationID = conversationID
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		err = tx.Model(&db.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}

func (r *GormConversationRepository) Messages(ctx context.Context, userID, conversationID string) ([]db.Message, error) {
	var conv db.Conversation
	err := r.db.WithContext(ctx).Select("id").
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	var msgs []db.Message
	err = r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (r *GormConversationRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&db.Conversation{}).
			Where("user_id = ? AND updated_at < ?", userID, cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("find stale conversations: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("conversation_id IN ?", ids).Delete(&db.Message{}).Error; err != nil {
			return fmt.Errorf("delete stale messages: %w", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&db.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("delete stale conversations: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

func (r *GormConversationRepository) Stats(ctx context.Context, userID string) (ConversationStats, error) {
	var stats ConversationStats
	err := r.db.WithContext(ctx).Model(&db.Conversation{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalConversations).Error
	if err != nil {
		return ConversationStats{}, fmt.Errorf("count conversations: %w", err)
	}
	err = r.db.WithContext(ctx).Model(&db.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userID).
		Count(&stats.TotalMessages).Error
	if err != nil {
		return ConversationStats{}, fmt.Errorf("count messages: %w", err)
	}
	return stats, nil
}

func (r *GormConversationRepository) Reset(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&db.Conversation{}).
			Where("user_id = ?", userID).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("find conversations: %w", err)
		}
		if len(ids) > 0 {
			if err := tx.Where("conversation_id IN ?", ids).Delete(&db.Message{}).Error; err != nil {
				return fmt.Errorf("delete messages: %w", err)
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&db.Conversation{}).Error; err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
		return nil
	})
}
