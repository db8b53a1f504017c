// Database models for chat conversations
package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation represents a chat conversation owned by a single user.
// UpdatedAt is the version marker used for client/server reconciliation: it is
// bumped on every message append and on every title/settings edit, never on
// read.
type Conversation struct {
	ID        string               `json:"id" gorm:"primaryKey;size:36"`
	UserID    string               `json:"-" gorm:"index;size:64;not null"`
	Title     string               `json:"title" gorm:"size:200;default:'New Conversation'"`
	Settings  ConversationSettings `json:"settings" gorm:"type:json"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`

	Messages []Message `json:"messages" gorm:"foreignKey:ConversationID;references:ID"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is a single turn in a conversation. Identity is ID: a streaming
// assistant message is repeatedly replaced in place under the same ID until
// IsStreaming turns false, after which the record is immutable.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;size:64"`
	ConversationID string    `json:"conversationId" gorm:"index;size:36;not null"`
	Role           string    `json:"role" gorm:"size:20;not null"`
	Content        string    `json:"content" gorm:"type:text"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
	IsStreaming    bool      `json:"isStreaming,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// ConversationSettings holds the per-conversation model parameters. Stored as
// a JSON column; defaults are derived per model by the model catalog, never
// globally.
type ConversationSettings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Value implements driver.Valuer for ConversationSettings
func (s ConversationSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for ConversationSettings
func (s *ConversationSettings) Scan(value interface{}) error {
	if value == nil {
		*s = ConversationSettings{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
	return json.Unmarshal(bytes, s)
}

// Valid reports whether the settings are inside the accepted parameter
// ranges. The HTTP boundary rejects invalid settings before they reach the
// relay.
func (s ConversationSettings) Valid() bool {
	if s.Model == "" {
		return false
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return false
	}
	if s.MaxTokens < 1 || s.MaxTokens > 32000 {
		return false
	}
	return true
}
