package service

import (
	"github.com/ahtungko/aicbot/pkg/models"
)

// catalog is the fixed set of models the backend exposes. Token ceilings
// mirror the upstream provider's published limits.
var catalog = []models.Model{
	{
		ID:          "gpt-3.5-turbo",
		Name:        "GPT-3.5 Turbo",
		Description: "Fast and efficient model for most tasks",
		MaxTokens:   4096,
	},
	{
		ID:          "gpt-4",
		Name:        "GPT-4",
		Description: "Most capable model for complex tasks",
		MaxTokens:   8192,
		Precise:     true,
	},
	{
		ID:          "gpt-4-turbo",
		Name:        "GPT-4 Turbo",
		Description: "Faster version of GPT-4 with better performance",
		MaxTokens:   128000,
	},
	{
		ID:          "claude-3-sonnet",
		Name:        "Claude 3 Sonnet",
		Description: "Balanced model with strong reasoning capabilities",
		MaxTokens:   200000,
	},
	{
		ID:          "claude-3-opus",
		Name:        "Claude 3 Opus",
		Description: "Most powerful Claude model for complex reasoning",
		MaxTokens:   200000,
		Precise:     true,
	},
}

// ModelService exposes the static model catalog and derives per-model default
// settings.
type ModelService struct{}

func NewModelService() *ModelService {
	return &ModelService{}
}

// GetModels returns every catalog entry.
func (s *ModelService) GetModels() []models.Model {
	out := make([]models.Model, len(catalog))
	copy(out, catalog)
	return out
}

// GetModel returns the catalog entry with the given id, or nil when unknown.
func (s *ModelService) GetModel(id string) *models.Model {
	for i := range catalog {
		if catalog[i].ID == id {
			m := catalog[i]
			return &m
		}
	}
	return nil
}

// DefaultSettings derives settings for a model id. Unknown models get a
// conservative fixed default. Known models cap MaxTokens at the smaller of
// the model ceiling and 4096, and models flagged precise get a lower default
// temperature.
func (s *ModelService) DefaultSettings(modelID string) models.ConversationSettings {
	m := s.GetModel(modelID)
	if m == nil {
		return models.ConversationSettings{
			Model:       modelID,
			Temperature: models.DefaultTemperature,
			MaxTokens:   models.DefaultMaxTokens,
		}
	}
	maxTokens := m.MaxTokens
	if maxTokens > models.DefaultMaxTokens {
		maxTokens = models.DefaultMaxTokens
	}
	temp := models.DefaultTemperature
	if m.Precise {
		temp = models.DefaultPreciseTemperature
	}
	return models.ConversationSettings{
		Model:       m.ID,
		Temperature: temp,
		MaxTokens:   maxTokens,
	}
}
