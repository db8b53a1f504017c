package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahtungko/aicbot/pkg/manus"
	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/utils"
)

// Provider is the upstream completion API the relay talks to. *manus.Client
// implements it; tests substitute fakes.
type Provider interface {
	Configured() bool
	CreateChatCompletion(ctx context.Context, req manus.ChatCompletionRequest) (string, error)
	StreamChatCompletion(ctx context.Context, req manus.ChatCompletionRequest, onDelta func(delta string)) error
	ListModels(ctx context.Context) ([]string, error)
}

// ChatService relays chat turns to the upstream provider, turning its
// token-by-token stream into ordered accumulated-content chunks.
type ChatService struct {
	provider Provider
	store    *ConversationService
	logger   *slog.Logger
}

func NewChatService(provider Provider, store *ConversationService) *ChatService {
	return &ChatService{
		provider: provider,
		store:    store,
		logger:   utils.GetLogger(),
	}
}

// resolveMessages builds the provider message list: stored history (when a
// conversation id is given) followed by the new user turn.
func (s *ChatService) resolveMessages(ctx context.Context, userID string, req *models.ChatRequest) ([]manus.ChatMessage, error) {
	var messages []manus.ChatMessage
	if req.ConversationID != "" {
		history, err := s.store.History(ctx, userID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		messages = make([]manus.ChatMessage, 0, len(history)+1)
		for _, h := range history {
			messages = append(messages, manus.ChatMessage{Role: h.Role, Content: h.Content})
		}
	}
	return append(messages, manus.ChatMessage{Role: models.RoleUser, Content: req.Message}), nil
}

// SendMessage streams a completion for req. onChunk receives, in order, one
// chunk per non-empty provider delta carrying the full accumulated content,
// then exactly one final chunk with IsComplete=true (content "" when the
// provider produced no deltas). Once SendMessage decides to fail, onChunk is
// not called again.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req *models.ChatRequest, onChunk func(models.ChatResponse)) error {
	start := time.Now()
	s.logger.Info("chat request",
		"conversation_id", req.ConversationID,
		"model", req.Settings.Model,
		"message_length", len(req.Message))

	messages, err := s.resolveMessages(ctx, userID, req)
	if err != nil {
		return err
	}

	assistantID := fmt.Sprintf("assistant-%d", time.Now().UnixMilli())
	accumulated := ""

	streamErr := s.provider.StreamChatCompletion(ctx, manus.ChatCompletionRequest{
		Model:       req.Settings.Model,
		Messages:    messages,
		Temperature: req.Settings.Temperature,
		MaxTokens:   req.Settings.MaxTokens,
		Stream:      true,
	}, func(delta string) {
		accumulated += delta
		onChunk(models.ChatResponse{
			ID:             assistantID,
			Content:        accumulated,
			ConversationID: req.ConversationID,
			IsComplete:     false,
		})
	})
	if streamErr != nil {
		s.logger.Error("chat stream failed",
			"conversation_id", req.ConversationID,
			"code", models.CodeOf(streamErr),
			"error", streamErr)
		return streamErr
	}

	onChunk(models.ChatResponse{
		ID:             assistantID,
		Content:        accumulated,
		ConversationID: req.ConversationID,
		IsComplete:     true,
	})

	s.logger.Info("chat request completed",
		"conversation_id", req.ConversationID,
		"duration", time.Since(start),
		"response_length", len(accumulated))
	return nil
}

// SendMessageNonStreaming is the fallback path: identical history resolution
// and request shape, a single complete response. Content is "" when the
// provider returns no choices.
func (s *ChatService) SendMessageNonStreaming(ctx context.Context, userID string, req *models.ChatRequest) (*models.ChatResponse, error) {
	messages, err := s.resolveMessages(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	content, err := s.provider.CreateChatCompletion(ctx, manus.ChatCompletionRequest{
		Model:       req.Settings.Model,
		Messages:    messages,
		Temperature: req.Settings.Temperature,
		MaxTokens:   req.Settings.MaxTokens,
	})
	if err != nil {
		s.logger.Error("chat completion failed",
			"conversation_id", req.ConversationID,
			"code", models.CodeOf(err),
			"error", err)
		return nil, err
	}

	return &models.ChatResponse{
		ID:             fmt.Sprintf("assistant-%d", time.Now().UnixMilli()),
		Content:        content,
		ConversationID: req.ConversationID,
		IsComplete:     true,
	}, nil
}

// HealthCheck verifies credential presence and provider reachability. It
// reports unhealthy rather than returning an error.
func (s *ChatService) HealthCheck(ctx context.Context) models.HealthStatus {
	if !s.provider.Configured() {
		return models.HealthStatus{
			Status:  models.HealthStatusUnhealthy,
			Details: map[string]any{"reason": "MANUS_API_KEY not configured"},
		}
	}

	ids, err := s.provider.ListModels(ctx)
	if err != nil {
		return models.HealthStatus{
			Status: models.HealthStatusUnhealthy,
			Details: map[string]any{
				"reason": models.MessageOf(err),
				"code":   models.CodeOf(err),
			},
		}
	}

	return models.HealthStatus{
		Status:  models.HealthStatusHealthy,
		Details: map[string]any{"models_available": len(ids)},
	}
}
