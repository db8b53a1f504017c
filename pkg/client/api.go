// Package client is the Go client library for the aicbot backend: an HTTP
// API client with streamed chat, the per-conversation chat session state
// machine, a durable offline queue with reconnect replay, and last-writer-wins
// conversation reconciliation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/sse"
)

// APIClient talks to the aicbot backend.
type APIClient struct {
	baseURL string
	userID  string
	http    *http.Client
}

// NewAPIClient builds a client for the backend at baseURL. An empty userID
// lets the server fall back to its default identity.
func NewAPIClient(baseURL, userID string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		userID:  userID,
		// No overall timeout: chat streams are long-lived. Cancellation
		// comes from the caller's context.
		http: &http.Client{},
	}
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	return req, nil
}

// errorFromResponse decodes the server's error envelope into an *APIError.
func errorFromResponse(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope models.APIResponse
	if err := json.Unmarshal(b, &envelope); err == nil && envelope.Error != nil {
		return envelope.Error
	}
	return models.NewAPIError(models.ErrCodeInternal,
		fmt.Sprintf("request failed with status %d", resp.StatusCode), nil)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// streamErrorProbe detects the terminal error frame inside an SSE stream.
type streamErrorProbe struct {
	Error   bool             `json:"error"`
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// SendMessage posts a chat turn and invokes onChunk for every streamed
// ChatResponse, in order, until the [DONE] terminator. A mid-stream error
// frame is returned as an *models.APIError; no onChunk calls follow it.
func (c *APIClient) SendMessage(ctx context.Context, chatReq models.ChatRequest, onChunk func(models.ChatResponse)) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", chatReq)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "chat request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}

	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read chat stream")
		}
		if ev.Done() {
			return nil
		}
		if len(ev.Data) == 0 {
			continue
		}

		var probe streamErrorProbe
		if err := json.Unmarshal(ev.Data, &probe); err == nil && probe.Error {
			return models.NewAPIError(probe.Code, probe.Message, nil)
		}

		var chunk models.ChatResponse
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			return errors.Wrap(err, "decode chat chunk")
		}
		onChunk(chunk)
	}
}

// ListConversations fetches the user's conversations, newest first.
func (c *APIClient) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversation fetches one conversation with its messages.
func (c *APIClient) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+id, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation creates a conversation explicitly.
func (c *APIClient) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.Conversation, error) {
	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations", req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversation patches title and/or settings.
func (c *APIClient) UpdateConversation(ctx context.Context, id string, req models.UpdateConversationRequest) (*models.Conversation, error) {
	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodPut, "/api/conversations/"+id, req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation.
func (c *APIClient) DeleteConversation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/conversations/"+id, nil, nil)
}

// GetModels fetches the model catalog.
func (c *APIClient) GetModels(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	if err := c.doJSON(ctx, http.MethodGet, "/api/models", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes the backend's liveness endpoint. Connectivity monitors use it
// to detect online/offline transitions.
func (c *APIClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}
