// Package manus implements the HTTP client for the OpenAI-compatible Manus
// chat completion API, including streamed completions and the mapping of
// provider failures onto the stable error taxonomy.
package manus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/sse"
	"github.com/ahtungko/aicbot/pkg/utils"
)

const defaultTimeout = 120 * time.Second

// Client talks to the Manus API. The zero value is not usable; construct
// with NewClient.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  utils.GetLogger(),
	}
}

// Configured reports whether a credential is present. Health checks use this
// to fail fast without a network round trip.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// classifyStatus maps a provider HTTP status onto the error taxonomy.
func classifyStatus(status int, providerMsg string) *models.APIError {
	switch status {
	case http.StatusUnauthorized:
		return models.NewAPIError(models.ErrCodeUnauthorized, "Invalid Manus API key", nil)
	case http.StatusTooManyRequests:
		return models.NewAPIError(models.ErrCodeRateLimitExceeded, "Manus API rate limit exceeded", nil)
	case http.StatusNotFound:
		return models.NewAPIError(models.ErrCodeModelNotFound, "Requested model not found", nil)
	default:
		msg := providerMsg
		if msg == "" {
			msg = fmt.Sprintf("Manus API request failed with status %d", status)
		}
		return models.NewAPIError(models.ErrCodeManusAPIError, msg, nil)
	}
}

// errorFromResponse drains the body and classifies a non-2xx response.
func (c *Client) errorFromResponse(resp *http.Response) *models.APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body apiErrorResponse
	_ = json.Unmarshal(b, &body)
	apiErr := classifyStatus(resp.StatusCode, body.message())
	c.logger.Warn("manus api error",
		"status", resp.StatusCode,
		"code", apiErr.Code,
		"api_key", utils.MaskSensitiveString(c.apiKey))
	return apiErr
}

// wrapTransportError classifies a transport-level failure (DNS, refused
// connection, timeout) as a provider error.
func wrapTransportError(err error) *models.APIError {
	return models.NewAPIError(models.ErrCodeManusAPIError, "Failed to reach Manus API: "+err.Error(), err)
}

// CreateChatCompletion issues a non-streaming completion and returns the
// assistant content. An empty choices array yields "".
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (string, error) {
	req.Stream = false
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", req)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.errorFromResponse(resp)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.NewAPIError(models.ErrCodeManusAPIError, "Invalid response from Manus API", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// StreamChatCompletion issues a streaming completion and invokes onDelta for
// every content delta, in provider order, until the stream terminates.
func (c *Client) StreamChatCompletion(ctx context.Context, req ChatCompletionRequest, onDelta func(delta string)) error {
	req.Stream = true
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return models.NewAPIError(models.ErrCodeManusAPIError, "Manus API stream cancelled", ctx.Err())
			}
			return models.NewAPIError(models.ErrCodeManusAPIError, "Manus API stream interrupted", err)
		}
		if ev.Done() {
			return nil
		}
		if len(ev.Data) == 0 {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			// Skip malformed frames rather than killing the stream.
			c.logger.Debug("skipping malformed stream frame", "error", err)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onDelta(choice.Delta.Content)
			}
		}
	}
}

// ListModels fetches the provider's model ids. Used by the health check as a
// cheap reachability probe.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var out modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, models.NewAPIError(models.ErrCodeManusAPIError, "Invalid response from Manus API", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
