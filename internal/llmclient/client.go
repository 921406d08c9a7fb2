// Package llmclient is the LLM client used by the message generator
// (C6.2). It generalizes the bridge client the teacher plugin uses for
// prompt enrichment (mattermost-plugin-ai/public/bridgeclient) into a
// standalone chat-completion client, since the bridge client itself is
// bound to a running Mattermost plugin process and cannot be imported
// here. The request/retry machinery is transplanted from
// server/cursor/client.go's doRequest: exponential backoff, retry on
// 429/5xx, functional-options construction.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quickmart/churnguard/internal/logging"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxRetries     = 3
	retryBaseDelay = 1 * time.Second
)

// CompletionRequest is the chat-completion request shape sent to the
// configured LLM endpoint.
type CompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// CompletionResponse is the minimal response shape the message generator
// needs: the generated text and whether the provider reported truncation.
type CompletionResponse struct {
	Text      string
	Truncated bool
}

// Client is the LLM chat-completion surface.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

type clientImpl struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger
}

// ClientOption is a functional option for configuring the LLM client,
// mirroring cursor.ClientOption.
type ClientOption func(*clientImpl)

// WithLogger attaches a debug logger to the client.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *clientImpl) { c.logger = logger }
}

// WithBaseURL overrides the default endpoint (useful for tests).
func WithBaseURL(url string) ClientOption {
	return func(c *clientImpl) { c.baseURL = url }
}

// WithTimeout overrides the HTTP client's timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientImpl) { c.httpClient.Timeout = d }
}

// NewClient builds an LLM Client. apiKey may be empty in degraded/test
// environments; callers that require a real key check before invoking.
func NewClient(apiKey, model string, opts ...ClientOption) Client {
	c := &clientImpl{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return &boundClient{impl: c, model: model}
}

// boundClient pins a model name onto requests that don't specify one.
type boundClient struct {
	impl  *clientImpl
	model string
}

func (b *boundClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.Model == "" {
		req.Model = b.model
	}
	return b.impl.complete(ctx, req)
}

// complete performs the HTTP call with retry logic for transient failures,
// transplanted from cursor.clientImpl.doRequest: retries on 429 and 5xx up
// to maxRetries times with exponential backoff, gives up immediately on
// other 4xx.
func (c *clientImpl) complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("llmclient: retry", "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("llmclient: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("llmclient: transport error: %w", err)
			c.logger.Debug("llmclient: transport error", "attempt", attempt, "error", err.Error())
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("llmclient: read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var decoded struct {
				Text         string `json:"text"`
				FinishReason string `json:"finish_reason"`
			}
			if err := json.Unmarshal(respBody, &decoded); err != nil {
				return nil, fmt.Errorf("llmclient: decode response: %w", err)
			}
			return &CompletionResponse{
				Text:      decoded.Text,
				Truncated: decoded.FinishReason == "length" || decoded.Text == "",
			}, nil
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llmclient: status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		return nil, fmt.Errorf("llmclient: status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil, fmt.Errorf("llmclient: request failed after %d retries: %w", maxRetries, lastErr)
}
