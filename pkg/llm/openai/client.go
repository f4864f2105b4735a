// Package openai is a pass-through client for an OpenAI-compatible chat
// completions endpoint. It never decodes the completion: the caller gets the
// upstream bytes back exactly as they arrived.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/allie-chat/allieproxy/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultTimeout = 60 * time.Second

	requestIDHeader = "X-Request-Id"
)

// chatRequest is the upstream body. Messages is forwarded untouched.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages json.RawMessage `json:"messages"`
}

// Completion is a successful upstream answer.
type Completion struct {
	// Body is the upstream JSON payload, unmodified.
	Body json.RawMessage

	// RequestID is the upstream request identifier, if the provider sent one.
	RequestID string
}

// Config configures a Client.
type Config struct {
	// BaseURL is the provider root, with or without a trailing /v1.
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// Model is the fixed model identifier sent with every completion.
	Model string

	// Timeout bounds a whole upstream exchange. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the chat completions endpoint.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client. APIKey and Model are required.
func NewClient(c Config) (*Client, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return nil, errors.New("openai: model is required")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        chatURL(c.BaseURL),
		apiKey:     c.APIKey,
		model:      c.Model,
		httpClient: httpClient,
	}, nil
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete sends messages to the upstream and returns its JSON body.
//
// Transport failures, timeouts and non-2xx statuses are reported as
// *llm.UpstreamError; a 2xx body that is not JSON is a *llm.ParseError.
func (c *Client) Complete(ctx context.Context, messages json.RawMessage) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body is not reported.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &llm.UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.UpstreamError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if !json.Valid(raw) {
		return nil, &llm.ParseError{Err: fmt.Errorf("invalid JSON in %d byte body", len(raw))}
	}

	return &Completion{
		Body:      raw,
		RequestID: resp.Header.Get(requestIDHeader),
	}, nil
}
