// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAnthropicURL is the base URL for the Anthropic API.
	DefaultAnthropicURL = "https://api.anthropic.com/v1"

	// AnthropicVersion is sent as the anthropic-version header.
	AnthropicVersion = "2023-06-01"
)

// anthropicRequest is the body of POST /messages.
type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []ChatMessage `json:"messages"`
}

// anthropicResponse is the subset of the /messages reply we read.
type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	httpTransport
}

// NewAnthropicClient creates a client for the given API key. An empty key
// yields a client whose Chat fails with ErrNotConfigured.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{httpTransport: newHTTPTransport("Claude", apiKey, DefaultAnthropicURL)}
}

// WithBaseURL sets a custom base URL for the API.
func (c *AnthropicClient) WithBaseURL(url string) *AnthropicClient {
	if url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	return c
}

// WithTimeout sets the request timeout.
func (c *AnthropicClient) WithTimeout(timeout time.Duration) *AnthropicClient {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of attempts.
func (c *AnthropicClient) WithMaxRetries(n int) *AnthropicClient {
	c.maxRetries = n
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *AnthropicClient) WithHTTPClient(hc *http.Client) *AnthropicClient {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Chat sends the conversation and returns the text of the first content block.
func (c *AnthropicClient) Chat(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	req := anthropicRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}

	var resp anthropicResponse
	err := c.postJSON(ctx, "/messages", req, func(r *http.Request) {
		r.Header.Set("x-api-key", c.apiKey)
		r.Header.Set("anthropic-version", AnthropicVersion)
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: no content blocks", ErrEmptyResponse)
	}
	return resp.Content[0].Text, nil
}
