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

// DefaultOpenAIURL is the base URL for the OpenAI API.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// openAIRequest is the body of POST /chat/completions.
type openAIRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// openAIResponse is the subset of the completion reply we read.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIClient talks to the OpenAI chat completions API.
type OpenAIClient struct {
	httpTransport
}

// NewOpenAIClient creates a client for the given API key.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{httpTransport: newHTTPTransport("ChatGPT", apiKey, DefaultOpenAIURL)}
}

// WithBaseURL sets a custom base URL for the API.
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	if url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	return c
}

// WithTimeout sets the request timeout.
func (c *OpenAIClient) WithTimeout(timeout time.Duration) *OpenAIClient {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of attempts.
func (c *OpenAIClient) WithMaxRetries(n int) *OpenAIClient {
	c.maxRetries = n
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *OpenAIClient) WithHTTPClient(hc *http.Client) *OpenAIClient {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Chat performs a chat completion and returns the first choice's content.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	req := openAIRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}

	var resp openAIResponse
	err := c.postJSON(ctx, "/chat/completions", req, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
