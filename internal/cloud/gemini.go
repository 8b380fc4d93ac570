// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiURL is the base URL for the Generative Language API.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com"

	// GeminiAPIVersion selects the stable v1 surface.
	GeminiAPIVersion = "v1"
)

// ErrNoResponse is returned when Gemini answers without any candidate.
var ErrNoResponse = errors.New("No response from Gemini")

// Generation parameters sent with every request.
var (
	geminiTemperature float32 = 0.7
	geminiTopP        float32 = 0.95
	geminiTopK        float32 = 40
)

// GeminiClient talks to Gemini through the genai SDK. The SDK client is
// created lazily on first use and reused afterwards.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxTokens  int32

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a client for the given API key.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultGeminiURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxTokens:  DefaultMaxTokens,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *GeminiClient) WithBaseURL(url string) *GeminiClient {
	if url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	return c
}

// WithTimeout sets the request timeout.
func (c *GeminiClient) WithTimeout(timeout time.Duration) *GeminiClient {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *GeminiClient) WithHTTPClient(hc *http.Client) *GeminiClient {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL + "/",
			APIVersion: GeminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.client = client
	return client, nil
}

// Chat sends the conversation and returns the first candidate's text.
func (c *GeminiClient) Chat(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: c.maxTokens,
		Temperature:     genai.Ptr(geminiTemperature),
		TopP:            genai.Ptr(geminiTopP),
		TopK:            genai.Ptr(geminiTopK),
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoResponse
	}
	text := resp.Text()
	if text == "" {
		return "", ErrNoResponse
	}
	return text, nil
}

// geminiError converts the SDK's value-typed APIError into *APIError so
// callers handle all providers alike.
func geminiError(err error) error {
	var sdkErr genai.APIError
	if errors.As(err, &sdkErr) {
		return &APIError{Provider: "Gemini", StatusCode: sdkErr.Code, Message: sdkErr.Message}
	}
	return err
}
