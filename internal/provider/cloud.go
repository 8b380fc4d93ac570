// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/CaptainASIC/FusionLoom/internal/cloud"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// chatClient is the shape shared by the cloud clients.
type chatClient interface {
	Chat(ctx context.Context, model string, messages []cloud.ChatMessage) (string, error)
	IsConfigured() bool
}

// CloudAdapter serves one hosted provider with a static model list.
type CloudAdapter struct {
	provider     model.Provider
	vendor       string
	client       chatClient
	defaultModel string
}

// NewClaudeAdapter wraps an Anthropic client.
func NewClaudeAdapter(client *cloud.AnthropicClient, defaultModel string) *CloudAdapter {
	return newCloudAdapter(model.ProviderClaude, "Claude", client, defaultModel)
}

// NewChatGPTAdapter wraps an OpenAI client.
func NewChatGPTAdapter(client *cloud.OpenAIClient, defaultModel string) *CloudAdapter {
	return newCloudAdapter(model.ProviderChatGPT, "OpenAI", client, defaultModel)
}

// NewGeminiAdapter wraps a Gemini client.
func NewGeminiAdapter(client *cloud.GeminiClient, defaultModel string) *CloudAdapter {
	return newCloudAdapter(model.ProviderGemini, "Gemini", client, defaultModel)
}

func newCloudAdapter(p model.Provider, vendor string, client chatClient, defaultModel string) *CloudAdapter {
	if defaultModel == "" {
		defaultModel = model.DefaultModel(p)
	}
	return &CloudAdapter{provider: p, vendor: vendor, client: client, defaultModel: defaultModel}
}

func (a *CloudAdapter) Name() model.Provider { return a.provider }

func (a *CloudAdapter) DefaultModel() string { return a.defaultModel }

// Send fails fast with a KeyError when no key is configured; every other
// failure is wrapped in a SendError.
func (a *CloudAdapter) Send(ctx context.Context, text, modelName string, history []model.Message) (string, error) {
	if !a.client.IsConfigured() {
		return "", &KeyError{Vendor: a.vendor}
	}
	if modelName == "" {
		modelName = a.defaultModel
	}

	msgs := buildHistory(text, history)
	wire := make([]cloud.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, cloud.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	logger.Log.Debugf("%s: chat model=%s messages=%d", a.provider, modelName, len(wire))
	reply, err := a.client.Chat(ctx, modelName, wire)
	if err != nil {
		return "", &SendError{Provider: a.provider.DisplayName(), Err: err}
	}
	return reply, nil
}

// ListModels returns the static catalog for the provider.
func (a *CloudAdapter) ListModels(context.Context) ([]string, error) {
	return model.ModelIDs(a.provider), nil
}

// IsAvailable reports whether an API key is configured.
func (a *CloudAdapter) IsAvailable(context.Context) bool {
	return a.client.IsConfigured()
}
