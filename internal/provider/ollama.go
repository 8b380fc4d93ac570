// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/ollama"
)

// OllamaAdapter serves the local Ollama daemon.
type OllamaAdapter struct {
	client *ollama.Client
}

// NewOllamaAdapter wraps an Ollama client.
func NewOllamaAdapter(client *ollama.Client) *OllamaAdapter {
	return &OllamaAdapter{client: client}
}

func (a *OllamaAdapter) Name() model.Provider { return model.ProviderOllama }

func (a *OllamaAdapter) DefaultModel() string { return a.client.GetDefaultModel() }

// Send posts the full conversation to /api/chat with streaming disabled.
func (a *OllamaAdapter) Send(ctx context.Context, text, modelName string, history []model.Message) (string, error) {
	msgs := buildHistory(text, history)
	wire := make([]ollama.Message, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, ollama.Message{Role: string(m.Role), Content: m.Content})
	}

	logger.Log.Debugf("ollama: chat model=%s messages=%d", modelName, len(wire))
	resp, err := a.client.Chat(ctx, modelName, wire)
	if err != nil {
		return "", &SendError{Provider: "Ollama", Err: err}
	}
	return resp.Message.Content, nil
}

// ListModels queries the daemon for installed models.
func (a *OllamaAdapter) ListModels(ctx context.Context) ([]string, error) {
	names, err := a.client.ModelNames(ctx)
	if err != nil {
		return nil, &SendError{Provider: "Ollama", Err: err}
	}
	return names, nil
}

// IsAvailable probes /api/tags within the client's probe timeout.
func (a *OllamaAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckRunning(ctx) == nil
}

// Pull downloads a model and waits for completion.
func (a *OllamaAdapter) Pull(ctx context.Context, name string) error {
	if _, err := a.client.Pull(ctx, name); err != nil {
		return err
	}
	return nil
}
