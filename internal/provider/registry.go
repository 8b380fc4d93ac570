// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"

	"github.com/CaptainASIC/FusionLoom/internal/cloud"
	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/ollama"
)

// Registry maps providers to their adapters.
type Registry struct {
	adapters map[model.Provider]Adapter
}

// NewRegistry builds one adapter per provider from cfg.
func NewRegistry(cfg *config.Config) *Registry {
	rpm := cfg.Limits.RequestsPerMinute

	ol := cfg.Ollama
	ollamaClient := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      ol.URL,
		Timeout:      ol.Timeout.Duration,
		DefaultModel: ol.DefaultModel,
	})

	cl := cfg.Claude
	claude := cloud.NewAnthropicClient(cl.APIKey).WithBaseURL(cl.URL).WithTimeout(cl.Timeout.Duration)

	gp := cfg.ChatGPT
	openai := cloud.NewOpenAIClient(gp.APIKey).WithBaseURL(gp.URL).WithTimeout(gp.Timeout.Duration)

	gm := cfg.Gemini
	gemini := cloud.NewGeminiClient(gm.APIKey).WithBaseURL(gm.URL).WithTimeout(gm.Timeout.Duration)

	return NewStaticRegistry(
		Limited(NewOllamaAdapter(ollamaClient), rpm),
		Limited(NewClaudeAdapter(claude, cl.DefaultModel), rpm),
		Limited(NewChatGPTAdapter(openai, gp.DefaultModel), rpm),
		Limited(NewGeminiAdapter(gemini, gm.DefaultModel), rpm),
	)
}

// NewStaticRegistry registers the given adapters by Name. A later adapter
// for the same provider replaces an earlier one.
func NewStaticRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for p.
func (r *Registry) Get(p model.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, p)
	}
	return a, nil
}

// List returns the registered adapters in display order.
func (r *Registry) List() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, p := range model.AllProviders() {
		if a, ok := r.adapters[p]; ok {
			out = append(out, a)
		}
	}
	return out
}
