// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider that serves the model
	Provider Provider `json:"provider"`

	// MaxTokens is the context window size, 0 when unknown
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	switch {
	case m.MaxTokens == 0:
		return "unknown context"
	case m.MaxTokens >= 1000000:
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	case m.MaxTokens >= 1000:
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	default:
		return fmt.Sprintf("%d tokens", m.MaxTokens)
	}
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// DefaultModels holds the model each provider falls back to when the user
// has not picked one.
var DefaultModels = map[Provider]string{
	ProviderOllama:  "llama3",
	ProviderClaude:  "claude-3-sonnet-20240229",
	ProviderChatGPT: "gpt-3.5-turbo",
	ProviderGemini:  "gemini-1.0-pro",
}

// Catalog lists the static model choices of the cloud providers. Ollama is
// absent: its models are queried from the local daemon.
var Catalog = map[Provider][]ModelInfo{
	ProviderClaude: {
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: ProviderClaude, MaxTokens: 200000},
		{ID: "claude-3-sonnet-20240229", Name: "Claude 3 Sonnet", Provider: ProviderClaude, MaxTokens: 200000},
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Provider: ProviderClaude, MaxTokens: 200000},
		{ID: "claude-2.1", Name: "Claude 2.1", Provider: ProviderClaude, MaxTokens: 200000},
		{ID: "claude-2.0", Name: "Claude 2.0", Provider: ProviderClaude, MaxTokens: 100000},
		{ID: "claude-instant-1.2", Name: "Claude Instant 1.2", Provider: ProviderClaude, MaxTokens: 100000},
	},
	ProviderChatGPT: {
		{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderChatGPT, MaxTokens: 128000},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Provider: ProviderChatGPT, MaxTokens: 128000},
		{ID: "gpt-4", Name: "GPT-4", Provider: ProviderChatGPT, MaxTokens: 8192},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: ProviderChatGPT, MaxTokens: 16385},
		{ID: "gpt-3.5-turbo-16k", Name: "GPT-3.5 Turbo 16K", Provider: ProviderChatGPT, MaxTokens: 16385},
	},
	ProviderGemini: {
		{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: ProviderGemini, MaxTokens: 2000000},
		{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Provider: ProviderGemini, MaxTokens: 1000000},
		{ID: "gemini-1.0-pro", Name: "Gemini 1.0 Pro", Provider: ProviderGemini, MaxTokens: 32760},
		{ID: "gemini-1.0-pro-vision", Name: "Gemini 1.0 Pro Vision", Provider: ProviderGemini, MaxTokens: 16384},
	},
}

// DefaultModel returns the fallback model for p.
func DefaultModel(p Provider) string {
	return DefaultModels[p]
}

// ModelIDs returns the catalog identifiers for p in catalog order.
func ModelIDs(p Provider) []string {
	infos := Catalog[p]
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids
}

// GetModelInfo looks up a model by exact ID, then by case-insensitive
// substring of ID or name.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	for _, p := range AllProviders() {
		for _, info := range Catalog[p] {
			if info.ID == nameOrID {
				return info, true
			}
		}
	}

	lower := strings.ToLower(nameOrID)
	for _, p := range AllProviders() {
		for _, info := range Catalog[p] {
			if strings.Contains(strings.ToLower(info.ID), lower) ||
				strings.Contains(strings.ToLower(info.Name), lower) {
				return info, true
			}
		}
	}
	return ModelInfo{}, false
}
