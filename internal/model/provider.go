// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies a chat backend. Each provider owns a disjoint set of
// chat sessions.
type Provider string

const (
	ProviderOllama  Provider = "ollama"
	ProviderClaude  Provider = "claude"
	ProviderChatGPT Provider = "chatgpt"
	ProviderGemini  Provider = "gemini"
)

// ErrUnknownProvider is returned for identifiers outside the fixed set.
var ErrUnknownProvider = errors.New("unknown provider")

// AllProviders returns the providers in display order.
func AllProviders() []Provider {
	return []Provider{ProviderOllama, ProviderClaude, ProviderChatGPT, ProviderGemini}
}

// ParseProvider maps a case-insensitive name to a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOllama, ProviderClaude, ProviderChatGPT, ProviderGemini:
		return true
	}
	return false
}

// String returns the storage identifier.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns the label shown on tabs and in exports.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOllama:
		return "Ollama"
	case ProviderClaude:
		return "Claude"
	case ProviderChatGPT:
		return "ChatGPT"
	case ProviderGemini:
		return "Gemini"
	default:
		return string(p)
	}
}

// IsLocal reports whether the provider runs on this machine.
func (p Provider) IsLocal() bool {
	return p == ProviderOllama
}
