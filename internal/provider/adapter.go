// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// Adapter is the per-provider send contract consumed by the chat controller.
type Adapter interface {
	// Name identifies the provider this adapter serves.
	Name() model.Provider

	// DefaultModel is used when the user has not picked one.
	DefaultModel() string

	// Send returns the assistant reply to text, given the prior history
	// of the session (oldest first, not including text).
	Send(ctx context.Context, text, model string, history []model.Message) (string, error)

	// ListModels returns the selectable model identifiers.
	ListModels(ctx context.Context) ([]string, error)

	// IsAvailable reports whether Send can be expected to work.
	IsAvailable(ctx context.Context) bool
}

// Puller is implemented by adapters that can download models.
type Puller interface {
	Pull(ctx context.Context, model string) error
}

var (
	// ErrNoAdapter is returned by Registry.Get for unregistered providers.
	ErrNoAdapter = errors.New("no adapter for provider")

	// ErrAPIKeyMissing matches every KeyError.
	ErrAPIKeyMissing = errors.New("API key is not set")
)

// KeyError reports a cloud provider used without an API key.
type KeyError struct {
	// Vendor is the name used in the message: Claude, OpenAI or Gemini.
	Vendor string
}

func (e *KeyError) Error() string {
	return e.Vendor + " API key is not set"
}

// Is matches ErrAPIKeyMissing.
func (e *KeyError) Is(target error) bool {
	return target == ErrAPIKeyMissing
}

// SendError wraps a failed request with the provider's display name.
type SendError struct {
	Provider string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("Failed to communicate with %s: %s", e.Provider, e.Err.Error())
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// buildHistory appends the new user text to a copy of history.
func buildHistory(text string, history []model.Message) []model.Message {
	msgs := make([]model.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	return append(msgs, model.NewUserMessage(text))
}
