// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// NotificationType is the severity of a transient notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a short user-visible message.
type Notification struct {
	Type    NotificationType
	Message string
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// =============================================================================
// RENDERING
// =============================================================================

// Transcript is everything needed to draw the active session. It is a
// value; renderers may keep it.
type Transcript struct {
	Provider    model.Provider
	SessionID   string
	SessionName string
	Model       string
	Messages    []model.Message

	// Typing is set while a reply for this session is outstanding.
	Typing bool

	// Error is the last failed send, shown inline and never stored.
	Error string

	// CanRegenerate is set when the last message is an assistant reply.
	CanRegenerate bool

	// Suggestions are offered when there are no messages.
	Suggestions []string
}

// Empty reports whether the welcome placeholder should be shown.
func (t Transcript) Empty() bool {
	return len(t.Messages) == 0
}

// Renderer draws transcripts. Render is called after every change.
type Renderer interface {
	Render(t Transcript)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Transcript)

// Render calls f(t).
func (f RendererFunc) Render(t Transcript) { f(t) }

// suggestionPrompts are shown on the welcome placeholder.
var suggestionPrompts = []string{
	"Explain quantum computing in simple terms",
	"Write a Go function that reverses a string",
	"What are the benefits of renewable energy?",
	"Help me plan a trip to Japan",
}

// SuggestionPrompts returns the welcome placeholder suggestions.
func SuggestionPrompts() []string {
	out := make([]string, len(suggestionPrompts))
	copy(out, suggestionPrompts)
	return out
}
