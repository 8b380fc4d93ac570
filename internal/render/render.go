// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render draws chat transcripts for the terminal.
//
// Assistant messages are interpreted as markdown with glamour; user
// messages are shown as literal text. An empty transcript renders the
// welcome card with its suggestions.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
)

const minWidth = 20

// Renderer turns transcripts into styled text. The glamour renderer is
// rebuilt only when the width changes.
type Renderer struct {
	theme *styles.Theme

	mu    sync.Mutex
	width int
	md    *glamour.TermRenderer
}

// New creates a renderer for the given content width.
func New(theme *styles.Theme, width int) *Renderer {
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	r := &Renderer{theme: theme}
	r.SetWidth(width)
	return r
}

// SetWidth changes the wrap width.
func (r *Renderer) SetWidth(width int) {
	if width < minWidth {
		width = minWidth
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && r.md != nil {
		return
	}
	r.width = width
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		md = nil
	}
	r.md = md
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Markdown renders assistant content. The input is returned unchanged if
// glamour fails.
func (r *Renderer) Markdown(content string) string {
	r.mu.Lock()
	md := r.md
	r.mu.Unlock()
	if md == nil {
		return content
	}
	out, err := md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// Message renders one message with its role label.
func (r *Renderer) Message(m model.Message) string {
	var sb strings.Builder
	if m.IsUser() {
		sb.WriteString(r.theme.UserLabel.Render(m.Role.DisplayName()))
		sb.WriteString("\n")
		sb.WriteString(r.theme.UserText.Width(r.Width() - 2).Render(m.Content))
	} else {
		sb.WriteString(r.theme.AssistantLabel.Render(m.Role.DisplayName()))
		sb.WriteString("\n")
		sb.WriteString(r.Markdown(m.Content))
	}
	return sb.String()
}

// Transcript renders the whole transcript.
func (r *Renderer) Transcript(t chat.Transcript) string {
	if t.Empty() && !t.Typing && t.Error == "" {
		return r.Welcome(t)
	}

	blocks := make([]string, 0, len(t.Messages)+2)
	for _, m := range t.Messages {
		blocks = append(blocks, r.Message(m))
	}
	if t.Typing {
		blocks = append(blocks, r.Typing())
	}
	if t.Error != "" {
		blocks = append(blocks, r.Error(t.Error))
	}
	if t.CanRegenerate {
		blocks = append(blocks, r.theme.Hint.Render("ctrl+r regenerate"))
	}
	return strings.Join(blocks, "\n\n")
}

// Typing renders the placeholder shown while a reply is outstanding.
func (r *Renderer) Typing() string {
	return r.theme.Typing.Render("Assistant is typing...")
}

// Error renders an inline error block. It is never part of the history.
func (r *Renderer) Error(msg string) string {
	return r.theme.ErrorBox.Width(r.Width() - 2).Render(
		r.theme.ErrorTitle.Render("Error") + "\n" + msg)
}

// Welcome renders the empty-session placeholder with numbered suggestions.
func (r *Renderer) Welcome(t chat.Transcript) string {
	var sb strings.Builder
	sb.WriteString(r.theme.WelcomeTitle.Render("Welcome to FusionLoom"))
	sb.WriteString("\n")
	if t.Provider != "" {
		sb.WriteString(fmt.Sprintf("Chatting with %s", t.Provider.DisplayName()))
		if t.Model != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", t.Model))
		}
		sb.WriteString("\n")
	}
	if len(t.Suggestions) > 0 {
		sb.WriteString("\nTry one of these:\n")
		for i, s := range t.Suggestions {
			sb.WriteString(r.theme.Suggestion.Render(fmt.Sprintf("  %d. %s", i+1, s)))
			sb.WriteString("\n")
		}
	}
	width := r.Width() - 4
	if width < minWidth {
		width = minWidth
	}
	return r.theme.Welcome.Width(width).Render(strings.TrimRight(sb.String(), "\n"))
}
