// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard shortcuts for the dashboard.
type KeyMap struct {
	// Input
	Submit  key.Binding
	Newline key.Binding
	Cancel  key.Binding

	// Navigation
	NextTab     key.Binding
	PrevTab     key.Binding
	NextSession key.Binding
	PrevSession key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Suggestion  key.Binding

	// Session actions
	NewChat    key.Binding
	Rename     key.Binding
	Delete     key.Binding
	Clear      key.Binding
	Regenerate key.Binding

	// Tools
	Attach    key.Binding
	Export    key.Binding
	NextModel key.Binding
	Pull      key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("alt+enter", "new line"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next provider"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev provider"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("shift+down"),
			key.WithHelp("shift+down", "next chat"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("shift+up"),
			key.WithHelp("shift+up", "prev chat"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Suggestion: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4"),
			key.WithHelp("alt+1..4", "suggestion"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "regenerate"),
		),
		Attach: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "attach"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "export"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "next model"),
		),
		Pull: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "pull model"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextTab, k.NewChat, k.Regenerate, k.Export, k.Quit}
}

// FullHelp returns every binding grouped by purpose.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.Cancel, k.Suggestion},
		{k.NextTab, k.PrevTab, k.NextSession, k.PrevSession, k.PageUp, k.PageDown},
		{k.NewChat, k.Rename, k.Delete, k.Clear, k.Regenerate},
		{k.Attach, k.Export, k.NextModel, k.Pull, k.Quit},
	}
}
