// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the FusionLoom terminal dashboard.
//
// The dashboard shows one tab per provider, the active provider's sessions
// in a sidebar, the transcript of the active session and an input area.
// It runs on bubbletea's single event loop: adapter calls run inside a
// tea.Cmd and their results come back as messages that are applied with
// chat.Controller.Complete.
//
// Key bindings:
//
//	Enter          send            alt+enter   new line
//	tab/shift+tab  next/prev tab   alt+1..4    use a suggestion
//	shift+up/down  previous/next session
//	ctrl+n new chat   ctrl+e rename   ctrl+x delete   ctrl+l clear
//	ctrl+r regenerate ctrl+o attach   ctrl+s export   ctrl+g next model
//	ctrl+p pull model (Ollama)        ctrl+c quit
package tui
