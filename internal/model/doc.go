// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Provider: one of the fixed chat providers (ollama, claude, chatgpt, gemini)
//   - ChatSession: a named, ordered list of messages with created/updated times
//   - Message: a single user or assistant turn
//   - ModelInfo: catalog entry for a model a provider can serve
//
// # Usage
//
//	p, err := model.ParseProvider("claude")
//	s := &model.ChatSession{Name: "Trip Planning"}
//	s.Messages = append(s.Messages, model.NewUserMessage("Hello"))
package model
