// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the active chat session of each UI.
//
// # Key Types
//
//   - Controller: the session state machine (Uninitialized, Idle, Awaiting)
//   - Switcher: tracks the visible provider and re-initializes the controller
//   - Pending / Result: a send split into its dispatch and completion halves
//   - Transcript: the value a Renderer draws
//
// A send is split so a UI event loop never blocks on the network:
// BeginSend records the user message and returns a Pending token, Dispatch
// calls the adapter (on any goroutine), and Complete applies the Result.
// Results whose session is no longer on screen are written to that
// session's stored record instead of the visible one.
//
// # Usage
//
//	ctrl := chat.NewController(registry, store, chat.WithNotifier(n), chat.WithRenderer(r))
//	sw := chat.NewSwitcher(ctrl, panels)
//	sw.Switch(ctx, model.ProviderOllama)
//	ctrl.SendMessage(ctx, "Hello")
package chat
