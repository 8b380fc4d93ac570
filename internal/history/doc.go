// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions per provider.
//
// Each provider owns one collection stored under the key
// "fusionloom_<provider>_chat_history". The value is a JSON object mapping
// session id to {name, messages, created, updated}. Every write replaces
// the whole collection, so readers always see a consistent snapshot.
//
// # Failure Semantics
//
// Read operations never fail: a missing or unreadable collection reads as
// empty. Write operations return errors wrapping ErrWrite. ImportHistory
// validates the whole payload before anything is written.
//
// # Usage
//
//	store := history.New(backend)
//	id, err := store.CreateSession(model.ProviderOllama, "Trip Planning")
//	err = store.SaveSession(model.ProviderOllama, id, history.SessionPatch{Messages: msgs})
//	latest, ok := store.GetMostRecentSession(model.ProviderOllama)
package history
