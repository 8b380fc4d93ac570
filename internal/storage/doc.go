// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the keyed string store chat history lives in.
//
// A Backend maps keys such as "fusionloom_ollama_chat_history" to opaque
// string values. Three implementations exist:
//
//   - MemoryBackend: process-local map, used when save_sessions is off and in tests
//   - FileBackend: one JSON file per key, written atomically
//   - SQLiteBackend: a single kv table in a modernc.org/sqlite database
//
// # Usage
//
//	backend, err := storage.Open(storage.Options{Kind: storage.KindFile, Path: dir})
//	defer backend.Close()
//	err = backend.Set("fusionloom_claude_chat_history", "{}")
//	value, ok, err := backend.Get("fusionloom_claude_chat_history")
//
// # Storage Location
//
// File and SQLite data default to ~/.fusionloom/history/ and
// ~/.fusionloom/history.db respectively.
package storage
