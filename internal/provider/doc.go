// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider adapts the Ollama and cloud clients to one contract:
// text and prior history in, assistant text out.
//
// Adapter errors are user-facing. A missing API key yields
// "<Provider> API key is not set"; any transport or API failure yields
// "Failed to communicate with <Provider>: <detail>".
//
// The Registry is built once from configuration and never mutated, so it
// needs no locking.
package provider
