// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama daemon.
//
// # Key Types
//
//   - Client: health check, model listing, pull and non-streaming chat
//   - Message: chat message with role and content
//   - ChatResponse: final assistant message with timing metrics
//   - ClientError: typed error with ErrorType for handling
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: "http://localhost:11434"})
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	resp, err := client.Chat(ctx, "llama3", []ollama.Message{ollama.NewUserMessage("Hello")})
//	fmt.Println(resp.Message.Content)
package ollama
