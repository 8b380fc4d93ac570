// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides clients for the hosted chat providers.
//
// Anthropic and OpenAI are thin net/http wrappers over their chat
// endpoints; Gemini goes through google.golang.org/genai. All three share
// the same request budget (1000 output tokens), retry policy for 429 and
// 5xx responses, and error shape.
//
// # Key Types
//
//   - AnthropicClient: POST {base}/messages
//   - OpenAIClient: POST {base}/chat/completions
//   - GeminiClient: models/{model}:generateContent via genai
//   - APIError: non-2xx response carrying the provider's error message
//
// # Usage
//
//	client := cloud.NewAnthropicClient(apiKey)
//	text, err := client.Chat(ctx, "claude-3-sonnet-20240229", []cloud.ChatMessage{
//	    cloud.NewUserMessage("Hello"),
//	})
//
// API keys are never logged.
package cloud
