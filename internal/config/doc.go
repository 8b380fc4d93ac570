// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for FusionLoom.
//
// Supports both TOML and JSON configuration formats, with defaults, a
// .env file, environment variable overrides, validation and live reload.
//
// Configuration file locations (in order of precedence):
//   - ~/.fusionloom/config.toml
//   - ~/.fusionloom/config.json
//   - Built-in defaults
//
// FUSIONLOOM_HOME relocates the whole directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // cfg still holds usable defaults
//	}
//	ollama := cfg.ProviderSettings(model.ProviderOllama)
//
// # Thread Safety
//
// A *Config is not safe for concurrent mutation; callers that share one
// should Clone it first. Watch delivers a freshly loaded Config per change.
package config
