// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
)

// isolate points the config directory at a temp dir and clears every
// variable ApplyEnvOverrides reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	for _, v := range []string{
		"FUSIONLOOM_THEME", "FUSIONLOOM_LOG_LEVEL", "FUSIONLOOM_STORAGE",
		"FUSIONLOOM_SAVE_SESSIONS", "FUSIONLOOM_DEFAULT_PROVIDER", "OLLAMA_HOST",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(v, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dark", cfg.Theme)
	assert.True(t, cfg.SaveSessions)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "llama3", cfg.Ollama.DefaultModel)
	assert.Equal(t, 120*time.Second, cfg.Ollama.Timeout.Duration)
	assert.Equal(t, model.ProviderOllama, cfg.StartProvider())
}

func TestLoadFromPath_TOMLKeepsDefaultsForAbsentKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
theme = "light"
save_sessions = false

[ollama]
url = "http://gpu-box:11434"
timeout = "30s"

[claude]
api_key = "sk-ant-file"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)
	assert.False(t, cfg.SaveSessions)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.URL)
	assert.Equal(t, 30*time.Second, cfg.Ollama.Timeout.Duration)
	assert.Equal(t, "llama3", cfg.Ollama.DefaultModel)
	assert.Equal(t, "sk-ant-file", cfg.Claude.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.ChatGPT.URL)
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"theme":"auto","gemini":{"api_key":"g","timeout":"5s"},"limits":{"requests_per_minute":30}}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Theme)
	assert.Equal(t, "g", cfg.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout.Duration)
	assert.Equal(t, 30, cfg.Limits.RequestsPerMinute)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
theme = "neon"
[storage]
backend = "redis"
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["theme"])
	assert.True(t, fields["storage.backend"])
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Theme, cfg.Theme)
}

func TestLoad_BrokenFileStillReturnsDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "theme = [unterminated")

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "dark", cfg.Theme)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("FUSIONLOOM_STORAGE", "sqlite")
	t.Setenv("FUSIONLOOM_SAVE_SESSIONS", "false")
	t.Setenv("FUSIONLOOM_DEFAULT_PROVIDER", "gemini")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.URL)
	assert.Equal(t, "a", cfg.Claude.APIKey)
	assert.Equal(t, "o", cfg.ChatGPT.APIKey)
	assert.Equal(t, "g", cfg.Gemini.APIKey)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.False(t, cfg.SaveSessions)
	assert.Equal(t, model.ProviderGemini, cfg.StartProvider())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Theme = "light"
	cfg.ChatGPT.APIKey = "sk-test"
	cfg.Ollama.Timeout = Duration{45 * time.Second}
	require.NoError(t, SaveTOML(cfg, path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("ollama.timeout", "30s"))
	require.NoError(t, cfg.Set("save_sessions", "false"))
	require.NoError(t, cfg.Set("limits.requests_per_minute", "12"))
	require.NoError(t, cfg.Set("claude.default_model", "claude-3-haiku-20240307"))

	v, err := cfg.Get("ollama.timeout")
	require.NoError(t, err)
	assert.Equal(t, "30s", v)
	assert.False(t, cfg.SaveSessions)
	assert.Equal(t, 12, cfg.Limits.RequestsPerMinute)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Claude.DefaultModel)

	_, err = cfg.Get("ollama.nope")
	assert.Error(t, err)
	_, err = cfg.Get("theme.sub")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("save_sessions", "maybe"))
}

func TestAllKeys(t *testing.T) {
	keys := AllKeys()
	assert.Contains(t, keys, "theme")
	assert.Contains(t, keys, "claude.api_key")
	assert.Contains(t, keys, "ollama.timeout")
	assert.Contains(t, keys, "limits.requests_per_minute")
	assert.NotContains(t, keys, "ollama")
}

func TestStorageOptions(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	opts, err := cfg.StorageOptions()
	require.NoError(t, err)
	assert.Equal(t, storage.KindFile, opts.Kind)
	assert.Equal(t, filepath.Join(dir, "history"), opts.Path)

	cfg.Storage.Backend = "sqlite"
	opts, err = cfg.StorageOptions()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), opts.Path)

	cfg.SaveSessions = false
	opts, err = cfg.StorageOptions()
	require.NoError(t, err)
	assert.Equal(t, storage.KindMemory, opts.Kind)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Claude.APIKey = "secret"

	assert.Equal(t, "[REDACTED]", cfg.Redacted().Claude.APIKey)
	assert.Equal(t, "secret", cfg.Claude.APIKey)
	assert.NotContains(t, cfg.String(), "secret")
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `theme = "dark"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config, err error) {
		if err == nil {
			got <- cfg
		}
	}))

	writeFile(t, path, `theme = "light"`)

	select {
	case cfg := <-got:
		assert.Equal(t, "light", cfg.Theme)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}
