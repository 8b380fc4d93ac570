// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactories builds one fresh backend of every kind.
func backendFactories(t *testing.T) map[string]func() Backend {
	return map[string]func() Backend{
		"memory": func() Backend { return NewMemoryBackend() },
		"file": func() Backend {
			b, err := NewFileBackend(filepath.Join(t.TempDir(), "history"))
			require.NoError(t, err)
			return b
		},
		"sqlite": func() Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "history.db"))
			require.NoError(t, err)
			return b
		},
	}
}

func TestBackends_Contract(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			b := factory()
			defer b.Close()

			_, ok, err := b.Get("fusionloom_ollama_chat_history")
			require.NoError(t, err)
			assert.False(t, ok, "missing key should report absent")

			require.NoError(t, b.Set("fusionloom_ollama_chat_history", `{"a":{}}`))
			require.NoError(t, b.Set("fusionloom_claude_chat_history", `{}`))

			v, ok, err := b.Get("fusionloom_ollama_chat_history")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"a":{}}`, v)

			require.NoError(t, b.Set("fusionloom_ollama_chat_history", `{}`))
			v, _, _ = b.Get("fusionloom_ollama_chat_history")
			assert.Equal(t, `{}`, v, "set must replace")

			keys, err := b.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"fusionloom_claude_chat_history", "fusionloom_ollama_chat_history"}, keys)

			require.NoError(t, b.Remove("fusionloom_claude_chat_history"))
			require.NoError(t, b.Remove("fusionloom_claude_chat_history"), "removing twice is fine")
			_, ok, _ = b.Get("fusionloom_claude_chat_history")
			assert.False(t, ok)
		})
	}
}

func TestBackends_RejectUnsafeKeys(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			b := factory()
			defer b.Close()
			for _, key := range []string{"", "../escape", "a/b", "..", "has space"} {
				err := b.Set(key, "x")
				assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: %v", key, err)
			}
		})
	}
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	b1, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, b1.Set("fusionloom_gemini_chat_history", `{"x":1}`))

	b2, err := NewFileBackend(dir)
	require.NoError(t, err)
	v, ok, err := b2.Get("fusionloom_gemini_chat_history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, v)

	_, err = os.Stat(filepath.Join(dir, "fusionloom_gemini_chat_history.json"))
	assert.NoError(t, err)
}

func TestSQLiteBackend_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	b1, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, b1.Set("fusionloom_chatgpt_chat_history", `{"y":2}`))
	require.NoError(t, b1.Close())

	b2, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	defer b2.Close()
	v, ok, err := b2.Get("fusionloom_chatgpt_chat_history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"y":2}`, v)
}

func TestMemoryBackend_Closed(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Set("k", "v"), ErrClosed)
	_, _, err := b.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen(t *testing.T) {
	b, err := Open(Options{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(Options{Kind: KindFile, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open(Options{Kind: KindSQLite, Path: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	b.Close()

	_, err = Open(Options{Kind: "redis"})
	assert.Error(t, err)
}
