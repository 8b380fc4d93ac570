// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/ollama"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fakeAdapter struct {
	name      model.Provider
	available bool
}

func (f *fakeAdapter) Name() model.Provider { return f.name }

func (f *fakeAdapter) DefaultModel() string { return model.DefaultModel(f.name) }

func (f *fakeAdapter) Send(_ context.Context, text, _ string, _ []model.Message) (string, error) {
	return "reply from " + string(f.name) + ": " + text, nil
}

func (f *fakeAdapter) ListModels(context.Context) ([]string, error) {
	return []string{model.DefaultModel(f.name), "other-model"}, nil
}

func (f *fakeAdapter) IsAvailable(context.Context) bool { return f.available }

type fakePuller struct {
	fakeAdapter
	pulled []string
}

func (f *fakePuller) Pull(_ context.Context, name string) error {
	f.pulled = append(f.pulled, name)
	return nil
}

func fakeRegistry() (*provider.Registry, *fakePuller) {
	local := &fakePuller{fakeAdapter: fakeAdapter{name: model.ProviderOllama, available: true}}
	return provider.NewStaticRegistry(
		local,
		&fakeAdapter{name: model.ProviderClaude},
		&fakeAdapter{name: model.ProviderChatGPT},
		&fakeAdapter{name: model.ProviderGemini},
	), local
}

// setupHome points the config directory at a temp dir, clears the
// environment overrides and installs fake adapters.
func setupHome(t *testing.T) (string, *fakePuller) {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	for _, key := range []string{
		"FUSIONLOOM_THEME", "FUSIONLOOM_LOG_LEVEL", "FUSIONLOOM_STORAGE",
		"FUSIONLOOM_SAVE_SESSIONS", "FUSIONLOOM_DEFAULT_PROVIDER", "OLLAMA_HOST",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(key, "")
	}

	reg, local := fakeRegistry()
	origAdapters, origNow := newAdapters, nowFunc
	newAdapters = func(*config.Config) chat.AdapterSource { return reg }
	nowFunc = func() time.Time { return time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() {
		newAdapters, nowFunc = origAdapters, origNow
	})
	return home, local
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const historyFixture = `{
  "s-go": {
    "name": "Go questions",
    "messages": [
      {"role": "user", "content": "what is a goroutine"},
      {"role": "assistant", "content": "a lightweight thread"}
    ],
    "created": "2025-01-01T10:00:00.000Z",
    "updated": "2025-01-01T10:05:00.000Z"
  },
  "s-food": {
    "name": "Recipes",
    "messages": [],
    "created": "2025-01-02T09:00:00.000Z",
    "updated": "2025-01-02T09:00:00.000Z"
  }
}`

func importFixture(t *testing.T) {
	t.Helper()
	out, err := runCLI(t, historyFixture, "history", "import", "-")
	require.NoError(t, err)
	require.Contains(t, out, "Imported 2 chats into Ollama")
}

// =============================================================================
// ROOT
// =============================================================================

func TestRootCmd(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "fusionloom", root.Use)
	assert.True(t, root.SilenceUsage)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"tui", "chat", "history", "providers", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "log-level", "storage"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestVersionCmd(t *testing.T) {
	setupHome(t)
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "fusionloom "+Version))
	assert.Contains(t, out, "commit:")
}

func TestUnknownCommand(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "", "frobnicate")
	assert.Error(t, err)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistoryListEmpty(t *testing.T) {
	setupHome(t)
	out, err := runCLI(t, "", "history", "list", "-p", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "No Claude chats yet")
}

func TestHistoryImportAndList(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Go questions")

	// most recent first
	assert.Less(t, strings.Index(out, "s-food"), strings.Index(out, "s-go"))

	// other providers are untouched
	out, err = runCLI(t, "", "history", "list", "-p", "gemini")
	require.NoError(t, err)
	assert.Contains(t, out, "No Gemini chats yet")
}

func TestHistoryImportRejectsInvalid(t *testing.T) {
	setupHome(t)
	importFixture(t)

	_, err := runCLI(t, `{"bad": {"messages": []}}`, "history", "import", "-")
	require.Error(t, err)

	out, err := runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Go questions", "failed import must not change the history")
}

func TestHistoryShow(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "show", "s-go")
	require.NoError(t, err)
	assert.Contains(t, out, "Go questions")
	assert.Contains(t, out, "what is a goroutine")
	assert.Contains(t, out, "a lightweight thread")

	_, err = runCLI(t, "", "history", "show", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestHistorySearch(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "search", "GOROUTINE")
	require.NoError(t, err)
	assert.Contains(t, out, "s-go")
	assert.NotContains(t, out, "s-food")

	out, err = runCLI(t, "", "history", "search", "nothing like this")
	require.NoError(t, err)
	assert.Contains(t, out, `No chats match "nothing like this"`)
}

func TestHistoryRenameAndDelete(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "rename", "s-food", "Dinner ideas")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed s-food")

	out, err = runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Dinner ideas")

	out, err = runCLI(t, "", "history", "delete", "s-food")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted s-food")

	_, err = runCLI(t, "", "history", "delete", "s-food")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestHistoryExportOne(t *testing.T) {
	setupHome(t)
	importFixture(t)
	dir := t.TempDir()

	out, err := runCLI(t, "", "history", "export", "s-go", "-o", dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "Go_questions_2025-03-04.md")
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "what is a goroutine")

	_, err = runCLI(t, "", "history", "export", "s-go", "-f", "pdf", "-o", dir)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHistoryExportAllRoundTrip(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "export")
	require.NoError(t, err)
	assert.Contains(t, out, `"Go questions"`)

	file := filepath.Join(t.TempDir(), "ollama.json")
	_, err = runCLI(t, "", "history", "export", "-o", file)
	require.NoError(t, err)

	_, err = runCLI(t, "", "history", "import", file, "-p", "claude")
	require.NoError(t, err)

	out, err = runCLI(t, "", "history", "show", "s-go", "-p", "claude")
	require.NoError(t, err)
	assert.Contains(t, out, "a lightweight thread")
}

func TestHistoryClearNeedsConfirmation(t *testing.T) {
	setupHome(t)
	importFixture(t)

	_, err := runCLI(t, "", "history", "clear")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	out, err := runCLI(t, "", "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared Ollama history")

	out, err = runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No Ollama chats yet")
}

func TestHistoryStats(t *testing.T) {
	setupHome(t)
	importFixture(t)

	out, err := runCLI(t, "", "history", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "PROVIDER")
	for _, p := range model.AllProviders() {
		assert.Contains(t, out, p.DisplayName())
	}
	assert.Contains(t, out, "Recipes")
}

func TestHistoryUnknownProvider(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "", "history", "list", "-p", "bard")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHistoryMemoryStorage(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, historyFixture, "--storage", "memory", "history", "import", "-")
	require.NoError(t, err)

	out, err := runCLI(t, "", "--storage", "memory", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No Ollama chats yet", "memory history does not outlive the process")
}

// =============================================================================
// PROVIDERS
// =============================================================================

func TestProvidersList(t *testing.T) {
	setupHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	out, err := runCLI(t, "", "providers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PROVIDER")
	assert.Contains(t, out, "http://localhost:11434")
	assert.Contains(t, out, "set")
	assert.Contains(t, out, "not set")
	assert.NotContains(t, out, "sk-test")
}

func TestProvidersStatus(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "", "providers", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Ollama")
	assert.Contains(t, out, "[X] Claude")
	assert.Contains(t, out, "[X] Gemini")
}

func TestProvidersModels(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "", "providers", "models", "-p", "chatgpt")
	require.NoError(t, err)
	assert.Contains(t, out, model.DefaultModel(model.ProviderChatGPT)+" (default)")
	assert.Contains(t, out, "other-model")
}

func TestProvidersPull(t *testing.T) {
	_, local := setupHome(t)

	out, err := runCLI(t, "", "providers", "pull", "llama3")
	require.NoError(t, err)
	assert.Contains(t, out, "Pulling model: llama3...")
	assert.Contains(t, out, "Successfully pulled model: llama3")
	assert.Equal(t, []string{"llama3"}, local.pulled)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigPath(t *testing.T) {
	home, _ := setupHome(t)
	out, err := runCLI(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), strings.TrimSpace(out))
}

func TestConfigInit(t *testing.T) {
	home, _ := setupHome(t)
	path := filepath.Join(home, "config.toml")

	_, err := runCLI(t, "", "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = runCLI(t, "", "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = runCLI(t, "", "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigSetGet(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "", "config", "set", "theme", "light")
	require.NoError(t, err)
	out, err := runCLI(t, "", "config", "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", strings.TrimSpace(out))

	_, err = runCLI(t, "", "config", "set", "ollama.timeout", "30s")
	require.NoError(t, err)
	out, err = runCLI(t, "", "config", "get", "ollama.timeout")
	require.NoError(t, err)
	assert.Equal(t, "30s", strings.TrimSpace(out))

	_, err = runCLI(t, "", "config", "set", "theme", "purple")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, err = runCLI(t, "", "config", "get", "no.such.key")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigSetKeepsEnvOutOfFile(t *testing.T) {
	home, _ := setupHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	_, err := runCLI(t, "", "config", "set", "default_provider", "claude")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "claude")
	assert.NotContains(t, string(data), "sk-from-env")

	out, err := runCLI(t, "", "config", "get", "claude.api_key")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", strings.TrimSpace(out))
}

func TestConfigShowRedacts(t *testing.T) {
	setupHome(t)
	t.Setenv("GEMINI_API_KEY", "g-secret")

	out, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "(defaults)")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "g-secret")
}

func TestConfigKeys(t *testing.T) {
	setupHome(t)
	out, err := runCLI(t, "", "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama.url")
	assert.Contains(t, out, "storage.backend")
}

func TestConfigFlagPath(t *testing.T) {
	setupHome(t)
	path := filepath.Join(t.TempDir(), "custom.toml")

	_, err := runCLI(t, "", "--config", path, "config", "set", "log_level", "debug")
	require.NoError(t, err)
	out, err := runCLI(t, "", "--config", path, "config", "get", "log_level")
	require.NoError(t, err)
	assert.Equal(t, "debug", strings.TrimSpace(out))
}

// =============================================================================
// REPL
// =============================================================================

func newTestREPL(t *testing.T, input string) (*repl, *bytes.Buffer, *history.Store) {
	t.Helper()
	setupHome(t)
	reg, _ := fakeRegistry()
	backend := storage.NewMemoryBackend()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	clock := func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
	a := &app{
		cfg:      config.Default(),
		backend:  backend,
		store:    history.New(backend, history.WithClock(clock)),
		adapters: reg,
	}
	var out bytes.Buffer
	r := newREPL(a, newScanReader(strings.NewReader(input)), &out, nil)
	r.exportDir = t.TempDir()
	require.NoError(t, r.ctrl.Initialize(context.Background(), model.ProviderOllama))
	return r, &out, a.store
}

func TestREPLSend(t *testing.T) {
	r, out, store := newTestREPL(t, "hello there\n")
	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "Try one of these with /try <n>:")
	assert.Contains(t, out.String(), "reply from ollama: hello there")

	assert.Equal(t, 1, store.GetSessionCount(model.ProviderOllama))
	assert.Equal(t, 2, store.GetMessageCount(model.ProviderOllama))
}

func TestREPLQuitStopsReading(t *testing.T) {
	r, out, store := newTestREPL(t, "/quit\nnever sent\n")
	require.NoError(t, r.run(context.Background()))
	assert.NotContains(t, out.String(), "never sent")
	assert.Equal(t, 0, store.GetMessageCount(model.ProviderOllama))
}

func TestREPLSessions(t *testing.T) {
	input := strings.Join([]string{
		"/new Second",
		"second message",
		"/sessions",
		"/switch 2",
		"/rename Renamed first",
		"/sessions",
	}, "\n") + "\n"
	r, out, store := newTestREPL(t, input)
	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, 2, store.GetSessionCount(model.ProviderOllama))
	assert.Contains(t, out.String(), "Switched to New Chat")

	names := []string{}
	for _, s := range store.ListSessions(model.ProviderOllama) {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Second", "Renamed first"}, names)
}

func TestREPLTry(t *testing.T) {
	r, out, _ := newTestREPL(t, "/try 1\n/try 9\n")
	require.NoError(t, r.run(context.Background()))

	first := chat.SuggestionPrompts()[0]
	assert.Contains(t, out.String(), "reply from ollama: "+first)
	assert.Contains(t, out.String(), "usage: /try <1-")
}

func TestREPLProviderSwitch(t *testing.T) {
	r, out, store := newTestREPL(t, "/provider gemini\nhi\n/provider\n")
	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, model.ProviderGemini, r.ctrl.Provider())
	assert.Contains(t, out.String(), "reply from gemini: hi")
	assert.Equal(t, 2, store.GetMessageCount(model.ProviderGemini))
	assert.Equal(t, 0, store.GetMessageCount(model.ProviderOllama))
}

func TestREPLPullRefusedForCloud(t *testing.T) {
	r, out, _ := newTestREPL(t, "/provider claude\n/pull llama3\n")
	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "Claude does not support pulling models")
}

func TestREPLExport(t *testing.T) {
	r, out, _ := newTestREPL(t, "question\n/export json\n")
	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "Exported to")

	entries, err := os.ReadDir(r.exportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
}

func TestREPLUnknownCommand(t *testing.T) {
	r, out, _ := newTestREPL(t, "/frob\n")
	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "unknown command: /frob")
}

func TestREPLResolve(t *testing.T) {
	r, _, _ := newTestREPL(t, "")
	require.NoError(t, r.ctrl.CreateSession("Other"))
	sessions := r.ctrl.Sessions()
	require.Len(t, sessions, 2)

	got, err := r.resolve("2")
	require.NoError(t, err)
	assert.Equal(t, sessions[1].ID, got.ID)

	got, err = r.resolve(sessions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, sessions[0].ID, got.ID)

	_, err = r.resolve("zzz")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = r.resolve("")
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"unknown provider", fmt.Errorf("%w: x", model.ErrUnknownProvider), ExitUsageError},
		{"config", config.ValidateErrors{{Field: "theme", Message: "bad"}}, ExitConfigError},
		{"api key", wrap("chat", "send", &provider.KeyError{Vendor: "Claude"}), ExitAuthError},
		{"not found", &NotFoundError{Resource: "session", ID: "x"}, ExitNotFoundError},
		{"store not found", wrap("history", "rename", history.ErrNotFound), ExitNotFoundError},
		{"ollama down", wrap("providers", "pull", ollama.ErrNotRunning), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &CommandError{Command: "history", Action: "import", Err: errors.New("bad json")})
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "history import: bad json")

	buf.Reset()
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())
}
