// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
)

type stubAdapter struct {
	name model.Provider
}

func (s stubAdapter) Name() model.Provider { return s.name }

func (s stubAdapter) DefaultModel() string { return "default-" + string(s.name) }

func (s stubAdapter) Send(_ context.Context, text, _ string, _ []model.Message) (string, error) {
	return "reply from " + string(s.name) + ": " + text, nil
}

func (s stubAdapter) ListModels(context.Context) ([]string, error) {
	return []string{"m1", "m2"}, nil
}

func (s stubAdapter) IsAvailable(context.Context) bool { return true }

func newTestModel(t *testing.T) (Model, *history.Store) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	clock := func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
	store := history.New(storage.NewMemoryBackend(), history.WithClock(clock))
	var adapters []provider.Adapter
	for _, p := range model.AllProviders() {
		adapters = append(adapters, stubAdapter{name: p})
	}
	m := New(context.Background(), Options{
		Adapters:  provider.NewStaticRegistry(adapters...),
		Store:     store,
		Theme:     styles.NewTheme("dark"),
		ExportDir: t.TempDir(),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), store
}

// run executes cmd and any batched commands, keeping the messages that
// arrive quickly. Timers and listeners are left behind.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, run(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func replies(msgs []tea.Msg) []ReplyMsg {
	var out []ReplyMsg
	for _, msg := range msgs {
		if r, ok := msg.(ReplyMsg); ok {
			out = append(out, r)
		}
	}
	return out
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func TestNewOpensStartProvider(t *testing.T) {
	m, store := newTestModel(t)

	assert.Equal(t, model.ProviderOllama, m.ctrl.Provider())
	assert.True(t, m.panels.isVisible(model.ProviderOllama))
	assert.Equal(t, model.DefaultSessionName, m.transcript.SessionName)
	assert.Equal(t, 1, store.GetSessionCount(model.ProviderOllama))
	assert.Len(t, m.sessions, 1)
}

func TestSubmitRoundTrip(t *testing.T) {
	m, store := newTestModel(t)
	m.input.SetValue("hello")

	m, cmd := press(t, m, keyEnter)
	assert.True(t, m.transcript.Typing)
	assert.Equal(t, chat.StateAwaiting, m.ctrl.State())
	assert.Empty(t, m.input.Value())

	rs := replies(run(cmd))
	require.Len(t, rs, 1)

	next, _ := m.Update(rs[0])
	m = next.(Model)
	assert.False(t, m.transcript.Typing)
	require.Len(t, m.transcript.Messages, 2)
	assert.Equal(t, "reply from ollama: hello", m.transcript.Messages[1].Content)

	sess, ok := store.LoadSession(model.ProviderOllama, m.transcript.SessionID)
	require.True(t, ok)
	assert.Len(t, sess.Messages, 2)
}

func TestSubmitWhileAwaitingIsRefused(t *testing.T) {
	m, _ := newTestModel(t)
	m.input.SetValue("first")
	m, _ = press(t, m, keyEnter)

	m.input.SetValue("second")
	m, cmd := press(t, m, keyEnter)

	assert.Len(t, m.transcript.Messages, 1)
	assert.Equal(t, "second", m.input.Value())
	assert.Empty(t, replies(run(cmd)))
	require.NotEmpty(t, m.toasts)
}

func TestTabSwitchesProvider(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, keyTab)
	assert.Equal(t, model.ProviderClaude, m.ctrl.Provider())
	assert.True(t, m.panels.isVisible(model.ProviderClaude))
	assert.False(t, m.panels.isVisible(model.ProviderOllama))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, model.ProviderGemini, m.ctrl.Provider())
}

func TestReplyAfterSwitchLandsInOriginSession(t *testing.T) {
	m, store := newTestModel(t)
	origin := m.transcript.SessionID
	m.input.SetValue("hello")
	m, cmd := press(t, m, keyEnter)

	m, _ = press(t, m, keyTab)
	rs := replies(run(cmd))
	require.Len(t, rs, 1)
	next, _ := m.Update(rs[0])
	m = next.(Model)

	assert.Equal(t, model.ProviderClaude, m.transcript.Provider)
	assert.Empty(t, m.transcript.Messages)

	sess, ok := store.LoadSession(model.ProviderOllama, origin)
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
}

func TestSuggestionSendsPrompt(t *testing.T) {
	m, _ := newTestModel(t)
	require.NotEmpty(t, m.transcript.Suggestions)
	want := m.transcript.Suggestions[1]

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}, Alt: true})
	require.Len(t, m.transcript.Messages, 1)
	assert.Equal(t, want, m.transcript.Messages[0].Content)
	assert.Len(t, replies(run(cmd)), 1)
}

func TestNewChatPrompt(t *testing.T) {
	m, store := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, promptNewChat, m.prompt)
	m.promptLine.SetValue("Ideas")
	m, _ = press(t, m, keyEnter)

	assert.Equal(t, promptNone, m.prompt)
	assert.Equal(t, "Ideas", m.transcript.SessionName)
	assert.Equal(t, 2, store.GetSessionCount(model.ProviderOllama))
	assert.Len(t, m.sessions, 2)
}

func TestPromptEscapeCancels(t *testing.T) {
	m, store := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, promptNone, m.prompt)
	assert.Equal(t, 1, store.GetSessionCount(model.ProviderOllama))
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, store := newTestModel(t)
	id := m.transcript.SessionID

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m, _ = press(t, m, keyEnter)
	_, ok := store.LoadSession(model.ProviderOllama, id)
	assert.True(t, ok)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m.promptLine.SetValue("y")
	m, _ = press(t, m, keyEnter)
	_, ok = store.LoadSession(model.ProviderOllama, id)
	assert.False(t, ok)
	assert.NotEqual(t, id, m.transcript.SessionID)
}

func TestSessionNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	first := m.transcript.SessionID
	require.NoError(t, m.ctrl.CreateSession("Second"))
	m.sync()
	require.Len(t, m.sessions, 2)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftDown})
	assert.Equal(t, first, m.transcript.SessionID)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftUp})
	assert.Equal(t, "Second", m.transcript.SessionName)
}

func TestExportWritesFile(t *testing.T) {
	m, _ := newTestModel(t)
	m.input.SetValue("hello")
	m, cmd := press(t, m, keyEnter)
	next, _ := m.Update(replies(run(cmd))[0])
	m = next.(Model)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, promptExport, m.prompt)
	m, _ = press(t, m, keyEnter)

	entries, err := os.ReadDir(m.exportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".md"))

	data, err := os.ReadFile(filepath.Join(m.exportDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "### You")
	require.NotEmpty(t, m.toasts)
	assert.Equal(t, chat.NotifySuccess, m.toasts[len(m.toasts)-1].note.Type)
}

func TestAttachAppendsMarker(t *testing.T) {
	m, _ := newTestModel(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	m.input.SetValue("look")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m.promptLine.SetValue(path)
	m, _ = press(t, m, keyEnter)

	assert.Equal(t, "look\n[Attached file: notes.txt]", m.input.Value())
	require.NotEmpty(t, m.toasts)
	assert.Equal(t, "File attached: notes.txt", m.toasts[len(m.toasts)-1].note.Message)
}

func TestCycleModel(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(ModelsMsg{Provider: model.ProviderOllama, Models: []string{"m1", "m2"}})
	m = next.(Model)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, "m1", m.ctrl.SelectedModel(model.ProviderOllama))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, "m2", m.ctrl.SelectedModel(model.ProviderOllama))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, "m1", m.ctrl.SelectedModel(model.ProviderOllama))
}

func TestPullRefusedForCloudProvider(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, keyTab)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, promptNone, m.prompt)
	require.NotEmpty(t, m.toasts)
	assert.Equal(t, chat.NotifyWarning, m.toasts[len(m.toasts)-1].note.Type)
}

func TestToastsDismiss(t *testing.T) {
	m, _ := newTestModel(t)

	m.bridge.Notify(chat.Notification{Type: chat.NotifyInfo, Message: "hi"})
	next, _ := m.Update(NotifyMsg{})
	m = next.(Model)
	require.Len(t, m.toasts, 1)

	next, _ = m.Update(DismissToastMsg{ID: m.toasts[0].id})
	m = next.(Model)
	assert.Empty(t, m.toasts)
}

func TestToastsAreCapped(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < maxToasts+2; i++ {
		m.addToast(chat.Notification{Message: "n"})
	}
	assert.Len(t, m.toasts, maxToasts)
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t)

	out := m.View()
	assert.Contains(t, out, "FusionLoom")
	assert.Contains(t, out, "Claude")
	assert.Contains(t, out, "Chats")
	assert.Contains(t, out, model.DefaultSessionName)
}

func TestViewBeforeResize(t *testing.T) {
	m := New(context.Background(), Options{
		Adapters: provider.NewStaticRegistry(stubAdapter{name: model.ProviderOllama}),
		Store:    history.New(storage.NewMemoryBackend()),
		Theme:    styles.NewTheme("dark"),
	})
	assert.Equal(t, "Loading FusionLoom...", m.View())
}

func TestSettingsChangeTheme(t *testing.T) {
	m, _ := newTestModel(t)
	require.Equal(t, "dark", m.theme.Name)

	next, _ := m.Update(SettingsMsg{Theme: "light"})
	m = next.(Model)
	assert.Equal(t, "light", m.theme.Name)
	assert.False(t, m.theme.IsDark)
	require.NotEmpty(t, m.toasts)

	next, _ = m.Update(SettingsMsg{Theme: "light"})
	m = next.(Model)
	assert.Len(t, m.toasts, 1)
}
