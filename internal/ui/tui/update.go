// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/render"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)

	case ReplyMsg:
		m.ctrl.Complete(msg.Result)
		return m, m.sync()

	case ModelsMsg:
		if msg.Err != nil {
			logger.Log.Debugf("list %s models: %v", msg.Provider, msg.Err)
			return m, nil
		}
		m.models[msg.Provider] = msg.Models
		return m, nil

	case StatusMsg:
		m.available[msg.Provider] = msg.Available
		return m, nil

	case PullDoneMsg:
		cmd := m.sync()
		if msg.Err == nil {
			cmd = tea.Batch(cmd, ListModelsCmd(m.ctx, m.adapters, m.ctrl.Provider()))
		}
		return m, cmd

	case NotifyMsg:
		return m, tea.Batch(m.sync(), waitActivity(m.bridge))

	case SettingsMsg:
		return m.applySettings(msg)

	case DismissToastMsg:
		m.dismissToast(msg.ID)
		return m, nil

	case spinner.TickMsg:
		if !m.transcript.Typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	statusHeight = 1
	inputHeight  = 4 // three text rows plus the top border
	promptHeight = 1
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.layout()
	m.ready = true
	return m, nil
}

// layout sizes the viewport and input from the window size.
func (m *Model) layout() {
	side := m.theme.SidebarWidth()
	if side > 0 {
		side++ // border
	}
	mainWidth := m.width - side
	if mainWidth < 10 {
		mainWidth = 10
	}
	bodyHeight := m.height - headerHeight - statusHeight - inputHeight - promptHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.viewport.Width = mainWidth
	m.viewport.Height = bodyHeight
	m.input.SetWidth(mainWidth)
	m.promptLine.Width = mainWidth - 4
	m.renderer.SetWidth(mainWidth)
	m.refreshViewport()
}

// applySettings restyles the dashboard when the theme changed.
func (m Model) applySettings(msg SettingsMsg) (tea.Model, tea.Cmd) {
	next := waitSettings(m.settings)
	theme := styles.NewTheme(msg.Theme)
	if theme.Name == m.theme.Name && theme.IsDark == m.theme.IsDark {
		return m, next
	}
	theme.SetSize(m.width, m.height)
	m.theme = theme
	m.renderer = render.New(theme, m.viewport.Width)
	m.spinner.Style = theme.Typing
	m.layout()
	return m, tea.Batch(next, m.addToast(chat.Notification{Type: chat.NotifyInfo, Message: "Theme: " + theme.Name}))
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())

	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)

	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)

	case key.Matches(msg, m.keys.NextSession):
		return m.stepSession(1)

	case key.Matches(msg, m.keys.PrevSession):
		return m.stepSession(-1)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Suggestion):
		return m.useSuggestion(msg.String())

	case key.Matches(msg, m.keys.NewChat):
		return m.openPrompt(promptNewChat, model.DefaultSessionName)

	case key.Matches(msg, m.keys.Rename):
		return m.openPrompt(promptRename, m.transcript.SessionName)

	case key.Matches(msg, m.keys.Delete):
		return m.openPrompt(promptDelete, "")

	case key.Matches(msg, m.keys.Clear):
		if err := m.ctrl.ClearSession(); err != nil {
			logger.Log.Debugf("clear: %v", err)
		}
		return m, m.sync()

	case key.Matches(msg, m.keys.Regenerate):
		pd, ok := m.ctrl.BeginRegenerate()
		return m, m.afterBegin(pd, ok)

	case key.Matches(msg, m.keys.Attach):
		return m.openPrompt(promptAttach, "")

	case key.Matches(msg, m.keys.Export):
		return m.openPrompt(promptExport, "markdown")

	case key.Matches(msg, m.keys.NextModel):
		return m.cycleModel()

	case key.Matches(msg, m.keys.Pull):
		if !m.ctrl.Provider().IsLocal() {
			return m, m.addToast(chat.Notification{
				Type:    chat.NotifyWarning,
				Message: m.ctrl.Provider().DisplayName() + " does not support pulling models",
			})
		}
		return m.openPrompt(promptPull, "")
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends text as a user message. Sending while a reply is
// outstanding is refused.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.ctrl.State() == chat.StateAwaiting {
		return m, m.addToast(chat.Notification{Type: chat.NotifyInfo, Message: "Waiting for the current reply..."})
	}
	pd, ok := m.ctrl.BeginSend(text)
	if ok {
		m.input.Reset()
	}
	return m, m.afterBegin(pd, ok)
}

// afterBegin syncs the view and, when a send started, dispatches it.
func (m *Model) afterBegin(pd *chat.Pending, ok bool) tea.Cmd {
	cmd := m.sync()
	if !ok {
		return cmd
	}
	return tea.Batch(cmd, DispatchCmd(m.ctx, m.ctrl, pd), m.spinner.Tick)
}

func (m Model) useSuggestion(k string) (tea.Model, tea.Cmd) {
	if !m.transcript.Empty() {
		return m, nil
	}
	var n int
	if _, err := fmt.Sscanf(k, "alt+%d", &n); err != nil {
		return m, nil
	}
	if n < 1 || n > len(m.transcript.Suggestions) {
		return m, nil
	}
	return m.submit(m.transcript.Suggestions[n-1])
}

func (m Model) switchTab(step int) (tea.Model, tea.Cmd) {
	cur := m.ctrl.Provider()
	idx := 0
	for i, p := range m.providers {
		if p == cur {
			idx = i
			break
		}
	}
	n := len(m.providers)
	next := m.providers[((idx+step)%n+n)%n]
	return m.activate(next)
}

// activate shows provider p.
func (m Model) activate(p model.Provider) (tea.Model, tea.Cmd) {
	changed, err := m.switcher.Switch(m.ctx, p)
	if err != nil {
		return m, tea.Batch(m.sync(), m.addToast(chat.Notification{Type: chat.NotifyError, Message: "Error: " + err.Error()}))
	}
	cmd := m.sync()
	if !changed {
		return m, cmd
	}
	m.viewport.GotoBottom()
	return m, tea.Batch(cmd, m.probe(p))
}

func (m Model) stepSession(step int) (tea.Model, tea.Cmd) {
	if len(m.sessions) == 0 {
		return m, nil
	}
	idx := -1
	for i, s := range m.sessions {
		if s.ID == m.transcript.SessionID {
			idx = i
			break
		}
	}
	next := idx + step
	if next < 0 || next >= len(m.sessions) {
		return m, nil
	}
	if err := m.ctrl.SwitchSession(m.sessions[next].ID); err != nil {
		return m, tea.Batch(m.sync(), m.addToast(chat.Notification{Type: chat.NotifyError, Message: "Error: " + err.Error()}))
	}
	cmd := m.sync()
	m.viewport.GotoBottom()
	return m, cmd
}

// cycleModel selects the next model the active provider listed.
func (m Model) cycleModel() (tea.Model, tea.Cmd) {
	p := m.ctrl.Provider()
	models := m.models[p]
	if len(models) == 0 {
		return m, m.addToast(chat.Notification{Type: chat.NotifyWarning, Message: "No models available for " + p.DisplayName()})
	}
	cur := m.ctrl.SelectedModel(p)
	next := models[0]
	for i, name := range models {
		if name == cur {
			next = models[(i+1)%len(models)]
			break
		}
	}
	m.ctrl.SelectModel(p, next)
	return m, tea.Batch(m.sync(), m.addToast(chat.Notification{Type: chat.NotifyInfo, Message: "Model: " + next}))
}

// =============================================================================
// PROMPTS
// =============================================================================

func (m Model) openPrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.promptLine.Prompt = m.promptLabel()
	m.promptLine.SetValue(value)
	m.promptLine.CursorEnd()
	m.input.Blur()
	return m, m.promptLine.Focus()
}

func (m Model) promptLabel() string {
	switch m.prompt {
	case promptNewChat:
		return "New chat name: "
	case promptRename:
		return "Rename chat: "
	case promptDelete:
		return fmt.Sprintf("Delete %q? (y/N) ", m.transcript.SessionName)
	case promptAttach:
		return "Attach file: "
	case promptExport:
		return "Export format (markdown, json, yaml, html): "
	case promptPull:
		return "Pull model: "
	}
	return ""
}

func (m Model) closePrompt() Model {
	m.prompt = promptNone
	m.promptLine.Blur()
	m.promptLine.Reset()
	m.input.Focus()
	return m
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		return m.closePrompt(), nil
	case key.Matches(msg, m.keys.Submit):
		kind, value := m.prompt, strings.TrimSpace(m.promptLine.Value())
		m = m.closePrompt()
		return m.confirmPrompt(kind, value)
	}

	var cmd tea.Cmd
	m.promptLine, cmd = m.promptLine.Update(msg)
	return m, cmd
}

func (m Model) confirmPrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	fail := func(err error) (tea.Model, tea.Cmd) {
		return m, tea.Batch(m.sync(), m.addToast(chat.Notification{Type: chat.NotifyError, Message: "Error: " + err.Error()}))
	}

	switch kind {
	case promptNewChat:
		if err := m.ctrl.CreateSession(value); err != nil {
			return fail(err)
		}

	case promptRename:
		if _, err := m.ctrl.RenameSession(m.transcript.SessionID, value); err != nil {
			return fail(err)
		}

	case promptDelete:
		if !strings.EqualFold(value, "y") && !strings.EqualFold(value, "yes") {
			return m, nil
		}
		if _, err := m.ctrl.DeleteSession(m.transcript.SessionID); err != nil {
			return fail(err)
		}

	case promptAttach:
		if value == "" {
			return m, nil
		}
		out, err := m.ctrl.AttachFile(m.input.Value(), value)
		if err == nil {
			m.input.SetValue(out)
		}

	case promptExport:
		artifact, err := m.ctrl.ExportActive(value)
		if err != nil {
			return fail(err)
		}
		path, err := artifact.Save(m.exportDir)
		if err != nil {
			return fail(err)
		}
		return m, tea.Batch(m.sync(), m.addToast(chat.Notification{Type: chat.NotifySuccess, Message: "Exported to " + path}))

	case promptPull:
		if value == "" {
			return m, nil
		}
		return m, tea.Batch(m.sync(), PullModelCmd(m.ctx, m.ctrl, value))
	}
	return m, m.sync()
}
