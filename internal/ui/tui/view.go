// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
	"github.com/CaptainASIC/FusionLoom/internal/util"
)

// View renders the dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Loading FusionLoom..."
	}

	body := m.viewport.View()
	if side := m.renderSidebar(); side != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderPromptLine(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatus(),
	)
}

// renderHeader draws the brand and one tab per provider.
func (m Model) renderHeader() string {
	parts := []string{m.theme.HeaderBrand.Render("FusionLoom")}
	for _, p := range m.providers {
		label := p.DisplayName()
		if up, known := m.available[p]; known && !up {
			label += " " + styles.StatusIndicators.Warning
		}
		if m.panels.isVisible(p) {
			parts = append(parts, m.theme.TabActive.Render(label))
		} else {
			parts = append(parts, m.theme.TabInactive.Render(label))
		}
	}
	row := strings.Join(parts, m.theme.TabGap.Render(" "))
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(row)
}

// renderSidebar lists the provider's sessions, most recent first.
func (m Model) renderSidebar() string {
	width := m.theme.SidebarWidth()
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Chats"))
	sb.WriteString("\n")
	for _, s := range m.sessions {
		count := fmt.Sprintf(" %d", len(s.Messages))
		name := util.TruncateWidth(s.Name, width-util.StringWidth(count)-2)
		line := name + m.theme.SessionMeta.Render(count)
		if s.ID == m.transcript.SessionID {
			line = m.theme.SessionSelected.Width(width - 1).Render(name + count)
		} else {
			line = m.theme.SessionItem.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(width).
		Height(m.viewport.Height).
		MaxHeight(m.viewport.Height).
		Render(strings.TrimRight(sb.String(), "\n"))
}

// renderPromptLine shows the open prompt or the newest toasts.
func (m Model) renderPromptLine() string {
	if m.prompt != promptNone {
		return m.promptLine.View()
	}
	if m.transcript.Typing {
		return m.spinner.View() + " " + m.theme.Typing.Render("waiting for "+m.transcript.Provider.DisplayName())
	}

	toasts := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		toasts = append(toasts, m.toastStyle(t.note.Type).Render(util.TruncateWidth(t.note.Message, 60)))
	}
	line := strings.Join(toasts, " ")
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, line)
}

func (m Model) toastStyle(t chat.NotificationType) lipgloss.Style {
	switch t {
	case chat.NotifySuccess:
		return m.theme.NotifySuccess
	case chat.NotifyWarning:
		return m.theme.NotifyWarning
	case chat.NotifyError:
		return m.theme.NotifyError
	default:
		return m.theme.NotifyInfo
	}
}

// renderStatus shows provider, model, state and key help.
func (m Model) renderStatus() string {
	p := m.ctrl.Provider()
	mode := m.theme.ModeCloud.Render("cloud")
	if p.IsLocal() {
		mode = m.theme.ModeLocal.Render("local")
	}
	left := fmt.Sprintf("%s %s | %s | %s", mode, p.DisplayName(), m.ctrl.SelectedModel(p), m.ctrl.State())

	m.help.Width = m.width - lipgloss.Width(left) - 4
	right := m.help.View(m.keys)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(statusHeight).
		Render(left + strings.Repeat(" ", gap) + right)
}
