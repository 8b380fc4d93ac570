// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ReplyMsg carries a finished adapter call back to the event loop.
type ReplyMsg struct {
	Result chat.Result
}

// ModelsMsg delivers the model list of a provider.
type ModelsMsg struct {
	Provider model.Provider
	Models   []string
	Err      error
}

// StatusMsg reports whether a provider answered its availability probe.
type StatusMsg struct {
	Provider  model.Provider
	Available bool
}

// PullDoneMsg signals the end of a model pull. Progress arrives as
// notifications.
type PullDoneMsg struct {
	Model string
	Err   error
}

// NotifyMsg asks the event loop to collect pending notifications.
type NotifyMsg struct{}

// SettingsMsg carries reloaded display settings.
type SettingsMsg struct {
	Theme string
}

// DismissToastMsg removes a toast once its time is up.
type DismissToastMsg struct {
	ID int
}

// =============================================================================
// COMMANDS
// =============================================================================

const (
	toastDuration = 3 * time.Second
	probeTimeout  = 5 * time.Second
	listTimeout   = 10 * time.Second
	pullTimeout   = 30 * time.Minute
)

// DispatchCmd sends pd on a command goroutine.
func DispatchCmd(ctx context.Context, ctrl *chat.Controller, pd *chat.Pending) tea.Cmd {
	return func() tea.Msg {
		return ReplyMsg{Result: ctrl.Dispatch(ctx, pd)}
	}
}

// ListModelsCmd fetches the models p offers.
func ListModelsCmd(ctx context.Context, adapters chat.AdapterSource, p model.Provider) tea.Cmd {
	return func() tea.Msg {
		a, err := adapters.Get(p)
		if err != nil {
			return ModelsMsg{Provider: p, Err: err}
		}

		ctx, cancel := context.WithTimeout(ctx, listTimeout)
		defer cancel()

		models, err := a.ListModels(ctx)
		return ModelsMsg{Provider: p, Models: models, Err: err}
	}
}

// CheckProviderCmd probes p.
func CheckProviderCmd(ctx context.Context, adapters chat.AdapterSource, p model.Provider) tea.Cmd {
	return func() tea.Msg {
		a, err := adapters.Get(p)
		if err != nil {
			return StatusMsg{Provider: p}
		}

		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		return StatusMsg{Provider: p, Available: a.IsAvailable(ctx)}
	}
}

// PullModelCmd downloads name through the controller's provider.
func PullModelCmd(ctx context.Context, ctrl *chat.Controller, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, pullTimeout)
		defer cancel()

		return PullDoneMsg{Model: name, Err: ctrl.PullModel(ctx, name)}
	}
}

// waitSettings delivers the next settings change. A closed channel ends
// the listener.
func waitSettings(ch <-chan SettingsMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func dismissToastCmd(id int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return DismissToastMsg{ID: id}
	})
}
