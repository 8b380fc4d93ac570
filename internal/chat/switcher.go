// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// PanelView shows and hides the per-provider panels of a UI.
type PanelView interface {
	Show(p model.Provider)
	Hide(p model.Provider)
}

type noPanels struct{}

func (noPanels) Show(model.Provider) {}
func (noPanels) Hide(model.Provider) {}

// Switcher tracks the one visible provider.
type Switcher struct {
	mu     sync.Mutex
	active model.Provider
	ctrl   *Controller
	panels PanelView
}

// NewSwitcher creates a switcher with no active provider. panels may be nil.
func NewSwitcher(ctrl *Controller, panels PanelView) *Switcher {
	if panels == nil {
		panels = noPanels{}
	}
	return &Switcher{ctrl: ctrl, panels: panels}
}

// Switch makes p the active provider and initializes the controller for
// it. Switching to the active provider does nothing and returns false.
func (s *Switcher) Switch(ctx context.Context, p model.Provider) (bool, error) {
	if !p.Valid() {
		return false, fmt.Errorf("%w: %s", model.ErrUnknownProvider, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == p {
		return false, nil
	}
	if err := s.ctrl.Initialize(ctx, p); err != nil {
		return false, err
	}
	if s.active != "" {
		s.panels.Hide(s.active)
	}
	s.panels.Show(p)
	logger.Log.Debugf("provider switched %q -> %q", s.active, p)
	s.active = p
	return true, nil
}

// Active returns the active provider, false before the first switch.
func (s *Switcher) Active() (model.Provider, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}
