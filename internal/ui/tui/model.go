// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/render"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
)

// =============================================================================
// BRIDGE
// =============================================================================

// bridge collects controller callbacks until the event loop picks them up.
// Callbacks may fire on command goroutines, so everything is guarded and a
// wake signal tells the loop to look.
type bridge struct {
	mu         sync.Mutex
	transcript *chat.Transcript
	notes      []chat.Notification
	wake       chan struct{}
}

func newBridge() *bridge {
	return &bridge{wake: make(chan struct{}, 1)}
}

// Render implements chat.Renderer.
func (b *bridge) Render(t chat.Transcript) {
	b.mu.Lock()
	b.transcript = &t
	b.mu.Unlock()
	b.signal()
}

// Notify implements chat.Notifier.
func (b *bridge) Notify(n chat.Notification) {
	b.mu.Lock()
	b.notes = append(b.notes, n)
	b.mu.Unlock()
	b.signal()
}

func (b *bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *bridge) drain() (*chat.Transcript, []chat.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, notes := b.transcript, b.notes
	b.transcript, b.notes = nil, nil
	return t, notes
}

// waitActivity blocks until the bridge has something for the loop.
func waitActivity(b *bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.wake
		return NotifyMsg{}
	}
}

// panels records which provider tabs are visible. The switcher drives it.
type panels struct {
	mu      sync.Mutex
	visible map[model.Provider]bool
}

func (p *panels) Show(pr model.Provider) {
	p.mu.Lock()
	p.visible[pr] = true
	p.mu.Unlock()
}

func (p *panels) Hide(pr model.Provider) {
	p.mu.Lock()
	delete(p.visible, pr)
	p.mu.Unlock()
}

func (p *panels) isVisible(pr model.Provider) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[pr]
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures a dashboard.
type Options struct {
	Adapters chat.AdapterSource
	Store    *history.Store
	Theme    *styles.Theme

	// Start is the provider opened first, ollama when empty.
	Start model.Provider

	// Models preselects a model per provider.
	Models map[model.Provider]string

	// ExportDir is where ctrl+s writes files, the working directory when empty.
	ExportDir string

	// Settings, when set, streams configuration reloads into the dashboard.
	Settings <-chan SettingsMsg
}

type promptKind int

const (
	promptNone promptKind = iota
	promptNewChat
	promptRename
	promptDelete
	promptAttach
	promptExport
	promptPull
)

type toast struct {
	id   int
	note chat.Notification
}

const maxToasts = 3

// Model is the dashboard state.
type Model struct {
	ctx      context.Context
	adapters chat.AdapterSource
	ctrl     *chat.Controller
	switcher *chat.Switcher
	bridge   *bridge
	panels   *panels
	renderer *render.Renderer
	theme    *styles.Theme
	keys     KeyMap

	providers  []model.Provider
	exportDir  string
	settings   <-chan SettingsMsg
	transcript chat.Transcript
	sessions   []*model.ChatSession
	models     map[model.Provider][]string
	available  map[model.Provider]bool

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	prompt     promptKind
	promptLine textinput.Model

	toasts    []toast
	nextToast int

	width   int
	height  int
	ready   bool
	startup tea.Cmd
}

// New builds the dashboard and opens the start provider.
func New(ctx context.Context, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	start := opts.Start
	if !start.Valid() {
		start = model.ProviderOllama
	}

	b := newBridge()
	pn := &panels{visible: make(map[model.Provider]bool)}
	ctrl := chat.NewController(opts.Adapters, opts.Store,
		chat.WithNotifier(b),
		chat.WithRenderer(b),
		chat.WithModels(opts.Models),
	)

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Typing

	pl := textinput.New()
	pl.CharLimit = 256

	m := Model{
		ctx:        ctx,
		adapters:   opts.Adapters,
		ctrl:       ctrl,
		switcher:   chat.NewSwitcher(ctrl, pn),
		bridge:     b,
		panels:     pn,
		renderer:   render.New(theme, 80),
		theme:      theme,
		keys:       DefaultKeyMap(),
		providers:  model.AllProviders(),
		exportDir:  opts.ExportDir,
		settings:   opts.Settings,
		models:     make(map[model.Provider][]string),
		available:  make(map[model.Provider]bool),
		viewport:   viewport.New(80, 20),
		input:      ta,
		spinner:    sp,
		help:       help.New(),
		promptLine: pl,
	}
	var cmds []tea.Cmd
	if _, err := m.switcher.Switch(ctx, start); err != nil {
		cmds = append(cmds, m.addToast(chat.Notification{Type: chat.NotifyError, Message: "Error: " + err.Error()}))
	}
	m.startup = tea.Batch(append(cmds, m.sync())...)
	return m
}

// Controller exposes the session controller.
func (m Model) Controller() *chat.Controller {
	return m.ctrl
}

// Init starts the background listeners and the first provider probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startup,
		textarea.Blink,
		waitActivity(m.bridge),
		waitSettings(m.settings),
		m.probe(m.ctrl.Provider()),
	)
}

// probe checks p and loads its models.
func (m Model) probe(p model.Provider) tea.Cmd {
	return tea.Batch(
		CheckProviderCmd(m.ctx, m.adapters, p),
		ListModelsCmd(m.ctx, m.adapters, p),
	)
}

// sync pulls controller output into the model and schedules toast expiry.
func (m *Model) sync() tea.Cmd {
	t, notes := m.bridge.drain()
	if t != nil {
		m.transcript = *t
	}
	m.sessions = m.ctrl.Sessions()
	m.refreshViewport()

	var cmds []tea.Cmd
	for _, n := range notes {
		cmds = append(cmds, m.addToast(n))
	}
	return tea.Batch(cmds...)
}

func (m *Model) addToast(n chat.Notification) tea.Cmd {
	m.nextToast++
	m.toasts = append(m.toasts, toast{id: m.nextToast, note: n})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return dismissToastCmd(m.nextToast)
}

func (m *Model) dismissToast(id int) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderer.Transcript(m.transcript))
	if atBottom || m.transcript.Typing {
		m.viewport.GotoBottom()
	}
}

// Run starts the dashboard in the alternate screen and blocks until quit.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
