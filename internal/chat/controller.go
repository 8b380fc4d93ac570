// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the session lifecycle.
type State int

const (
	// StateUninitialized means no provider has been bound yet.
	StateUninitialized State = iota
	// StateIdle means a session is loaded and nothing is outstanding.
	StateIdle
	// StateAwaiting means a reply for the active session is outstanding.
	StateAwaiting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotInitialized is returned by session operations before Initialize.
	ErrNotInitialized = errors.New("chat controller is not initialized")

	// ErrEmptyName is returned when renaming a session to blank text.
	ErrEmptyName = errors.New("session name cannot be empty")
)

// AdapterSource resolves the adapter for a provider. *provider.Registry
// satisfies it.
type AdapterSource interface {
	Get(p model.Provider) (provider.Adapter, error)
}

// =============================================================================
// PENDING / RESULT
// =============================================================================

// Pending identifies one outstanding send. Everything the adapter needs is
// captured when the send begins so Dispatch never reads controller state.
type Pending struct {
	Provider  model.Provider
	SessionID string
	Text      string
	Model     string

	// History is the session before Text was added.
	History []model.Message

	seq uint64
}

// Result is the outcome of dispatching a Pending.
type Result struct {
	Pending *Pending
	Reply   string
	Err     error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the active session for one UI. All methods are safe for
// concurrent use; Notifier and Renderer are always called without the
// controller lock held.
type Controller struct {
	adapters AdapterSource
	store    *history.Store
	notifier Notifier
	renderer Renderer
	newID    func() string
	now      func() time.Time

	mu        sync.Mutex
	provider  model.Provider
	state     State
	session   *model.ChatSession
	models    map[model.Provider]string
	pending   *Pending
	lastErr   string
	seq       uint64
	clearedAt map[string]uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRenderer sets the transcript sink.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithModels seeds the per-provider model selection.
func WithModels(models map[model.Provider]string) Option {
	return func(c *Controller) {
		for p, m := range models {
			if m != "" {
				c.models[p] = m
			}
		}
	}
}

// WithClock overrides the export clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an uninitialized controller.
func NewController(adapters AdapterSource, store *history.Store, opts ...Option) *Controller {
	c := &Controller{
		adapters:  adapters,
		store:     store,
		notifier:  NotifierFunc(func(Notification) {}),
		renderer:  RendererFunc(func(Transcript) {}),
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
		now:       time.Now,
		models:    make(map[model.Provider]string),
		clearedAt: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// SIDE EFFECTS
// =============================================================================

// effects collects notifications and the transcript to draw while the lock
// is held; flush delivers them after it is released.
type effects struct {
	notes      []Notification
	transcript *Transcript
}

func (fx *effects) notify(t NotificationType, format string, args ...any) {
	fx.notes = append(fx.notes, Notification{Type: t, Message: fmt.Sprintf(format, args...)})
}

func (c *Controller) renderLocked(fx *effects) {
	t := c.transcriptLocked()
	fx.transcript = &t
}

func (c *Controller) flush(fx *effects) {
	if fx.transcript != nil {
		c.renderer.Render(*fx.transcript)
	}
	for _, n := range fx.notes {
		c.notifier.Notify(n)
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Initialize binds the controller to p and loads its most recent session,
// creating "New Chat" when p has none. Any outstanding reply is left to
// complete into its own session.
func (c *Controller) Initialize(ctx context.Context, p model.Provider) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %s", model.ErrUnknownProvider, p)
	}

	var fx effects
	c.mu.Lock()
	c.provider = p
	c.resetLocked()
	if sess, ok := c.store.GetMostRecentSession(p); ok {
		c.session = sess.Clone()
	} else {
		c.quarantineLocked(p, &fx)
		c.createLocked(model.DefaultSessionName, &fx)
	}
	c.state = StateIdle
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	logger.Log.Debugf("chat initialized for %s", p)
	return nil
}

// quarantineLocked moves an unreadable history of p aside before a fresh
// session replaces it, and tells the user where the copy went.
func (c *Controller) quarantineLocked(p model.Provider, fx *effects) {
	backup, err := c.store.Quarantine(p)
	switch {
	case err != nil && backup == "":
		logger.ErrorWithFields("chat: quarantine history failed", logger.Fields{
			"provider": string(p),
			"error":    err.Error(),
		})
	case backup != "":
		fx.notify(NotifyWarning, "Chat history for %s could not be read. A copy was saved to %s",
			p.DisplayName(), backup)
	}
}

// resetLocked drops the working session and any in-flight marker.
func (c *Controller) resetLocked() {
	c.session = nil
	c.pending = nil
	c.lastErr = ""
	c.state = StateIdle
}

// createLocked makes a new session the active one. When the store cannot
// persist it the session still exists in memory and a warning is emitted.
func (c *Controller) createLocked(name string, fx *effects) {
	id, err := c.store.CreateSession(c.provider, name)
	if err == nil {
		if sess, ok := c.store.LoadSession(c.provider, id); ok {
			c.session = sess
			return
		}
	} else {
		id = c.newID()
		c.warnPersist(err, fx)
	}
	now := c.now().UTC().Truncate(time.Millisecond)
	c.session = &model.ChatSession{
		ID:       id,
		Name:     name,
		Messages: []model.Message{},
		Created:  now,
		Updated:  now,
	}
}

// persistLocked saves the working session. Failures leave the working copy
// as it is.
func (c *Controller) persistLocked(fx *effects) {
	name := c.session.Name
	err := c.store.SaveSession(c.provider, c.session.ID, history.SessionPatch{
		Name:     &name,
		Messages: model.CopyMessages(c.session.Messages),
	})
	if err != nil {
		c.warnPersist(err, fx)
	}
}

func (c *Controller) warnPersist(err error, fx *effects) {
	logger.Log.Warnf("persist %s history: %v", c.provider, err)
	fx.notify(NotifyWarning, "Chat history could not be saved: %v", err)
}

// =============================================================================
// SENDING
// =============================================================================

// BeginSend records text as a user message in the active session and
// returns the token to dispatch. Blank text is ignored and returns false.
func (c *Controller) BeginSend(text string) (*Pending, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	var fx effects
	c.mu.Lock()
	pd, ok := c.beginSendLocked(text, &fx)
	c.mu.Unlock()

	c.flush(&fx)
	return pd, ok
}

func (c *Controller) beginSendLocked(text string, fx *effects) (*Pending, bool) {
	if c.state == StateUninitialized {
		logger.Log.Debug("send before initialize ignored")
		return nil, false
	}
	if c.session == nil {
		c.createLocked(model.DefaultSessionName, fx)
	}

	prior := model.CopyMessages(c.session.Messages)
	c.session.Messages = append(c.session.Messages, model.NewUserMessage(text))
	c.persistLocked(fx)

	c.seq++
	pd := &Pending{
		Provider:  c.provider,
		SessionID: c.session.ID,
		Text:      text,
		Model:     c.selectedModelLocked(c.provider),
		History:   prior,
		seq:       c.seq,
	}
	c.pending = pd
	c.state = StateAwaiting
	c.lastErr = ""
	c.renderLocked(fx)
	return pd, true
}

// Dispatch sends pd to its provider's adapter. It does not touch controller
// state and may run on any goroutine.
func (c *Controller) Dispatch(ctx context.Context, pd *Pending) Result {
	res := Result{Pending: pd}
	if pd == nil {
		res.Err = errors.New("nothing to send")
		return res
	}
	adapter, err := c.adapters.Get(pd.Provider)
	if err != nil {
		res.Err = err
		return res
	}
	logger.DebugWithFields("dispatch", logger.Fields{
		"provider": pd.Provider,
		"session":  pd.SessionID,
		"model":    pd.Model,
		"history":  len(pd.History),
	})
	res.Reply, res.Err = adapter.Send(ctx, pd.Text, pd.Model, pd.History)
	return res
}

// Complete applies a Result. When the originating session is still active
// the reply (or the error) is shown; otherwise a reply is appended to that
// session's stored record and an error is dropped.
func (c *Controller) Complete(res Result) {
	pd := res.Pending
	if pd == nil {
		return
	}

	var fx effects
	c.mu.Lock()
	switch {
	case pd.seq <= c.clearedAt[sessionKey(pd.Provider, pd.SessionID)]:
		logger.Log.Debugf("dropping reply for cleared session %s/%s", pd.Provider, pd.SessionID)
	case c.isActiveLocked(pd):
		c.applyLocked(res, &fx)
	default:
		c.deliverLocked(res)
	}
	c.mu.Unlock()

	c.flush(&fx)
}

func (c *Controller) isActiveLocked(pd *Pending) bool {
	return c.state != StateUninitialized &&
		c.provider == pd.Provider &&
		c.session != nil &&
		c.session.ID == pd.SessionID
}

func (c *Controller) applyLocked(res Result, fx *effects) {
	if c.pending == res.Pending {
		c.pending = nil
		c.state = StateIdle
	}
	if res.Err != nil {
		c.lastErr = res.Err.Error()
		logger.ErrorWithFields("send failed", logger.Fields{
			"provider": res.Pending.Provider,
			"session":  res.Pending.SessionID,
			"error":    c.lastErr,
		})
		fx.notify(NotifyError, "Error: %s", c.lastErr)
	} else {
		c.lastErr = ""
		logger.InfoWithFields("reply received", logger.Fields{
			"provider": res.Pending.Provider,
			"session":  res.Pending.SessionID,
			"chars":    len(res.Reply),
		})
		c.session.Messages = append(c.session.Messages, model.NewAssistantMessage(res.Reply))
		c.persistLocked(fx)
	}
	c.renderLocked(fx)
}

// deliverLocked routes a late result to the session that issued it.
func (c *Controller) deliverLocked(res Result) {
	pd := res.Pending
	if res.Err != nil {
		logger.Log.Debugf("dropping failed reply for inactive session %s/%s: %v", pd.Provider, pd.SessionID, res.Err)
		return
	}
	err := c.store.AppendMessages(pd.Provider, pd.SessionID, model.NewAssistantMessage(res.Reply))
	switch {
	case errors.Is(err, history.ErrNotFound):
		logger.Log.Debugf("dropping reply for deleted session %s/%s", pd.Provider, pd.SessionID)
	case err != nil:
		logger.Log.Warnf("store reply for %s/%s: %v", pd.Provider, pd.SessionID, err)
	default:
		logger.Log.Debugf("stored reply for inactive session %s/%s", pd.Provider, pd.SessionID)
	}
}

// SendMessage runs a whole send synchronously and returns the adapter error,
// if any. Blank text is a no-op.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	pd, ok := c.BeginSend(text)
	if !ok {
		return nil
	}
	res := c.Dispatch(ctx, pd)
	c.Complete(res)
	return res.Err
}

// BeginRegenerate removes the last user and assistant pair and sends the
// user text again. It returns false when the last message is not a reply.
func (c *Controller) BeginRegenerate() (*Pending, bool) {
	var fx effects
	c.mu.Lock()
	var (
		pd *Pending
		ok bool
	)
	if c.canRegenerateLocked() {
		n := len(c.session.Messages)
		text := c.session.Messages[n-2].Content
		c.session.Messages = model.CopyMessages(c.session.Messages[:n-2])
		pd, ok = c.beginSendLocked(text, &fx)
	}
	c.mu.Unlock()

	c.flush(&fx)
	return pd, ok
}

// Regenerate is the synchronous form of BeginRegenerate.
func (c *Controller) Regenerate(ctx context.Context) error {
	pd, ok := c.BeginRegenerate()
	if !ok {
		return nil
	}
	res := c.Dispatch(ctx, pd)
	c.Complete(res)
	return res.Err
}

func (c *Controller) canRegenerateLocked() bool {
	if c.state != StateIdle || c.session == nil {
		return false
	}
	n := len(c.session.Messages)
	return n >= 2 && c.session.Messages[n-1].IsAssistant() && c.session.Messages[n-2].IsUser()
}

func sessionKey(p model.Provider, id string) string {
	return string(p) + "/" + id
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// SwitchSession makes id the active session.
func (c *Controller) SwitchSession(id string) error {
	var fx effects
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	sess, ok := c.store.LoadSession(c.provider, id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", history.ErrNotFound, id)
	}
	c.resetLocked()
	c.session = sess.Clone()
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// CreateSession creates and activates a new session. A blank name becomes
// "New Chat".
func (c *Controller) CreateSession(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = model.DefaultSessionName
	}

	var fx effects
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	c.resetLocked()
	c.createLocked(name, &fx)
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// ClearSession empties the active session. Replies still outstanding for
// it are discarded.
func (c *Controller) ClearSession() error {
	var fx effects
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	c.pending = nil
	c.lastErr = ""
	c.state = StateIdle
	if c.session != nil {
		c.clearedAt[sessionKey(c.provider, c.session.ID)] = c.seq
		c.session.Messages = []model.Message{}
		c.persistLocked(&fx)
	}
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// DeleteSession removes id and reports whether it existed. Deleting the
// active session starts a fresh "New Chat".
func (c *Controller) DeleteSession(id string) (bool, error) {
	var fx effects
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return false, ErrNotInitialized
	}
	ok, err := c.store.DeleteSession(c.provider, id)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	if c.session != nil && c.session.ID == id {
		c.resetLocked()
		c.createLocked(model.DefaultSessionName, &fx)
	}
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return ok, nil
}

// RenameSession renames id and reports whether it existed.
func (c *Controller) RenameSession(id, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}

	var fx effects
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return false, ErrNotInitialized
	}
	ok, err := c.store.RenameSession(c.provider, id, name)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	if c.session != nil && c.session.ID == id {
		c.session.Name = name
	}
	c.renderLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return ok, nil
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// SelectModel records the model to use for p. An empty name reverts to the
// adapter default.
func (c *Controller) SelectModel(p model.Provider, name string) {
	var fx effects
	c.mu.Lock()
	if name = strings.TrimSpace(name); name == "" {
		delete(c.models, p)
	} else {
		c.models[p] = name
	}
	if p == c.provider && c.state != StateUninitialized {
		c.renderLocked(&fx)
	}
	c.mu.Unlock()

	c.flush(&fx)
}

// SelectedModel returns the model that a send to p would use.
func (c *Controller) SelectedModel(p model.Provider) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedModelLocked(p)
}

func (c *Controller) selectedModelLocked(p model.Provider) string {
	if m := c.models[p]; m != "" {
		return m
	}
	if a, err := c.adapters.Get(p); err == nil {
		return a.DefaultModel()
	}
	return model.DefaultModel(p)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Provider returns the bound provider, empty before Initialize.
func (c *Controller) Provider() model.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the active session.
func (c *Controller) Session() (*model.ChatSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, false
	}
	return c.session.Clone(), true
}

// Sessions lists the bound provider's sessions, most recent first.
func (c *Controller) Sessions() []*model.ChatSession {
	c.mu.Lock()
	p := c.provider
	c.mu.Unlock()
	if p == "" {
		return nil
	}
	return c.store.ListSessions(p)
}

// Transcript returns what the renderer would currently draw.
func (c *Controller) Transcript() Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcriptLocked()
}

func (c *Controller) transcriptLocked() Transcript {
	t := Transcript{
		Provider:      c.provider,
		Model:         c.selectedModelLocked(c.provider),
		Typing:        c.state == StateAwaiting && c.pending != nil,
		Error:         c.lastErr,
		CanRegenerate: c.canRegenerateLocked(),
	}
	if c.session != nil {
		t.SessionID = c.session.ID
		t.SessionName = c.session.Name
		t.Messages = model.CopyMessages(c.session.Messages)
	}
	if len(t.Messages) == 0 {
		t.Suggestions = SuggestionPrompts()
	}
	return t
}

// SuggestionPrompts returns the welcome placeholder suggestions.
func (c *Controller) SuggestionPrompts() []string {
	return SuggestionPrompts()
}
