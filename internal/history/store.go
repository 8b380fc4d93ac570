// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
)

// Collection maps session id to session for one provider.
type Collection map[string]*model.ChatSession

// Key returns the storage key for a provider's collection.
func Key(p model.Provider) string {
	return "fusionloom_" + string(p) + "_chat_history"
}

// corruptKey is where an undecodable collection is copied before it is
// replaced by a write. Later backups get a numeric suffix.
func corruptKey(p model.Provider, n int) string {
	if n == 0 {
		return Key(p) + ".corrupt"
	}
	return fmt.Sprintf("%s.corrupt.%d", Key(p), n)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrWrite wraps every failed persist.
	ErrWrite = errors.New("failed to write chat history")

	// ErrInvalidID is returned when an operation is given an empty session id.
	ErrInvalidID = errors.New("invalid session id")

	// ErrNotFound is returned by lookups that require an existing session.
	ErrNotFound = errors.New("session not found")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the chat history store. It is safe for concurrent use; each
// operation is an atomic read-modify-write of one provider's collection.
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id allocation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a store on top of backend.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   newSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newSessionID returns a time-ordered UUIDv7.
func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// timestamp returns now at the precision timestamps are persisted with, so
// in-memory values compare equal after a round trip.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// GetHistory returns every session of p. It never fails: a missing or
// undecodable collection yields an empty map and the decode failure is
// logged.
func (s *Store) GetHistory(p model.Provider) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.read(p)
	return c
}

// LoadSession returns a copy of the session, or false when it does not exist.
func (s *Store) LoadSession(p model.Provider, id string) (*model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.read(p)
	sess, ok := c[id]
	if !ok {
		return nil, false
	}
	return sess, true
}

// ListSessions returns all sessions of p, most recently active first. Ties
// are ordered by id.
func (s *Store) ListSessions(p model.Provider) []*model.ChatSession {
	return sortByActivity(s.GetHistory(p))
}

// GetSessionCount returns the number of sessions of p.
func (s *Store) GetSessionCount(p model.Provider) int {
	return len(s.GetHistory(p))
}

// GetMessageCount returns the total number of messages across p's sessions.
func (s *Store) GetMessageCount(p model.Provider) int {
	total := 0
	for _, sess := range s.GetHistory(p) {
		total += len(sess.Messages)
	}
	return total
}

// GetMostRecentSession returns the session with the latest LastActivity.
// Equal timestamps resolve to the smallest id.
func (s *Store) GetMostRecentSession(p model.Provider) (*model.ChatSession, bool) {
	sorted := s.ListSessions(p)
	if len(sorted) == 0 {
		return nil, false
	}
	return sorted[0], true
}

// Quarantine moves an undecodable collection of p to a backup key and
// clears the live key. It returns the backup key, or "" when the stored
// collection is missing or readable. The payload stays in place when the
// backup cannot be written.
func (s *Store) Quarantine(p model.Provider) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.backend.Get(Key(p))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if !ok || raw == "" {
		return "", nil
	}
	_, derr := decodeCollection([]byte(raw))
	if derr == nil {
		return "", nil
	}
	key, err := s.backup(p, raw, derr)
	if err != nil {
		return "", err
	}
	if err := s.backend.Remove(Key(p)); err != nil {
		return key, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return key, nil
}

// Stats summarises one provider's history.
type Stats struct {
	Provider   model.Provider
	Sessions   int
	Messages   int
	MostRecent *model.ChatSession
}

// Stats returns counts and the most recent session of p in one read.
func (s *Store) Stats(p model.Provider) Stats {
	c := s.GetHistory(p)
	st := Stats{Provider: p, Sessions: len(c)}
	for _, sess := range c {
		st.Messages += len(sess.Messages)
	}
	if sorted := sortByActivity(c); len(sorted) > 0 {
		st.MostRecent = sorted[0]
	}
	return st
}

// Sorted returns the sessions most recently active first, ties by id.
func (c Collection) Sorted() []*model.ChatSession {
	return sortByActivity(c)
}

func sortByActivity(c Collection) []*model.ChatSession {
	out := make([]*model.ChatSession, 0, len(c))
	for _, sess := range c {
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].LastActivity(), out[j].LastActivity()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// CreateSession inserts an empty session and returns its id. An empty name
// becomes model.DefaultSessionName.
func (s *Store) CreateSession(p model.Provider, name string) (string, error) {
	if name == "" {
		name = model.DefaultSessionName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readForWrite(p)
	if err != nil {
		return "", err
	}

	id := s.newID()
	for c[id] != nil {
		id = s.newID()
	}
	now := s.timestamp()
	c[id] = &model.ChatSession{
		ID:       id,
		Name:     name,
		Messages: []model.Message{},
		Created:  now,
		Updated:  now,
	}

	if err := s.write(p, c); err != nil {
		return "", err
	}
	return id, nil
}

// SessionPatch is the partial data SaveSession merges. Nil fields are left
// unchanged.
type SessionPatch struct {
	Name     *string
	Messages []model.Message
}

// SaveSession merges patch into the session, creating it when absent, and
// refreshes its updated time.
func (s *Store) SaveSession(p model.Provider, id string, patch SessionPatch) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readForWrite(p)
	if err != nil {
		return err
	}

	now := s.timestamp()
	sess, ok := c[id]
	if !ok {
		sess = &model.ChatSession{
			ID:       id,
			Name:     model.DefaultSessionName,
			Messages: []model.Message{},
			Created:  now,
		}
		c[id] = sess
	}
	if patch.Name != nil {
		sess.Name = *patch.Name
	}
	if patch.Messages != nil {
		sess.Messages = model.CopyMessages(patch.Messages)
	}
	touch(sess, now)

	return s.write(p, c)
}

// AppendMessages adds msgs to the end of an existing session. It is used to
// deliver replies to sessions that are no longer on screen.
func (s *Store) AppendMessages(p model.Provider, id string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readForWrite(p)
	if err != nil {
		return err
	}
	sess, ok := c[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess.Messages = append(sess.Messages, msgs...)
	touch(sess, s.timestamp())
	return s.write(p, c)
}

// DeleteSession removes the session and reports whether it existed. The
// collection is only rewritten when something was removed.
func (s *Store) DeleteSession(p model.Provider, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readForWrite(p)
	if err != nil {
		return false, err
	}
	if _, ok := c[id]; !ok {
		return false, nil
	}
	delete(c, id)
	if err := s.write(p, c); err != nil {
		return false, err
	}
	return true, nil
}

// RenameSession changes the session name and reports whether it existed.
func (s *Store) RenameSession(p model.Provider, id, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readForWrite(p)
	if err != nil {
		return false, err
	}
	sess, ok := c[id]
	if !ok {
		return false, nil
	}
	sess.Name = name
	touch(sess, s.timestamp())
	if err := s.write(p, c); err != nil {
		return false, err
	}
	return true, nil
}

// ClearHistory replaces p's collection with an empty one.
func (s *Store) ClearHistory(p model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(p, Collection{})
}

// touch sets updated to now, never earlier than created.
func touch(sess *model.ChatSession, now time.Time) {
	if sess.Created.IsZero() {
		sess.Created = now
	}
	if now.Before(sess.Created) {
		now = sess.Created
	}
	sess.Updated = now
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// read loads and decodes p's collection. Missing collections are empty.
// A decode failure is logged and returned alongside an empty collection.
func (s *Store) read(p model.Provider) (Collection, error) {
	raw, ok, err := s.backend.Get(Key(p))
	if err != nil {
		logger.Log.Warnf("history: read %s: %v", Key(p), err)
		return Collection{}, err
	}
	if !ok || raw == "" {
		return Collection{}, nil
	}
	c, err := decodeCollection([]byte(raw))
	if err != nil {
		logger.Log.Errorf("history: %s holds unreadable data: %v", Key(p), err)
		return Collection{}, err
	}
	return c, nil
}

// readForWrite is read for mutating operations. Backend read failures abort
// the write. An undecodable payload is copied to a side key first so the
// rewrite cannot destroy it.
func (s *Store) readForWrite(p model.Provider) (Collection, error) {
	raw, ok, err := s.backend.Get(Key(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if !ok || raw == "" {
		return Collection{}, nil
	}
	c, err := decodeCollection([]byte(raw))
	if err == nil {
		return c, nil
	}
	if _, berr := s.backup(p, raw, err); berr != nil {
		return nil, berr
	}
	return Collection{}, nil
}

// backup copies raw to the first free corrupt key and returns that key.
// Existing backups are never overwritten.
func (s *Store) backup(p model.Provider, raw string, cause error) (string, error) {
	var key string
	for n := 0; ; n++ {
		key = corruptKey(p, n)
		_, taken, err := s.backend.Get(key)
		if err != nil {
			return "", fmt.Errorf("%w: back up unreadable history: %w", ErrWrite, err)
		}
		if !taken {
			break
		}
	}
	if err := s.backend.Set(key, raw); err != nil {
		return "", fmt.Errorf("%w: back up unreadable history: %w", ErrWrite, err)
	}
	logger.WarnWithFields("history: unreadable collection moved aside", logger.Fields{
		"key":    Key(p),
		"backup": key,
		"error":  cause.Error(),
	})
	return key, nil
}

func (s *Store) write(p model.Provider, c Collection) error {
	data, err := encodeCollection(c, false)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := s.backend.Set(Key(p), string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func decodeCollection(data []byte) (Collection, error) {
	var raw map[string]*model.ChatSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	c := make(Collection, len(raw))
	for id, sess := range raw {
		if sess == nil {
			continue
		}
		sess.ID = id
		if sess.Created.IsZero() {
			sess.Created = sess.Updated
		}
		c[id] = sess
	}
	return c, nil
}

func encodeCollection(c Collection, indent bool) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	if indent {
		return json.MarshalIndent(c, "", "  ")
	}
	return json.Marshal(c)
}
