// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// ExportHistory serialises p's whole collection as indented JSON in the
// persisted layout.
func (s *Store) ExportHistory(p model.Provider) (string, error) {
	data, err := encodeCollection(s.GetHistory(p), true)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportError describes why an import payload was rejected.
type ImportError struct {
	SessionID string
	Reason    string
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	if e.SessionID == "" {
		return "invalid history: " + e.Reason
	}
	return fmt.Sprintf("invalid history entry %q: %s", e.SessionID, e.Reason)
}

// ImportHistory replaces p's collection with the sessions in text. Every
// entry must carry a string name and a messages array of {role, content}
// objects; missing or unparsable created/updated values are set to now.
// Nothing is written unless the whole payload validates.
func (s *Store) ImportHistory(p model.Provider, text string) (bool, error) {
	c, err := s.parseImport(text)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(p, c); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) parseImport(text string) (Collection, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &ImportError{Reason: err.Error()}
	}
	if raw == nil {
		return nil, &ImportError{Reason: "expected a JSON object"}
	}

	now := s.timestamp()
	c := make(Collection, len(raw))
	for id, v := range raw {
		if id == "" {
			return nil, &ImportError{Reason: "empty session id"}
		}
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, &ImportError{SessionID: id, Reason: "entry is not an object"}
		}

		name, ok := entry["name"].(string)
		if !ok {
			return nil, &ImportError{SessionID: id, Reason: "missing name"}
		}
		rawMsgs, ok := entry["messages"].([]any)
		if !ok {
			return nil, &ImportError{SessionID: id, Reason: "missing messages"}
		}

		msgs := make([]model.Message, 0, len(rawMsgs))
		for i, rm := range rawMsgs {
			m, ok := rm.(map[string]any)
			if !ok {
				return nil, &ImportError{SessionID: id, Reason: fmt.Sprintf("message %d is not an object", i)}
			}
			role, _ := m["role"].(string)
			if !model.Role(role).Valid() {
				return nil, &ImportError{SessionID: id, Reason: fmt.Sprintf("message %d has invalid role %q", i, role)}
			}
			content, ok := m["content"].(string)
			if !ok {
				return nil, &ImportError{SessionID: id, Reason: fmt.Sprintf("message %d has no content", i)}
			}
			msgs = append(msgs, model.Message{Role: model.Role(role), Content: content})
		}

		sess := &model.ChatSession{
			ID:       id,
			Name:     name,
			Messages: msgs,
			Created:  importTime(entry["created"], now),
			Updated:  importTime(entry["updated"], now),
		}
		if sess.Updated.Before(sess.Created) {
			sess.Updated = sess.Created
		}
		c[id] = sess
	}
	return c, nil
}

func importTime(v any, fallback time.Time) time.Time {
	str, ok := v.(string)
	if !ok {
		return fallback
	}
	t, err := model.ParseTime(str)
	if err != nil {
		return fallback
	}
	return t
}
