// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Chat"

// TimeLayout is the ISO-8601 form timestamps are persisted in.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses an ISO-8601 / RFC 3339 timestamp with optional
// fractional seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession is one named conversation within a provider namespace.
// ID is the key of the session in its provider's collection and is not part
// of the stored value.
type ChatSession struct {
	ID       string
	Name     string
	Messages []Message
	Created  time.Time
	Updated  time.Time
}

// LastActivity returns Updated, or Created when the session was never saved.
func (s *ChatSession) LastActivity() time.Time {
	if s.Updated.IsZero() {
		return s.Created
	}
	return s.Updated
}

// MessageCount returns the number of messages.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}

// LastMessage returns the final message, if any.
func (s *ChatSession) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy; callers may mutate it freely.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = CopyMessages(s.Messages)
	return &c
}

type sessionJSON struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
	Created  string    `json:"created,omitempty"`
	Updated  string    `json:"updated,omitempty"`
}

// MarshalJSON writes the persisted record shape:
// {name, messages, created, updated}.
func (s ChatSession) MarshalJSON() ([]byte, error) {
	rec := sessionJSON{
		Name:     s.Name,
		Messages: CopyMessages(s.Messages),
	}
	if !s.Created.IsZero() {
		rec.Created = FormatTime(s.Created)
	}
	if !s.Updated.IsZero() {
		rec.Updated = FormatTime(s.Updated)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads the persisted record shape. Absent or unparsable
// timestamps stay zero so one bad field cannot fail a whole collection.
func (s *ChatSession) UnmarshalJSON(data []byte) error {
	var rec struct {
		Name     string    `json:"name"`
		Messages []Message `json:"messages"`
		Created  any       `json:"created"`
		Updated  any       `json:"updated"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	s.Name = rec.Name
	s.Messages = CopyMessages(rec.Messages)
	s.Created = lenientTime(rec.Created)
	s.Updated = lenientTime(rec.Updated)
	return nil
}

func lenientTime(v any) time.Time {
	str, ok := v.(string)
	if !ok || str == "" {
		return time.Time{}
	}
	t, err := ParseTime(str)
	if err != nil {
		return time.Time{}
	}
	return t
}
