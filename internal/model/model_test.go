// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// PROVIDER TESTS
// =============================================================================

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"ollama", ProviderOllama, false},
		{"Claude", ProviderClaude, false},
		{" chatgpt ", ProviderChatGPT, false},
		{"GEMINI", ProviderGemini, false},
		{"openai", "", true},
		{"local-services", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProvider(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownProvider) {
				t.Errorf("ParseProvider(%q) err = %v, want ErrUnknownProvider", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseProvider(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestAllProviders_HaveDefaults(t *testing.T) {
	for _, p := range AllProviders() {
		if DefaultModel(p) == "" {
			t.Errorf("provider %s has no default model", p)
		}
		if p.DisplayName() == string(p) {
			t.Errorf("provider %s has no display name", p)
		}
	}
	if !ProviderOllama.IsLocal() || ProviderClaude.IsLocal() {
		t.Error("only ollama is local")
	}
}

func TestCatalog_DefaultsAreListed(t *testing.T) {
	for _, p := range []Provider{ProviderClaude, ProviderChatGPT, ProviderGemini} {
		found := false
		for _, id := range ModelIDs(p) {
			if id == DefaultModel(p) {
				found = true
			}
		}
		if !found {
			t.Errorf("default model for %s not in catalog", p)
		}
	}
}

func TestGetModelInfo(t *testing.T) {
	info, ok := GetModelInfo("gpt-4o")
	if !ok || info.Provider != ProviderChatGPT {
		t.Errorf("GetModelInfo(gpt-4o) = %+v, %v", info, ok)
	}
	info, ok = GetModelInfo("haiku")
	if !ok || info.ID != "claude-3-haiku-20240307" {
		t.Errorf("partial lookup = %+v, %v", info, ok)
	}
	if _, ok := GetModelInfo("nonexistent-model"); ok {
		t.Error("expected lookup miss")
	}
	if got := info.ContextString(); got != "200K tokens" {
		t.Errorf("ContextString = %q", got)
	}
}

// =============================================================================
// ROLE / MESSAGE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("user label = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("assistant label = %q", RoleAssistant.DisplayName())
	}
	if Role("error").Valid() {
		t.Error("error is not a persistable role")
	}
}

func TestCopyMessages_DoesNotAlias(t *testing.T) {
	src := []Message{NewUserMessage("a")}
	dst := CopyMessages(src)
	dst[0].Content = "changed"
	if src[0].Content != "a" {
		t.Error("copy aliases source")
	}
	if CopyMessages(nil) == nil {
		t.Error("nil input should yield empty slice")
	}
}

// =============================================================================
// CHAT SESSION TESTS
// =============================================================================

func TestChatSession_JSONShape(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := ChatSession{
		ID:       "abc",
		Name:     "Trip Planning",
		Messages: []Message{NewUserMessage("Hello")},
		Created:  created,
		Updated:  created.Add(1500 * time.Millisecond),
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		`"name":"Trip Planning"`,
		`"messages":[{"role":"user","content":"Hello"}]`,
		`"created":"2024-05-01T10:00:00.000Z"`,
		`"updated":"2024-05-01T10:00:01.500Z"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s missing %s", got, want)
		}
	}
	if strings.Contains(got, "abc") {
		t.Error("id must not be part of the stored value")
	}

	var back ChatSession
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Created.Equal(s.Created) || !back.Updated.Equal(s.Updated) {
		t.Errorf("timestamps changed: %v %v", back.Created, back.Updated)
	}
}

func TestChatSession_EmptyMessagesSerialiseAsArray(t *testing.T) {
	data, err := json.Marshal(ChatSession{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"messages":[]`) {
		t.Errorf("got %s", data)
	}
	if strings.Contains(string(data), "updated") {
		t.Errorf("zero updated should be omitted: %s", data)
	}
}

func TestChatSession_LastActivityFallsBackToCreated(t *testing.T) {
	created := time.Now()
	s := &ChatSession{Created: created}
	if !s.LastActivity().Equal(created) {
		t.Error("expected created fallback")
	}
	s.Updated = created.Add(time.Minute)
	if !s.LastActivity().Equal(s.Updated) {
		t.Error("expected updated")
	}
}

func TestChatSession_Clone(t *testing.T) {
	s := &ChatSession{Name: "a", Messages: []Message{NewUserMessage("x")}}
	c := s.Clone()
	c.Messages = append(c.Messages, NewAssistantMessage("y"))
	c.Messages[0].Content = "z"
	if len(s.Messages) != 1 || s.Messages[0].Content != "x" {
		t.Error("clone shares state with original")
	}
}

func TestParseTime_AcceptsBrowserTimestamps(t *testing.T) {
	for _, in := range []string{"2024-05-01T10:00:00.000Z", "2024-05-01T10:00:00Z", "2024-05-01T12:00:00+02:00"} {
		got, err := ParseTime(in)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", in, err)
			continue
		}
		if got.Hour() != 10 {
			t.Errorf("ParseTime(%q) = %v", in, got)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error")
	}
}

func TestChatSession_UnparsableTimestampsDecodeAsZero(t *testing.T) {
	data := []byte(`{"name":"Other","messages":[],"created":"2024-05-01 10:00:00","updated":12}`)
	var s ChatSession
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("bad timestamps must not fail the record: %v", err)
	}
	if s.Name != "Other" {
		t.Errorf("name = %q", s.Name)
	}
	if !s.Created.IsZero() || !s.Updated.IsZero() {
		t.Errorf("expected zero times, got %v %v", s.Created, s.Updated)
	}
}
