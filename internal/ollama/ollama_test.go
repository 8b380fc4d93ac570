// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	cfg := c.GetConfig()
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.DefaultModel != "llama3" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Timeout == 0 || cfg.ProbeTimeout == 0 {
		t.Error("timeouts not filled")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:11434":      "http://localhost:11434",
		"http://localhost:11434/":     "http://localhost:11434",
		"http://localhost:11434/api":  "http://localhost:11434",
		"http://localhost:11434/api/": "http://localhost:11434",
		"  http://gpu-box:11434  ":    "http://gpu-box:11434",
	}
	for in, want := range tests {
		if got := normalizeBaseURL(in); got != want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	})
	if err := c.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning: %v", err)
	}
}

func TestCheckRunning_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url})
	err := c.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("expected not running, got %v", err)
	}
}

func TestCheckRunning_ProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, ProbeTimeout: 50 * time.Millisecond})
	err := c.CheckRunning(context.Background())
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest","size":4661224676},{"name":"mistral:7b","size":1024}]}`))
	})
	names, err := c.ModelNames(context.Background())
	if err != nil {
		t.Fatalf("ModelNames: %v", err)
	}
	if len(names) != 2 || names[0] != "llama3:latest" || names[1] != "mistral:7b" {
		t.Errorf("names = %v", names)
	}

	models, _ := c.ListModels(context.Background())
	if got := models[0].FormatSize(); got != "4.3 GB" {
		t.Errorf("FormatSize = %q", got)
	}
	if got := models[1].FormatSize(); got != "1.0 KB" {
		t.Errorf("FormatSize = %q", got)
	}
}

func TestPull(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req PullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "llama3" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"status":"success"}`))
	})
	resp, err := c.Pull(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}

	if _, err := c.Pull(context.Background(), ""); err == nil {
		t.Error("empty model name should fail")
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Stream {
			t.Error("stream must be false")
		}
		if req.Model != "llama3" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 3 || req.Messages[2].Content != "Hello" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Hi there"},"done":true,"eval_count":100,"eval_duration":1000000000}`))
	})

	resp, err := c.Chat(context.Background(), "", []Message{
		NewUserMessage("earlier"),
		NewAssistantMessage("reply"),
		NewUserMessage("Hello"),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "Hi there" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if tps := resp.TokensPerSecond(); tps < 99 || tps > 101 {
		t.Errorf("TokensPerSecond = %f", tps)
	}
}

func TestChat_ModelNotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found, try pulling it first"}`))
	})
	_, err := c.Chat(context.Background(), "nope", []Message{NewUserMessage("x")})
	if !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
	if err.Error() != "model 'nope' not found, try pulling it first" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestChat_ServerErrorWithoutBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Chat(context.Background(), "llama3", []Message{NewUserMessage("x")})
	if err == nil || err.Error() != "chat request failed: 500 Internal Server Error" {
		t.Errorf("err = %v", err)
	}
}

func TestChat_MalformedBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := c.Chat(context.Background(), "llama3", []Message{NewUserMessage("x")})
	var ce *ClientError
	if err == nil {
		t.Fatal("expected error")
	}
	if ok := asClientError(err, &ce); !ok || ce.Type != ErrTypeInvalidResponse {
		t.Errorf("err = %v", err)
	}
}

func asClientError(err error, target **ClientError) bool {
	ce, ok := err.(*ClientError)
	if ok {
		*target = ce
	}
	return ok
}
