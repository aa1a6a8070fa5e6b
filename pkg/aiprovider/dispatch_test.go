package aiprovider

import (
	"context"
	"strings"
	"testing"
)

type echoAdapter struct {
	name     string
	lastReq  Request
	response string
}

func (e *echoAdapter) Name() string       { return e.name }
func (e *echoAdapter) IsConfigured() bool { return true }
func (e *echoAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	e.lastReq = req
	return &Response{Text: e.response}, nil
}

func TestDispatcher_GetIsCaseInsensitive(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(&echoAdapter{name: "Anthropic"})

	for _, name := range []string{"anthropic", "Anthropic", "  ANTHROPIC  "} {
		if _, err := d.Get(name); err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
	}

	if _, err := d.Get("mystery"); err == nil {
		t.Error("Expected error for unknown provider")
	} else if !strings.Contains(err.Error(), "mystery") {
		t.Errorf("Error must name the provider, got %q", err.Error())
	}
}

func TestDispatcher_Complete(t *testing.T) {
	d := NewDispatcher(testLogger())
	adapter := &echoAdapter{name: "anthropic", response: "done"}
	d.Register(adapter)

	resp, err := d.Complete(context.Background(), "anthropic", Request{ModelKey: "claude-sonnet-4-5"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "done" {
		t.Errorf("Expected adapter response, got %q", resp.Text)
	}
	if adapter.lastReq.ModelKey != "claude-sonnet-4-5" {
		t.Errorf("Adapter received model key %q", adapter.lastReq.ModelKey)
	}
}

func TestDispatcher_TestCall(t *testing.T) {
	d := NewDispatcher(testLogger())
	adapter := &echoAdapter{name: "ollama", response: "pong"}
	d.Register(adapter)

	out, err := d.TestCall(context.Background(), "ollama", "llama3", "ping")
	if err != nil {
		t.Fatalf("TestCall failed: %v", err)
	}
	if out != "pong" {
		t.Errorf("Expected pong, got %q", out)
	}
	if len(adapter.lastReq.Messages) != 1 || adapter.lastReq.Messages[0].Content != "ping" {
		t.Errorf("Adapter received %+v", adapter.lastReq.Messages)
	}
	if adapter.lastReq.MaxOutputTokens != 256 {
		t.Errorf("Test calls carry a small token budget, got %d", adapter.lastReq.MaxOutputTokens)
	}
}

func TestNewDefaultDispatcher(t *testing.T) {
	d := NewDefaultDispatcher(testLogger())
	for _, name := range []string{"anthropic", "openai", "ollama"} {
		if _, err := d.Get(name); err != nil {
			t.Errorf("Default dispatcher missing %q: %v", name, err)
		}
	}
}
