// internal/llm/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/gridlens/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model", "")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, p.model)
	}
}

func newServer(t *testing.T, body string, got *map[string]any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/v1"
}

func TestChat_SystemPromptFirst(t *testing.T) {
	var got map[string]any
	url := newServer(t, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "West load was flat."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 30, "completion_tokens": 6, "total_tokens": 36}
	}`, &got)

	p, _ := New("test-key", "gpt-test", url)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "You are a grid analyst.",
		Messages:     []llm.Message{{Role: "user", Content: "Summarize."}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Content != "West load was flat." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.InputTokens != 30 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if first, _ := messages[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system message first, got %v", first["role"])
	}
}

func TestChat_NoChoices(t *testing.T) {
	var got map[string]any
	url := newServer(t, `{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`, &got)

	p, _ := New("test-key", "gpt-test", url)
	if _, err := p.Chat(context.Background(), llm.ChatRequest{}); err == nil {
		t.Error("expected error when no choices returned")
	}
}
