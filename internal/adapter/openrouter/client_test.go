package openrouter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lana-info/llm-council/internal/adapter/openrouter"
	"github.com/lana-info/llm-council/internal/domain/gateway"
)

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth: %q", auth)
		}
		if ref := r.Header.Get("HTTP-Referer"); ref != "https://example.com" {
			t.Fatalf("unexpected referer: %q", ref)
		}
		if title := r.Header.Get("X-Title"); title != "Test App" {
			t.Fatalf("unexpected title: %q", title)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "openai/gpt-4o" {
			t.Fatalf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != 4096 {
			t.Fatalf("unexpected max_tokens: %d", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1",
			"model": "openai/gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello back"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "https://example.com", "Test App")
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hello", 4096, 0))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Content != "hello back" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Status != gateway.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestExecutePassesExtraParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "openai/o1" {
			t.Fatalf("extra params must not override model, got %v", body["model"])
		}
		reasoning, ok := body["reasoning"].(map[string]any)
		if !ok || reasoning["effort"] != "high" {
			t.Fatalf("expected reasoning effort in payload, got %v", body["reasoning"])
		}
		if body["top_p"] != 0.9 {
			t.Fatalf("expected top_p 0.9, got %v", body["top_p"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-2",
			"model": "openai/o1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	req := gateway.UserPrompt("openai/o1", "think hard", 1024, 0)
	req.Extra = map[string]any{
		"reasoning": map[string]any{"effort": "high"},
		"top_p":     0.9,
		"model":     "something-else", // collides with a core field, must lose
	}

	resp, err := client.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestExecuteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","code":429}}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hi", 256, 0))
	if !errors.Is(err, gateway.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if resp.Status != gateway.StatusRateLimited {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if resp.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected retry-after: %s", resp.RetryAfter)
	}
	if !gateway.IsTransient(err) {
		t.Fatal("rate limit should be transient")
	}
}

func TestExecuteInvalidModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"no-such/model is not a valid model ID","code":404}}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	_, err := client.Execute(context.Background(), gateway.UserPrompt("no-such/model", "hi", 256, 0))
	if !errors.Is(err, gateway.ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
	if gateway.IsTransient(err) {
		t.Fatal("invalid model should not be transient")
	}

	var callErr *gateway.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %T", err)
	}
	if callErr.Model != "no-such/model" {
		t.Fatalf("unexpected model in error: %s", callErr.Model)
	}
}

func TestExecuteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hi", 256, 0))
	if !errors.Is(err, gateway.ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
	if resp.Status != gateway.StatusError {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if !gateway.IsTransient(err) {
		t.Fatal("5xx should be transient")
	}
}

func TestExecuteErrorBody(t *testing.T) {
	// OpenRouter can return 200 with an error object instead of choices.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"provider returned error","code":502}}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	_, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hi", 256, 0))
	if !errors.Is(err, gateway.ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
}

func TestExecuteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-2","choices":[]}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	_, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hi", 256, 0))
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hi", 256, 50*time.Millisecond))
	if !errors.Is(err, gateway.ErrCallTimeout) {
		t.Fatalf("expected ErrCallTimeout, got %v", err)
	}
	if resp.Status != gateway.StatusTimeout {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if !gateway.IsTransient(err) {
		t.Fatal("timeout should be transient")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "test-key", "", "")
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestPingUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.URL, "bad-key", "", "")
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
