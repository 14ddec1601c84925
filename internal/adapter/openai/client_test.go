package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"

	adapter "github.com/lana-info/llm-council/internal/adapter/openai"
	"github.com/lana-info/llm-council/internal/domain/gateway"
)

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxCompletionTokens int `json:"max_completion_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Fatalf("provider prefix not stripped: %s", req.Model)
		}
		if req.MaxCompletionTokens != 2048 {
			t.Fatalf("unexpected max_completion_tokens: %d", req.MaxCompletionTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 2, "total_tokens": 11}
		}`))
	}))
	defer srv.Close()

	client, err := adapter.NewClient("test-key", option.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hello", 2048, 0))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Content != "hi there" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Status != gateway.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 11 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestExecuteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, err := adapter.NewClient("test-key", option.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Execute(context.Background(), gateway.UserPrompt("openai/gpt-4o", "hello", 256, 0))
	if !errors.Is(err, gateway.ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
	if resp.Status != gateway.StatusError {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	var callErr *gateway.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %T", err)
	}
	if callErr.Model != "openai/gpt-4o" {
		t.Fatalf("unexpected model: %s", callErr.Model)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := adapter.NewClient(""); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	client, err := adapter.NewClient("test-key", option.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
