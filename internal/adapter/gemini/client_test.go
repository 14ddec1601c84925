package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	raw, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &Client{client: raw}
}

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "generateContent") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "four"}]}}],
			"usageMetadata": {"promptTokenCount": 6, "candidatesTokenCount": 1, "totalTokenCount": 7}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("google/gemini-2.0-flash-001", "2+2?", 128, 0))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Content != "four" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Status != gateway.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestExecuteNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Execute(context.Background(), gateway.UserPrompt("google/gemini-2.0-flash-001", "hi", 128, 0))
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
	if resp.Status != gateway.StatusError {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestModelID(t *testing.T) {
	if got := modelID("google/gemini-3-pro-preview"); got != "gemini-3-pro-preview" {
		t.Fatalf("unexpected model id: %s", got)
	}
	if got := modelID("gemini-2.0-flash-001"); got != "gemini-2.0-flash-001" {
		t.Fatalf("unexpected model id: %s", got)
	}
}
