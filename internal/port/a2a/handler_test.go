package a2a

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter() *chi.Mux {
	h := NewHandler("http://localhost:8080")
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestAgentCard(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var card AgentCard
	if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "LLM Council" {
		t.Fatalf("expected name LLM Council, got %s", card.Name)
	}
	if card.URL != "http://localhost:8080" {
		t.Fatalf("expected base URL in card, got %s", card.URL)
	}
	if len(card.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(card.Skills))
	}
	if card.Skills[0].ID != "consult" || card.Skills[1].ID != "verify" {
		t.Fatalf("unexpected skill ids: %s, %s", card.Skills[0].ID, card.Skills[1].ID)
	}
	if !card.Capabilities.Streaming {
		t.Fatal("expected streaming capability")
	}
}

func TestNoTaskEndpoints(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/a2a/tasks", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for task endpoint, got %d", w.Code)
	}
}
