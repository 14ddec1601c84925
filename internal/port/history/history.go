// Package history defines the persistence port for finished deliberations.
// History is optional: when no database is configured the service runs with
// a nil Store and skips recording entirely.
package history

import (
	"context"
	"time"

	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/verdict"
)

// Record is one stored deliberation. Verdict is non-nil only for
// verification runs.
type Record struct {
	Result  council.Result  `json:"result"`
	Verdict *verdict.Result `json:"verdict,omitempty"`
}

// Summary is the list view of a stored deliberation. Query may be truncated
// by the store for display.
type Summary struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Tier       string    `json:"tier"`
	Verdict    string    `json:"verdict,omitempty"`
	ModelCount int       `json:"model_count"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists deliberation results.
type Store interface {
	// Record stores one finished deliberation. Recording the same id again
	// replaces the earlier record; Verify uses this to attach its verdict.
	Record(ctx context.Context, rec Record) error

	// Get returns the stored deliberation with the given id, or
	// domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// ListRecent returns summaries of the newest deliberations, most
	// recent first.
	ListRecent(ctx context.Context, limit int) ([]Summary, error)
}
