package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lana-info/llm-council/internal/domain"
	"github.com/lana-info/llm-council/internal/port/history"
)

// queryPreviewLen caps the stored query text in list views.
const queryPreviewLen = 200

// HistoryStore implements history.Store on PostgreSQL. The full result and
// verdict are stored as JSONB; the scalar columns exist for listing and
// filtering without unpacking the blobs.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a history store backed by the given pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Record stores one finished deliberation. Re-recording the same id
// replaces the row, which is how a verification attaches its verdict to a
// deliberation recorded moments earlier.
func (s *HistoryStore) Record(ctx context.Context, rec history.Record) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var verdictName *string
	var confidence *float64
	var verdictJSON []byte
	if rec.Verdict != nil {
		v := string(rec.Verdict.Verdict)
		verdictName = &v
		confidence = &rec.Verdict.Confidence
		verdictJSON, err = json.Marshal(rec.Verdict)
		if err != nil {
			return fmt.Errorf("marshal verdict: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO deliberations (id, query, tier, verdict, confidence, model_count, duration_ms, result, verdict_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   verdict = EXCLUDED.verdict,
		   confidence = EXCLUDED.confidence,
		   result = EXCLUDED.result,
		   verdict_data = EXCLUDED.verdict_data`,
		rec.Result.ID,
		rec.Result.Query,
		string(rec.Result.Tier),
		verdictName,
		confidence,
		len(rec.Result.Stage1),
		rec.Result.Duration.Milliseconds(),
		resultJSON,
		verdictJSON,
		rec.Result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record deliberation %s: %w", rec.Result.ID, err)
	}
	return nil
}

// Get returns the stored deliberation with the given id.
func (s *HistoryStore) Get(ctx context.Context, id string) (*history.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT result, verdict_data FROM deliberations WHERE id = $1`, id)

	var resultJSON []byte
	var verdictJSON []byte
	if err := row.Scan(&resultJSON, &verdictJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get deliberation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get deliberation %s: %w", id, err)
	}

	var rec history.Record
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result %s: %w", id, err)
	}
	if len(verdictJSON) > 0 {
		if err := json.Unmarshal(verdictJSON, &rec.Verdict); err != nil {
			return nil, fmt.Errorf("unmarshal verdict %s: %w", id, err)
		}
	}
	return &rec, nil
}

// ListRecent returns summaries of the newest deliberations, most recent
// first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]history.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, left(query, $2), tier, COALESCE(verdict, ''), model_count, duration_ms, created_at
		 FROM deliberations ORDER BY created_at DESC LIMIT $1`, limit, queryPreviewLen)
	if err != nil {
		return nil, fmt.Errorf("list deliberations: %w", err)
	}
	defer rows.Close()

	var out []history.Summary
	for rows.Next() {
		var sum history.Summary
		if err := rows.Scan(&sum.ID, &sum.Query, &sum.Tier, &sum.Verdict, &sum.ModelCount, &sum.DurationMS, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deliberation: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
