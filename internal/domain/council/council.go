// Package council defines the deliberation stage outputs and the rank
// aggregation that reduces peer reviews into a consensus ordering.
package council

import (
	"time"

	"github.com/lana-info/llm-council/internal/domain/gateway"
	"github.com/lana-info/llm-council/internal/domain/tier"
)

// Dimension names one fixed rubric axis reviewers score candidates on.
type Dimension string

const (
	DimAccuracy     Dimension = "accuracy"
	DimRelevance    Dimension = "relevance"
	DimCompleteness Dimension = "completeness"
	DimConciseness  Dimension = "conciseness"
	DimClarity      Dimension = "clarity"
)

// Dimensions lists the rubric axes in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimAccuracy, DimRelevance, DimCompleteness, DimConciseness, DimClarity}
}

// Answer is one model's independent Stage-1 response.
type Answer struct {
	Model     string         `json:"model"`
	Label     string         `json:"label"`
	Content   string         `json:"response"`
	Usage     *gateway.Usage `json:"usage,omitempty"`
	LatencyMS int64          `json:"latency_ms,omitempty"`
	// Normalized holds the style-neutral rewrite when Stage 1.5 ran.
	Normalized string `json:"normalized,omitempty"`
}

// ReviewText returns the answer text peer reviewers should see: the
// normalized form when present, the original otherwise.
func (a *Answer) ReviewText() string {
	if a.Normalized != "" {
		return a.Normalized
	}
	return a.Content
}

// RankingEntry is one reviewer's rubric verdict on one candidate. Scores
// hold whatever numeric values the reviewer supplied, unvalidated; range
// checks happen at aggregation so out-of-range values are discarded there,
// never clamped.
type RankingEntry struct {
	Label  string                `json:"label"`
	Scores map[Dimension]float64 `json:"scores,omitempty"`
}

// Review is one reviewer's Stage-2 output: an ordered ranking of candidate
// labels (best first) plus per-candidate rubric entries.
type Review struct {
	Reviewer string         `json:"reviewer"`
	RawText  string         `json:"raw_text,omitempty"`
	Ranking  []string       `json:"ranking"`
	Entries  []RankingEntry `json:"entries,omitempty"`
}

// Synthesis is the aggregator model's Stage-3 output.
type Synthesis struct {
	Model   string `json:"model"`
	Content string `json:"response"`
}

// ModelFailure records one model that dropped out of the deliberation and
// why, so consumers can judge result reliability.
type ModelFailure struct {
	Model    string         `json:"model"`
	Stage    string         `json:"stage"`
	Status   gateway.Status `json:"status"`
	Reason   string         `json:"reason"`
	Attempts int            `json:"attempts"`
}

// Metadata carries the aggregate view of one deliberation.
type Metadata struct {
	LabelToModel      map[string]string     `json:"label_to_model"`
	AggregateRankings []AggregateRanking    `json:"aggregate_rankings"`
	RubricScores      map[Dimension]float64 `json:"rubric_scores,omitempty"`
	FailedModels      []ModelFailure        `json:"failed_models,omitempty"`
	Normalized        bool                  `json:"normalized,omitempty"`
	FromCache         bool                  `json:"from_cache,omitempty"`
	// EscalationHint is advisory: set when the tier permits escalation
	// and the deliberation resolved without a clear consensus.
	EscalationHint bool `json:"escalation_hint,omitempty"`
}

// Result is the complete output of one deliberation.
type Result struct {
	ID        string        `json:"id"`
	Query     string        `json:"query"`
	Tier      tier.Tier     `json:"tier"`
	Stage1    []Answer      `json:"stage1"`
	Stage2    []Review      `json:"stage2,omitempty"`
	Stage3    Synthesis     `json:"stage3"`
	Metadata  Metadata      `json:"metadata"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}
