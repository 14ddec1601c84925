// Package verdict turns free-text council synthesis plus aggregated rubric
// scores into a structured, confidence-scored verification result.
package verdict

import "github.com/lana-info/llm-council/internal/domain/council"

// Verdict is the final disposition of a verification.
type Verdict string

const (
	Pass    Verdict = "pass"
	Fail    Verdict = "fail"
	Unclear Verdict = "unclear"
)

// Severity grades a blocking issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// DefaultThreshold is the confidence floor below which a pass verdict is
// downgraded to unclear.
const DefaultThreshold = 0.7

// BlockingIssue is one problem the council flagged in the synthesis.
type BlockingIssue struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
}

// Result is the final output of one verification. Immutable once built.
type Result struct {
	Verdict        Verdict                       `json:"verdict"`
	Confidence     float64                       `json:"confidence"`
	RubricScores   map[council.Dimension]float64 `json:"rubric_scores,omitempty"`
	BlockingIssues []BlockingIssue               `json:"blocking_issues,omitempty"`
	Rationale      string                        `json:"rationale"`
}
