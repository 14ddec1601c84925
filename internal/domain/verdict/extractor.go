package verdict

import (
	"math"
	"regexp"
	"strings"

	"github.com/lana-info/llm-council/internal/domain/council"
)

// Marker patterns scanned against the uppercased synthesis text. Counting
// is per pattern matched, not per occurrence, so a synthesis repeating
// "APPROVED" five times still counts one approval signal from that
// pattern. The lists and every constant below are tuned policy; do not
// adjust them.
var approvedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bAPPROVED\b`),
	regexp.MustCompile(`\bPASS(?:ED)?\b`),
	regexp.MustCompile(`\bACCEPTED\b`),
	regexp.MustCompile(`\bRECOMMENDED\b`),
}

var rejectedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bREJECTED\b`),
	regexp.MustCompile(`\bFAIL(?:ED)?\b`),
	regexp.MustCompile(`\bDENIED\b`),
	regexp.MustCompile(`\bNOT\s+RECOMMENDED\b`),
}

var (
	issuePattern    = regexp.MustCompile(`(?i)(CRITICAL|MAJOR|MINOR)[:\s]+([^\n]+)`)
	locationPattern = regexp.MustCompile(`(?:in|at)\s+(\S+\.\w+:\d+|\S+\.\w+)`)
)

// FromSynthesis extracts the verdict and its text-signal confidence from
// the synthesis. Clear signals scale with matched-pattern count capped at
// 0.95; mixed signals lean with the majority capped at 0.75; equal or
// absent signals resolve unclear at 0.50.
func FromSynthesis(synthesis string) (Verdict, float64) {
	upper := strings.ToUpper(synthesis)

	approved := 0
	for _, p := range approvedPatterns {
		if p.MatchString(upper) {
			approved++
		}
	}
	rejected := 0
	for _, p := range rejectedPatterns {
		if p.MatchString(upper) {
			rejected++
		}
	}

	switch {
	case approved > 0 && rejected == 0:
		return Pass, math.Min(0.95, 0.70+float64(approved)*0.10)
	case rejected > 0 && approved == 0:
		return Fail, math.Min(0.95, 0.70+float64(rejected)*0.10)
	case approved > rejected:
		return Pass, math.Min(0.75, 0.55+0.05*float64(approved-rejected))
	case rejected > approved:
		return Fail, math.Min(0.75, 0.55+0.05*float64(rejected-approved))
	default:
		return Unclear, 0.50
	}
}

// AgreementConfidence derives a second confidence estimate from the
// reviewers' rubric scores. High mean scores back a pass; low mean scores
// back a fail; score variance across reviewers costs up to 0.20; each
// reviewer adds 0.02 up to 0.10. Scores enter unfiltered here: range
// validation belongs to rubric aggregation, not to agreement.
func AgreementConfidence(reviews []council.Review, v Verdict) float64 {
	if len(reviews) == 0 {
		return 0.50
	}

	var scores []float64
	for _, rv := range reviews {
		for _, entry := range rv.Entries {
			for _, s := range entry.Scores {
				scores = append(scores, s)
			}
		}
	}
	if len(scores) == 0 {
		return 0.50
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	variance := 0.0
	if len(scores) > 1 {
		var ss float64
		for _, s := range scores {
			d := s - mean
			ss += d * d
		}
		variance = ss / float64(len(scores)-1)
	}

	var confidence float64
	switch v {
	case Pass:
		confidence = math.Min(1.0, math.Max(0.3, (mean-5)/5))
	case Fail:
		confidence = math.Min(1.0, math.Max(0.3, (5-mean)/5+0.5))
	default:
		confidence = 0.50
	}

	confidence -= math.Min(0.20, variance/10)
	confidence += math.Min(0.10, float64(len(reviews))*0.02)

	return round2(math.Max(0.0, math.Min(1.0, confidence)))
}

// BlockingIssues scans the synthesis for severity-marked lines. Each match
// becomes one issue; a source-location token in the description is lifted
// into the Location field when recognizable.
func BlockingIssues(synthesis string) []BlockingIssue {
	var issues []BlockingIssue
	for _, m := range issuePattern.FindAllStringSubmatch(synthesis, -1) {
		issue := BlockingIssue{
			Severity:    Severity(strings.ToLower(m[1])),
			Description: strings.TrimSpace(m[2]),
		}
		if loc := locationPattern.FindStringSubmatch(issue.Description); loc != nil {
			issue.Location = loc[1]
		}
		issues = append(issues, issue)
	}
	return issues
}

// Build assembles the complete verification result. Final confidence is a
// fixed 40/60 blend of text-signal and agreement confidence; a pass below
// the threshold downgrades to unclear, and blocking issues attach only to
// fail or unclear verdicts.
func Build(reviews []council.Review, synthesis string, threshold float64) Result {
	v, base := FromSynthesis(synthesis)

	rubric := council.AggregateRubric(reviews)
	agreement := AgreementConfidence(reviews, v)
	confidence := round2(base*0.4 + agreement*0.6)

	if v == Pass && confidence < threshold {
		v = Unclear
	}

	var issues []BlockingIssue
	if v == Fail || v == Unclear {
		issues = BlockingIssues(synthesis)
	}

	rationale := synthesis
	if rationale == "" {
		rationale = "No synthesis available."
	}

	return Result{
		Verdict:        v,
		Confidence:     confidence,
		RubricScores:   rubric,
		BlockingIssues: issues,
		Rationale:      rationale,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
