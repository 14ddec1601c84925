package service

import (
	"context"
	"log/slog"

	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/verdict"
)

// verdictRecord pairs a verification verdict with its deliberation for the
// history store.
type verdictRecord struct {
	result *verdict.Result
}

// Verify runs a deliberation over a verification framing of the query and
// reduces the synthesis plus peer rubric scores to a pass/fail/unclear
// verdict. A threshold <= 0 selects the configured default; a pass whose
// blended confidence falls below the threshold downgrades to unclear.
func (s *CouncilService) Verify(ctx context.Context, query, tierName string, threshold float64) (*verdict.Result, *council.Result, error) {
	if threshold <= 0 {
		threshold = s.cfg.VerifyThreshold
	}
	if threshold <= 0 {
		threshold = verdict.DefaultThreshold
	}

	res, err := s.Deliberate(ctx, verifyQuery(query), tierName)
	if err != nil {
		return nil, nil, err
	}

	v := verdict.Build(res.Stage2, res.Stage3.Content, threshold)
	slog.Info("verification completed",
		"deliberation_id", res.ID,
		"verdict", v.Verdict,
		"confidence", v.Confidence,
		"blocking_issues", len(v.BlockingIssues),
	)

	if !res.Metadata.FromCache {
		s.recordHistory(ctx, res, &verdictRecord{result: &v})
	}
	return &v, res, nil
}
