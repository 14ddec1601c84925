package service_test

import (
	"context"
	"testing"

	"github.com/lana-info/llm-council/internal/domain/verdict"
	"github.com/lana-info/llm-council/internal/service"
)

func TestVerifyPass(t *testing.T) {
	rt := newFakeRouter()
	rt.synthesis = "APPROVED. The claim holds up under every answer."
	svc := newTestService(rt, service.CouncilDeps{})

	v, res, err := svc.Verify(context.Background(), "2+2 equals 4", "balanced", 0.5)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Verdict != verdict.Pass {
		t.Fatalf("verdict = %q, want pass (confidence %v)", v.Verdict, v.Confidence)
	}
	if v.Confidence <= 0 || v.Confidence > 1 {
		t.Errorf("confidence out of range: %v", v.Confidence)
	}
	if v.Rationale == "" {
		t.Error("expected a rationale")
	}
	if len(v.BlockingIssues) != 0 {
		t.Errorf("pass verdict must not carry blocking issues: %v", v.BlockingIssues)
	}
	if res == nil || res.Stage3.Content != rt.synthesis {
		t.Error("expected the underlying deliberation result")
	}
}

func TestVerifyThresholdDowngradesPass(t *testing.T) {
	rt := newFakeRouter()
	rt.synthesis = "APPROVED. Looks correct."
	svc := newTestService(rt, service.CouncilDeps{})

	v, _, err := svc.Verify(context.Background(), "claim", "balanced", 0.99)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Verdict != verdict.Unclear {
		t.Fatalf("verdict = %q, want unclear below threshold", v.Verdict)
	}
}

func TestVerifyFailWithBlockingIssues(t *testing.T) {
	rt := newFakeRouter()
	rt.synthesis = "REJECTED. The patch is wrong.\nCRITICAL: division by zero in calc.go:14\nMINOR: sloppy naming"
	svc := newTestService(rt, service.CouncilDeps{})

	v, _, err := svc.Verify(context.Background(), "review this patch", "balanced", 0.5)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Verdict != verdict.Fail {
		t.Fatalf("verdict = %q, want fail", v.Verdict)
	}
	if len(v.BlockingIssues) != 2 {
		t.Fatalf("expected 2 blocking issues, got %d: %v", len(v.BlockingIssues), v.BlockingIssues)
	}
	if v.BlockingIssues[0].Severity != verdict.SeverityCritical {
		t.Errorf("first issue severity = %q", v.BlockingIssues[0].Severity)
	}
	if v.BlockingIssues[0].Location == "" {
		t.Error("expected a source location on the critical issue")
	}
}

func TestVerifyDefaultThreshold(t *testing.T) {
	rt := newFakeRouter()
	rt.synthesis = "APPROVED. Correct."
	svc := newTestService(rt, service.CouncilDeps{})

	// Threshold 0 falls back to the configured default (0.7), which the
	// blended confidence of a clean approval clears.
	v, _, err := svc.Verify(context.Background(), "claim", "balanced", 0)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Verdict != verdict.Pass {
		t.Fatalf("verdict = %q, want pass at default threshold (confidence %v)", v.Verdict, v.Confidence)
	}
}

func TestVerifyRecordsVerdict(t *testing.T) {
	rt := newFakeRouter()
	rt.synthesis = "APPROVED. Fine."
	hist := newFakeHistory()
	svc := newTestService(rt, service.CouncilDeps{History: hist})

	v, res, err := svc.Verify(context.Background(), "claim", "balanced", 0.5)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	rec, err := hist.Get(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("verification not recorded: %v", err)
	}
	if rec.Verdict == nil {
		t.Fatal("expected the verdict attached to the history record")
	}
	if rec.Verdict.Verdict != v.Verdict {
		t.Errorf("recorded verdict = %q, want %q", rec.Verdict.Verdict, v.Verdict)
	}
}
