package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/lana-info/llm-council/internal/adapter/otel"
	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/gateway"
	"github.com/lana-info/llm-council/internal/domain/tier"
	"github.com/lana-info/llm-council/internal/resilience"
)

// callModel dispatches one prompt to one model through its router's circuit
// breaker, retrying transient failures up to the contract's attempt budget.
// The per-call timeout rides on the request envelope; the pipeline deadline
// rides on ctx.
func (s *CouncilService) callModel(ctx context.Context, model, prompt string, contract tier.Contract) (gateway.Response, int, error) {
	rt, err := s.routers.For(model)
	if err != nil {
		return gateway.Response{}, 0, err
	}
	breaker := s.breakers.For(rt.Name())

	req := gateway.UserPrompt(model, prompt, contract.TokenBudget, contract.PerCallTimeout)

	var resp gateway.Response
	var lastErr error
	attempts := 0
	for attempts < contract.MaxAttempts {
		if ctx.Err() != nil {
			if lastErr == nil {
				lastErr = fmt.Errorf("%w: %v", gateway.ErrCallTimeout, ctx.Err())
			}
			break
		}
		attempts++

		if err := s.sem.Acquire(ctx, 1); err != nil {
			lastErr = fmt.Errorf("%w: %v", gateway.ErrCallTimeout, err)
			break
		}
		err := breaker.Execute(func() error {
			var callErr error
			resp, callErr = rt.Execute(ctx, req)
			return callErr
		}, nil)
		s.sem.Release(1)

		if err == nil {
			if s.metrics != nil {
				s.metrics.ModelCalls.Add(ctx, 1, otel.ModelAttr(model))
			}
			return resp, attempts, nil
		}
		lastErr = err

		if errors.Is(err, resilience.ErrCircuitOpen) {
			// The endpoint is blocked; retrying inside the same
			// deliberation cannot help.
			break
		}
		if !gateway.IsTransient(err) {
			break
		}
		slog.Warn("model call failed, retrying",
			"model", model,
			"attempt", attempts,
			"max_attempts", contract.MaxAttempts,
			"error", s.redactErr(err),
		)
		if resp.RetryAfter > 0 {
			s.waitRetry(ctx, resp.RetryAfter)
		}
	}
	return resp, attempts, lastErr
}

// waitRetry honors an upstream retry-after hint without outliving the
// pipeline deadline.
func (s *CouncilService) waitRetry(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// failureFor classifies one dropped model for the result annotation. The
// failure reason is credential-redacted before it is stored or logged.
func (s *CouncilService) failureFor(model, stage string, attempts int, err error) council.ModelFailure {
	status := gateway.StatusFromError(err)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		status = gateway.StatusError
	}
	return council.ModelFailure{
		Model:    model,
		Stage:    stage,
		Status:   status,
		Reason:   s.redactErr(err),
		Attempts: attempts,
	}
}

// stageAnswers fans the query out to every pool model concurrently and
// collects answers in pool order, never arrival order, so downstream
// labeling is stable. A failed model degrades the pool; it never fails the
// stage.
func (s *CouncilService) stageAnswers(ctx context.Context, query string, contract tier.Contract) ([]council.Answer, []council.ModelFailure) {
	ctx, span := otel.StartStageSpan(ctx, "answers", len(contract.AllowedModels))
	defer span.End()

	prompt := answerPrompt(query)

	type slot struct {
		answer  *council.Answer
		failure *council.ModelFailure
	}
	slots := make([]slot, len(contract.AllowedModels))

	var wg sync.WaitGroup
	for i, model := range contract.AllowedModels {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			resp, attempts, err := s.callModel(ctx, model, prompt, contract)
			if err != nil {
				slots[i].failure = ptr(s.failureFor(model, "answers", attempts, err))
				return
			}
			slots[i].answer = &council.Answer{
				Model:     model,
				Content:   resp.Content,
				Usage:     resp.Usage,
				LatencyMS: resp.LatencyMS,
			}
		}(i, model)
	}
	wg.Wait()

	var answers []council.Answer
	var failures []council.ModelFailure
	for _, sl := range slots {
		switch {
		case sl.answer != nil:
			answers = append(answers, *sl.answer)
		case sl.failure != nil:
			slog.Warn("model dropped from deliberation",
				"model", sl.failure.Model,
				"status", sl.failure.Status,
				"attempts", sl.failure.Attempts,
			)
			if s.metrics != nil {
				s.metrics.ModelFailures.Add(ctx, 1, otel.ModelAttr(sl.failure.Model))
			}
			failures = append(failures, *sl.failure)
		}
	}
	return answers, failures
}

// normalizeAnswers optionally rewrites each answer into a style-neutral
// form through the configured normalizer model. In auto mode it runs only
// when answer lengths spread widely, the cheapest observable proxy for
// stylistic variance. Failures keep the original text; normalization is
// never load-bearing.
func (s *CouncilService) normalizeAnswers(ctx context.Context, answers []council.Answer, contract tier.Contract) bool {
	switch s.cfg.Normalize {
	case "always":
	case "auto":
		if !lengthsVary(answers) {
			return false
		}
	default:
		return false
	}
	if s.cfg.NormalizerModel == "" || len(answers) == 0 {
		return false
	}

	ctx, span := otel.StartStageSpan(ctx, "normalization", len(answers))
	defer span.End()

	var wg sync.WaitGroup
	for i := range answers {
		wg.Add(1)
		go func(a *council.Answer) {
			defer wg.Done()
			resp, _, err := s.callModel(ctx, s.cfg.NormalizerModel, normalizePrompt(a.Content), contract)
			if err != nil {
				slog.Warn("normalization failed, keeping original", "model", a.Model, "error", s.redactErr(err))
				return
			}
			a.Normalized = resp.Content
		}(&answers[i])
	}
	wg.Wait()
	return true
}

// lengthsVary reports whether answer lengths spread enough to bias review:
// relative standard deviation above 0.5.
func lengthsVary(answers []council.Answer) bool {
	if len(answers) < 2 {
		return false
	}
	var sum float64
	for _, a := range answers {
		sum += float64(len(a.Content))
	}
	mean := sum / float64(len(answers))
	if mean == 0 {
		return false
	}
	var ss float64
	for _, a := range answers {
		d := float64(len(a.Content)) - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(answers)))/mean > 0.5
}

// stageReview asks each surviving model to rank the anonymized answer set.
// The reviewer pool may be stratified to bound call volume. Reviews that
// cannot be parsed contribute no scores but never fail the stage.
func (s *CouncilService) stageReview(ctx context.Context, query string, answers []council.Answer, labelToModel map[string]string, contract tier.Contract) ([]council.Review, []council.ModelFailure) {
	ctx, span := otel.StartStageSpan(ctx, "review", len(answers))
	defer span.End()

	survivors := make([]string, len(answers))
	for i, a := range answers {
		survivors[i] = a.Model
	}
	reviewers := council.SampleReviewers(survivors, s.cfg.MaxReviewers)

	prompt := reviewPrompt(query, answers)

	type slot struct {
		review  *council.Review
		failure *council.ModelFailure
	}
	slots := make([]slot, len(reviewers))

	var wg sync.WaitGroup
	for i, reviewer := range reviewers {
		wg.Add(1)
		go func(i int, reviewer string) {
			defer wg.Done()
			resp, attempts, err := s.callModel(ctx, reviewer, prompt, contract)
			if err != nil {
				slots[i].failure = ptr(s.failureFor(reviewer, "review", attempts, err))
				return
			}
			review, err := council.ParseReview(reviewer, resp.Content, labelToModel)
			if err != nil {
				// Unparseable review means no score from this
				// reviewer, nothing more.
				slog.Warn("review discarded", "reviewer", reviewer, "error", err)
				return
			}
			slots[i].review = &review
		}(i, reviewer)
	}
	wg.Wait()

	var reviews []council.Review
	var failures []council.ModelFailure
	for _, sl := range slots {
		switch {
		case sl.review != nil:
			reviews = append(reviews, *sl.review)
		case sl.failure != nil:
			failures = append(failures, *sl.failure)
		}
	}
	return reviews, failures
}

// stageVerifier runs the quick tier's single cheap sanity check in place of
// full peer review. Its output feeds synthesis; a failure just leaves the
// chairman without a second opinion.
func (s *CouncilService) stageVerifier(ctx context.Context, query string, answers []council.Answer, contract tier.Contract) string {
	ctx, span := otel.StartStageSpan(ctx, "verifier", 1)
	defer span.End()

	resp, _, err := s.callModel(ctx, contract.AggregatorModel, verifierPrompt(query, answers), contract)
	if err != nil {
		slog.Warn("verifier call failed", "model", contract.AggregatorModel, "error", s.redactErr(err))
		return ""
	}
	return resp.Content
}

// stageSynthesis has the chairman reduce the deliberation to one answer. A
// synthesis failure is pipeline-fatal: there is no result without it.
func (s *CouncilService) stageSynthesis(ctx context.Context, query string, res *council.Result, verifierNote string, contract tier.Contract) (council.Synthesis, error) {
	ctx, span := otel.StartStageSpan(ctx, "synthesis", 1)
	defer span.End()

	prompt := synthesisPrompt(query, res.Stage1, res.Metadata.AggregateRankings, verifierNote)
	resp, _, err := s.callModel(ctx, contract.AggregatorModel, prompt, contract)
	if err != nil {
		if ctx.Err() != nil {
			return council.Synthesis{}, fmt.Errorf("%w: synthesis did not complete", ErrPipelineDeadline)
		}
		return council.Synthesis{}, fmt.Errorf("synthesis by %s: %w", contract.AggregatorModel, err)
	}
	return council.Synthesis{Model: contract.AggregatorModel, Content: resp.Content}, nil
}

func ptr[T any](v T) *T { return &v }
