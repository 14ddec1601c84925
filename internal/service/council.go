// Package service implements the council use-cases on top of the domain
// packages and the router/cache/history/event ports.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lana-info/llm-council/internal/adapter/otel"
	"github.com/lana-info/llm-council/internal/config"
	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/tier"
	"github.com/lana-info/llm-council/internal/port/broadcast"
	"github.com/lana-info/llm-council/internal/port/cache"
	"github.com/lana-info/llm-council/internal/port/eventbus"
	"github.com/lana-info/llm-council/internal/port/history"
	"github.com/lana-info/llm-council/internal/port/router"
	"github.com/lana-info/llm-council/internal/resilience"
	"github.com/lana-info/llm-council/internal/secrets"
)

// Pipeline-level failures. Per-model failures are absorbed into the result;
// only these two end a deliberation without one.
var (
	// ErrInsufficientModels indicates zero models produced a usable answer.
	ErrInsufficientModels = errors.New("no models produced a usable answer")

	// ErrPipelineDeadline indicates the tier deadline expired before
	// synthesis completed.
	ErrPipelineDeadline = errors.New("deliberation deadline exceeded")
)

// CouncilDeps carries the collaborators a CouncilService needs. Routers is
// required; everything else is optional and nil-disables its feature.
type CouncilDeps struct {
	Routers  *router.Registry
	Breakers *resilience.Group
	Cache    cache.Cache
	History  history.Store
	Events   eventbus.Queue
	Hub      broadcast.Broadcaster
	Metrics  *otel.Metrics
	Secrets  *secrets.Vault
}

// CouncilService runs the three-stage deliberation pipeline: independent
// answers, anonymized peer review, and chairman synthesis.
type CouncilService struct {
	cfg      config.Council
	cacheTTL time.Duration

	routers  *router.Registry
	breakers *resilience.Group
	sem      *semaphore.Weighted
	cache    cache.Cache
	history  history.Store
	events   eventbus.Queue
	hub      broadcast.Broadcaster
	metrics  *otel.Metrics
	vault    *secrets.Vault
}

// NewCouncilService creates the deliberation orchestrator.
func NewCouncilService(cfg config.Council, cacheTTL time.Duration, deps CouncilDeps) *CouncilService {
	maxConc := cfg.MaxConcurrent
	if maxConc < 1 {
		maxConc = 1
	}
	breakers := deps.Breakers
	if breakers == nil {
		breakers = resilience.NewGroup(0, 0, 0)
	}
	return &CouncilService{
		cfg:      cfg,
		cacheTTL: cacheTTL,
		routers:  deps.Routers,
		breakers: breakers,
		sem:      semaphore.NewWeighted(int64(maxConc)),
		cache:    deps.Cache,
		history:  deps.History,
		events:   deps.Events,
		hub:      deps.Hub,
		metrics:  deps.Metrics,
		vault:    deps.Secrets,
	}
}

// redactErr renders an upstream error for logs and result annotations.
// Provider error bodies occasionally echo request headers back, so any
// configured credential is masked before the text leaves the service.
func (s *CouncilService) redactErr(err error) string {
	if s.vault == nil {
		return err.Error()
	}
	return s.vault.RedactString(err.Error())
}

// contractFor builds the tier contract and applies configured pool and
// chairman overrides.
func (s *CouncilService) contractFor(tierName string) (tier.Contract, error) {
	contract, err := tier.New(tierName)
	if err != nil {
		return tier.Contract{}, err
	}
	if pool, ok := s.cfg.Pools[string(contract.Tier)]; ok && len(pool) > 0 {
		contract.AllowedModels = append([]string(nil), pool...)
	}
	if s.cfg.Chairman != "" {
		contract.AggregatorModel = s.cfg.Chairman
	}
	return contract, nil
}

// Deliberate runs one full deliberation under the named tier's contract.
// Per-model call failures degrade the pool and are annotated in the result
// metadata; the pipeline itself fails only on an invalid tier, an exhausted
// pool, or the total deadline.
func (s *CouncilService) Deliberate(ctx context.Context, query, tierName string) (*council.Result, error) {
	contract, err := s.contractFor(tierName)
	if err != nil {
		return nil, err
	}

	if res, ok := s.cacheLookup(ctx, query, contract); ok {
		return res, nil
	}

	id := uuid.NewString()
	started := time.Now()
	ctx, span := otel.StartDeliberationSpan(ctx, id, string(contract.Tier))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, contract.Deadline)
	defer cancel()

	slog.Info("deliberation started",
		"deliberation_id", id,
		"tier", contract.Tier,
		"models", len(contract.AllowedModels),
	)
	s.publishStarted(ctx, id, contract, query)
	if s.metrics != nil {
		s.metrics.DeliberationsStarted.Add(ctx, 1, otel.TierAttr(string(contract.Tier)))
	}

	res := &council.Result{
		ID:        id,
		Query:     query,
		Tier:      contract.Tier,
		CreatedAt: started.UTC(),
	}

	// Stage 1: independent answers from every pool model, in parallel.
	answers, failures := s.stageAnswers(ctx, query, contract)
	s.publishStage(ctx, id, "answers", answers, failures, time.Since(started))
	if len(answers) == 0 {
		err := s.exhaustedErr(ctx, failures)
		s.publishFailed(ctx, id, contract, err)
		return nil, err
	}
	labelToModel := council.AssignLabels(answers)
	res.Stage1 = answers
	res.Metadata.LabelToModel = labelToModel
	res.Metadata.FailedModels = failures

	// Stage 1.5: optional style normalization to blunt formatting bias in
	// peer review.
	if s.normalizeAnswers(ctx, answers, contract) {
		res.Metadata.Normalized = true
		s.publishStage(ctx, id, "normalization", answers, nil, time.Since(started))
	}

	// Stage 2: anonymized peer review, or the lightweight verifier on the
	// quick tier.
	var verifierNote string
	if contract.RequiresPeerReview {
		reviews, reviewFailures := s.stageReview(ctx, query, answers, labelToModel, contract)
		res.Stage2 = reviews
		res.Metadata.FailedModels = append(res.Metadata.FailedModels, reviewFailures...)
		s.publishStage(ctx, id, "review", answers, reviewFailures, time.Since(started))
	} else if contract.RequiresVerifier {
		verifierNote = s.stageVerifier(ctx, query, answers, contract)
	}

	res.Metadata.AggregateRankings = council.AggregateBorda(res.Stage2, labelToModel, s.cfg.ExcludeSelfVotes)
	res.Metadata.RubricScores = council.AggregateRubric(res.Stage2)
	res.Metadata.EscalationHint = s.escalationHint(contract, res)

	// Stage 3: chairman synthesis.
	synthesis, err := s.stageSynthesis(ctx, query, res, verifierNote, contract)
	if err != nil {
		s.publishFailed(ctx, id, contract, err)
		return nil, err
	}
	res.Stage3 = synthesis
	res.Duration = time.Since(started)
	s.publishStage(ctx, id, "synthesis", answers, nil, res.Duration)

	s.finish(ctx, res)
	return res, nil
}

// exhaustedErr classifies a deliberation whose whole pool dropped out:
// a dead deadline surfaces as such, everything else as insufficient models.
func (s *CouncilService) exhaustedErr(ctx context.Context, failures []council.ModelFailure) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %d models still pending", ErrPipelineDeadline, len(failures))
	}
	reasons := make([]string, 0, len(failures))
	for _, f := range failures {
		reasons = append(reasons, f.Model+": "+f.Reason)
	}
	return fmt.Errorf("%w: %s", ErrInsufficientModels, strings.Join(reasons, "; "))
}

// escalationHint is advisory: true when the contract permits escalation and
// the deliberation produced no usable consensus signal, either because no
// reviews survived or because the top candidates tied.
func (s *CouncilService) escalationHint(contract tier.Contract, res *council.Result) bool {
	if !contract.OverridePolicy.CanEscalate {
		return false
	}
	rankings := res.Metadata.AggregateRankings
	if len(res.Stage2) == 0 {
		return contract.RequiresPeerReview
	}
	return len(rankings) >= 2 && rankings[0].BordaScore == rankings[1].BordaScore
}

// finish records, publishes and caches a completed deliberation. All sinks
// are best-effort.
func (s *CouncilService) finish(ctx context.Context, res *council.Result) {
	slog.Info("deliberation completed",
		"deliberation_id", res.ID,
		"tier", res.Tier,
		"answers", len(res.Stage1),
		"failed_models", len(res.Metadata.FailedModels),
		"duration_ms", res.Duration.Milliseconds(),
	)
	if s.metrics != nil {
		s.metrics.DeliberationsCompleted.Add(ctx, 1, otel.TierAttr(string(res.Tier)))
		s.metrics.DeliberationDuration.Record(ctx, res.Duration.Seconds(), otel.TierAttr(string(res.Tier)))
		for _, a := range res.Stage1 {
			if a.Usage != nil {
				s.metrics.TokensUsed.Add(ctx, int64(a.Usage.TotalTokens), otel.ModelAttr(a.Model))
			}
		}
	}
	s.publishCompleted(ctx, res)
	s.recordHistory(ctx, res, nil)
	s.cacheStore(ctx, res)
}

// recordHistory persists the deliberation when a history store is wired.
func (s *CouncilService) recordHistory(ctx context.Context, res *council.Result, v *verdictRecord) {
	if s.history == nil {
		return
	}
	rec := history.Record{Result: *res}
	if v != nil {
		rec.Verdict = v.result
	}
	if err := s.history.Record(ctx, rec); err != nil {
		slog.Warn("history record failed", "deliberation_id", res.ID, "error", err)
	}
}

// --- result cache ---

// cacheKey hashes query, tier and pool so a pool override invalidates
// cached verdicts for the same query.
func cacheKey(query string, contract tier.Contract) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(contract.Tier))
	for _, m := range contract.AllowedModels {
		h.Write([]byte{0})
		h.Write([]byte(m))
	}
	return "deliberation:" + hex.EncodeToString(h.Sum(nil))
}

func (s *CouncilService) cacheLookup(ctx context.Context, query string, contract tier.Contract) (*council.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, cacheKey(query, contract))
	if err != nil {
		slog.Warn("cache get failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res council.Result
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Warn("cache entry corrupt, ignoring", "error", err)
		return nil, false
	}
	res.Metadata.FromCache = true
	if s.metrics != nil {
		s.metrics.CacheHits.Add(ctx, 1)
	}
	return &res, true
}

func (s *CouncilService) cacheStore(ctx context.Context, res *council.Result) {
	if s.cache == nil {
		return
	}
	contract, err := s.contractFor(string(res.Tier))
	if err != nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		slog.Warn("cache marshal failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(res.Query, contract), data, s.cacheTTL); err != nil {
		slog.Warn("cache set failed", "error", err)
	}
}
