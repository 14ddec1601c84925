package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lana-info/llm-council/internal/adapter/otel"
	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/tier"
	"github.com/lana-info/llm-council/internal/port/broadcast"
	"github.com/lana-info/llm-council/internal/port/eventbus"
)

// Event emission for the deliberation lifecycle. NATS and the websocket hub
// are both optional infrastructure: a nil queue or hub silently drops the
// event, and a publish failure never disturbs the pipeline.

func (s *CouncilService) publish(ctx context.Context, subject string, payload any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event marshal failed", "subject", subject, "error", err)
		return
	}
	if err := s.events.Publish(ctx, subject, data); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

func (s *CouncilService) broadcastEvent(ctx context.Context, eventType string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, eventType, payload)
}

func (s *CouncilService) publishStarted(ctx context.Context, id string, contract tier.Contract, query string) {
	payload := eventbus.DeliberationStartedPayload{
		DeliberationID: id,
		Tier:           string(contract.Tier),
		Query:          query,
		Models:         contract.AllowedModels,
	}
	s.publish(ctx, eventbus.SubjectDeliberationStarted, payload)
	s.broadcastEvent(ctx, broadcast.EventDeliberationStarted, payload)
}

func (s *CouncilService) publishStage(ctx context.Context, id, stage string, answers []council.Answer, failures []council.ModelFailure, elapsed time.Duration) {
	models := make([]string, 0, len(answers))
	for _, a := range answers {
		models = append(models, a.Model)
	}
	failed := make([]string, 0, len(failures))
	for _, f := range failures {
		failed = append(failed, f.Model)
		s.broadcastEvent(ctx, broadcast.EventModelFailed, f)
	}
	payload := eventbus.StageCompletedPayload{
		DeliberationID: id,
		Stage:          stage,
		Models:         models,
		FailedModels:   failed,
		DurationMS:     elapsed.Milliseconds(),
	}
	s.publish(ctx, eventbus.SubjectStageCompleted, payload)
	s.broadcastEvent(ctx, broadcast.EventStageCompleted, payload)
}

func (s *CouncilService) publishCompleted(ctx context.Context, res *council.Result) {
	winner := ""
	if len(res.Metadata.AggregateRankings) > 0 {
		winner = res.Metadata.AggregateRankings[0].Model
	}
	payload := eventbus.DeliberationCompletedPayload{
		DeliberationID: res.ID,
		Tier:           string(res.Tier),
		WinnerModel:    winner,
		AnswerCount:    len(res.Stage1),
		FromCache:      res.Metadata.FromCache,
		DurationMS:     res.Duration.Milliseconds(),
	}
	s.publish(ctx, eventbus.SubjectDeliberationCompleted, payload)
	s.broadcastEvent(ctx, broadcast.EventDeliberationCompleted, payload)
}

func (s *CouncilService) publishFailed(ctx context.Context, id string, contract tier.Contract, err error) {
	reason := s.redactErr(err)
	slog.Error("deliberation failed", "deliberation_id", id, "tier", contract.Tier, "error", reason)
	if s.metrics != nil {
		s.metrics.DeliberationsFailed.Add(ctx, 1, otel.TierAttr(string(contract.Tier)))
	}
	payload := eventbus.DeliberationFailedPayload{
		DeliberationID: id,
		Tier:           string(contract.Tier),
		Reason:         reason,
	}
	s.publish(ctx, eventbus.SubjectDeliberationFailed, payload)
}
