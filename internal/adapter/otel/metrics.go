package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "llm-council"

// Metrics holds the council metric instruments. A nil *Metrics disables
// recording; the service guards every use.
type Metrics struct {
	DeliberationsStarted   metric.Int64Counter
	DeliberationsCompleted metric.Int64Counter
	DeliberationsFailed    metric.Int64Counter
	DeliberationDuration   metric.Float64Histogram
	ModelCalls             metric.Int64Counter
	ModelFailures          metric.Int64Counter
	TokensUsed             metric.Int64Counter
	CacheHits              metric.Int64Counter
	BreakerTransitions     metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DeliberationsStarted, err = meter.Int64Counter("council.deliberations.started",
		metric.WithDescription("Number of deliberations started"))
	if err != nil {
		return nil, err
	}

	m.DeliberationsCompleted, err = meter.Int64Counter("council.deliberations.completed",
		metric.WithDescription("Number of deliberations completed"))
	if err != nil {
		return nil, err
	}

	m.DeliberationsFailed, err = meter.Int64Counter("council.deliberations.failed",
		metric.WithDescription("Number of deliberations that failed outright"))
	if err != nil {
		return nil, err
	}

	m.DeliberationDuration, err = meter.Float64Histogram("council.deliberation.duration_seconds",
		metric.WithDescription("Wall-clock duration of one deliberation in seconds"))
	if err != nil {
		return nil, err
	}

	m.ModelCalls, err = meter.Int64Counter("council.model.calls",
		metric.WithDescription("Number of successful upstream model calls"))
	if err != nil {
		return nil, err
	}

	m.ModelFailures, err = meter.Int64Counter("council.model.failures",
		metric.WithDescription("Number of models dropped from a deliberation"))
	if err != nil {
		return nil, err
	}

	m.TokensUsed, err = meter.Int64Counter("council.tokens.used",
		metric.WithDescription("Total tokens consumed by council calls"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("council.cache.hits",
		metric.WithDescription("Number of deliberations served from cache"))
	if err != nil {
		return nil, err
	}

	m.BreakerTransitions, err = meter.Int64Counter("council.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions per upstream"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// TierAttr tags a measurement with the deliberation tier.
func TierAttr(tier string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tier", tier))
}

// ModelAttr tags a measurement with the model id.
func ModelAttr(model string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("model", model))
}

// TransitionAttrs tags a breaker transition with the upstream name and the
// states on both sides of the change.
func TransitionAttrs(name, from, to string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("upstream", name),
		attribute.String("from", from),
		attribute.String("to", to),
	)
}
