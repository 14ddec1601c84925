package tier

import (
	"slices"
	"time"
)

// Per-tier time budgets. The deadline bounds the whole pipeline; the
// per-call timeout bounds each individual model call.
type timeouts struct {
	total   time.Duration
	perCall time.Duration
}

var tierTimeouts = map[Tier]timeouts{
	Quick:     {total: 30 * time.Second, perCall: 20 * time.Second},
	Balanced:  {total: 90 * time.Second, perCall: 45 * time.Second},
	High:      {total: 180 * time.Second, perCall: 90 * time.Second},
	Reasoning: {total: 600 * time.Second, perCall: 300 * time.Second},
}

// MaxDeadline returns the longest pipeline deadline across all tiers.
// Servers size their write timeouts from it so a slow high-tier
// deliberation is never cut off mid-response.
func MaxDeadline() time.Duration {
	var max time.Duration
	for _, to := range tierTimeouts {
		if to.total > max {
			max = to.total
		}
	}
	return max
}

// Aggregators must be able to comprehend the most elaborate output any
// model in the tier's pool can produce. Never aggregate reasoning-model
// output with a mini model.
var tierAggregators = map[Tier]string{
	Quick:     "openai/gpt-4o-mini",
	Balanced:  "openai/gpt-4o",
	High:      "openai/gpt-4o",
	Reasoning: "anthropic/claude-opus-4-5-20250514",
}

// Default model pools, ordered and provider-diverse. The quick pool holds
// low-latency variants; the reasoning pool holds long chain-of-thought
// models.
var defaultPools = map[Tier][]string{
	Quick: {
		"openai/gpt-4o-mini",
		"google/gemini-2.0-flash-001",
		"anthropic/claude-3-5-haiku",
	},
	Balanced: {
		"openai/gpt-5.1",
		"google/gemini-3-pro-preview",
		"anthropic/claude-opus-4.5",
		"x-ai/grok-4",
	},
	High: {
		"openai/gpt-5.1",
		"google/gemini-3-pro-preview",
		"anthropic/claude-opus-4.5",
		"x-ai/grok-4",
	},
	Reasoning: {
		"openai/o1",
		"deepseek/deepseek-r1",
		"anthropic/claude-opus-4.5",
		"openai/gpt-5.1",
	},
}

// DefaultPool returns the default model pool for a tier. An unrecognized
// tier falls back to the high pool so lookups degrade to the full council
// rather than failing.
func DefaultPool(t Tier) []string {
	pool, ok := defaultPools[t]
	if !ok {
		pool = defaultPools[High]
	}
	return slices.Clone(pool)
}

// Aggregator returns the synthesis model for a tier, falling back to the
// high aggregator for unrecognized tiers.
func Aggregator(t Tier) string {
	if m, ok := tierAggregators[t]; ok {
		return m
	}
	return tierAggregators[High]
}

// New builds the contract for a tier name. The name is resolved
// case-insensitively; an unrecognized name returns ErrInvalidTier. The
// returned contract owns its model slice, so mutating it cannot corrupt
// the preset tables.
func New(name string) (Contract, error) {
	t, err := Parse(name)
	if err != nil {
		return Contract{}, err
	}

	to := tierTimeouts[t]
	c := Contract{
		Tier:            t,
		Deadline:        to.total,
		PerCallTimeout:  to.perCall,
		AllowedModels:   DefaultPool(t),
		AggregatorModel: tierAggregators[t],
	}

	switch t {
	case Quick:
		c.TokenBudget = 2048
		c.MaxAttempts = 1
		c.RequiresPeerReview = false
		c.RequiresVerifier = true
		c.OverridePolicy = OverridePolicy{CanEscalate: true, CanDeescalate: false}
	case Balanced:
		c.TokenBudget = 4096
		c.MaxAttempts = 2
		c.RequiresPeerReview = true
		c.OverridePolicy = OverridePolicy{CanEscalate: true, CanDeescalate: true}
	case High:
		c.TokenBudget = 4096
		c.MaxAttempts = 3
		c.RequiresPeerReview = true
		c.OverridePolicy = OverridePolicy{CanEscalate: true, CanDeescalate: true}
	case Reasoning:
		// Already the top tier: nowhere to escalate to.
		c.TokenBudget = 8192
		c.MaxAttempts = 2
		c.RequiresPeerReview = true
		c.OverridePolicy = OverridePolicy{CanEscalate: false, CanDeescalate: true}
	}

	return c, nil
}

// Defaults returns a freshly built contract per tier. Callers use this as
// a reference table; New remains the source of truth for a request.
func Defaults() map[Tier]Contract {
	out := make(map[Tier]Contract, 4)
	for _, t := range All() {
		c, err := New(string(t))
		if err != nil {
			// Unreachable: All() only yields valid tiers.
			continue
		}
		out[t] = c
	}
	return out
}
