// Package tier defines confidence tiers and the immutable execution
// contract derived from them.
package tier

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tier names a confidence level of the deliberation pipeline.
type Tier string

const (
	Quick     Tier = "quick"
	Balanced  Tier = "balanced"
	High      Tier = "high"
	Reasoning Tier = "reasoning"
)

// ErrInvalidTier indicates a tier name outside the recognized set.
var ErrInvalidTier = errors.New("invalid tier")

// All lists the recognized tiers in escalation order.
func All() []Tier {
	return []Tier{Quick, Balanced, High, Reasoning}
}

// Valid reports whether t is one of the recognized tiers.
func (t Tier) Valid() bool {
	switch t {
	case Quick, Balanced, High, Reasoning:
		return true
	}
	return false
}

// Parse resolves a tier name case-insensitively.
func Parse(name string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q (valid: quick, balanced, high, reasoning): %w", name, ErrInvalidTier)
	}
	return t, nil
}

// OverridePolicy records whether a deliberation at this tier may be re-run
// at a neighboring tier. It records permission only; trigger thresholds are
// the caller's policy.
type OverridePolicy struct {
	CanEscalate   bool `json:"can_escalate"`
	CanDeescalate bool `json:"can_deescalate"`
}

// Contract is the immutable set of execution parameters for one tier.
// Constructed once per request by New and never mutated.
type Contract struct {
	Tier               Tier           `json:"tier"`
	Deadline           time.Duration  `json:"deadline"`
	PerCallTimeout     time.Duration  `json:"per_call_timeout"`
	TokenBudget        int            `json:"token_budget"`
	MaxAttempts        int            `json:"max_attempts"`
	RequiresPeerReview bool           `json:"requires_peer_review"`
	RequiresVerifier   bool           `json:"requires_verifier"`
	AllowedModels      []string       `json:"allowed_models"`
	AggregatorModel    string         `json:"aggregator_model"`
	OverridePolicy     OverridePolicy `json:"override_policy"`
}
