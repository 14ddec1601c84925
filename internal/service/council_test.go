package service_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lana-info/llm-council/internal/config"
	"github.com/lana-info/llm-council/internal/domain/gateway"
	"github.com/lana-info/llm-council/internal/domain/tier"
	"github.com/lana-info/llm-council/internal/port/history"
	"github.com/lana-info/llm-council/internal/port/router"
	"github.com/lana-info/llm-council/internal/resilience"
	"github.com/lana-info/llm-council/internal/secrets"
	"github.com/lana-info/llm-council/internal/service"
)

// --- Fakes ---

var labelPattern = regexp.MustCompile(`Response [A-Z]+`)

// fakeRouter answers every stage prompt with canned content. Review
// prompts get a well-formed ranking of whatever labels the prompt lists;
// synthesis prompts get the configured chairman text.
type fakeRouter struct {
	mu        sync.Mutex
	failures  map[string]error
	synthesis string
	calls     []string
	prompts   []string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		failures:  make(map[string]error),
		synthesis: "The council agrees the answer is 4.",
	}
}

func (f *fakeRouter) Name() string { return "fake" }

func (f *fakeRouter) Execute(_ context.Context, req gateway.Request) (gateway.Response, error) {
	prompt := req.Messages[len(req.Messages)-1].Content

	f.mu.Lock()
	f.calls = append(f.calls, req.Model)
	f.prompts = append(f.prompts, prompt)
	err := f.failures[req.Model]
	f.mu.Unlock()

	if err != nil {
		return gateway.Response{Status: gateway.StatusFromError(err)}, err
	}

	var content string
	switch {
	case strings.Contains(prompt, "reviewing anonymized answers"):
		content = reviewJSON(prompt)
	case strings.Contains(prompt, "You are the chairman"):
		content = f.synthesis
	case strings.Contains(prompt, "Sanity-check"):
		content = "No issues spotted."
	default:
		content = "answer to the question from " + req.Model
	}
	return gateway.Response{
		Content:   content,
		Model:     req.Model,
		Status:    gateway.StatusOK,
		Usage:     &gateway.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		LatencyMS: 5,
	}, nil
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRouter) sawPrompt(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}

// reviewJSON builds a valid review for the labels the prompt presents,
// ranking them in order of appearance with uniform rubric scores.
func reviewJSON(prompt string) string {
	seen := make(map[string]bool)
	var labels []string
	for _, l := range labelPattern.FindAllString(prompt, -1) {
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}

	var b strings.Builder
	b.WriteString(`{"ranking": [`)
	for i, l := range labels {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", l)
	}
	b.WriteString(`], "rubric_scores": {`)
	for i, l := range labels {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `%q: {"accuracy": 8, "relevance": 8, "completeness": 8, "conciseness": 8, "clarity": 8}`, l)
	}
	b.WriteString("}}")
	return b.String()
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{items: make(map[string][]byte)} }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records map[string]history.Record
}

func newFakeHistory() *fakeHistory { return &fakeHistory{records: make(map[string]history.Record)} }

func (h *fakeHistory) Record(_ context.Context, rec history.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[rec.Result.ID] = rec
	return nil
}

func (h *fakeHistory) Get(_ context.Context, id string) (*history.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &rec, nil
}

func (h *fakeHistory) ListRecent(_ context.Context, _ int) ([]history.Summary, error) {
	return nil, nil
}

// --- Harness ---

var testPool = []string{"fake/alpha", "fake/beta", "fake/gamma", "fake/delta"}

func testConfig() config.Council {
	return config.Council{
		DefaultTier:      "balanced",
		Normalize:        "off",
		MaxConcurrent:    4,
		VerifyThreshold:  0.7,
		ExcludeSelfVotes: true,
		Chairman:         "fake/chairman",
		Pools: map[string][]string{
			"quick":    testPool,
			"balanced": testPool,
		},
	}
}

func newTestService(rt *fakeRouter, deps service.CouncilDeps) *service.CouncilService {
	registry := router.NewRegistry()
	registry.Register("fake", rt)
	deps.Routers = registry
	if deps.Breakers == nil {
		deps.Breakers = resilience.NewGroup(5, 1, time.Minute)
	}
	return service.NewCouncilService(testConfig(), time.Minute, deps)
}

// --- Tests ---

func TestDeliberateFullPipeline(t *testing.T) {
	rt := newFakeRouter()
	rt.failures["fake/delta"] = fmt.Errorf("model fake/delta: %w", gateway.ErrInvalidModel)
	svc := newTestService(rt, service.CouncilDeps{})

	res, err := svc.Deliberate(context.Background(), "what is 2+2", "balanced")
	if err != nil {
		t.Fatalf("Deliberate() error = %v", err)
	}

	if res.Tier != tier.Balanced {
		t.Errorf("tier = %q", res.Tier)
	}
	if len(res.Stage1) != 3 {
		t.Fatalf("expected 3 answers after one model drop, got %d", len(res.Stage1))
	}
	for i, a := range res.Stage1 {
		want := fmt.Sprintf("Response %c", 'A'+i)
		if a.Label != want {
			t.Errorf("answer %d label = %q, want %q", i, a.Label, want)
		}
	}
	if len(res.Metadata.FailedModels) != 1 {
		t.Fatalf("expected 1 failure annotation, got %d", len(res.Metadata.FailedModels))
	}
	failure := res.Metadata.FailedModels[0]
	if failure.Model != "fake/delta" || failure.Stage != "answers" {
		t.Errorf("failure = %+v", failure)
	}
	if len(res.Stage2) != 3 {
		t.Fatalf("expected 3 peer reviews, got %d", len(res.Stage2))
	}
	if len(res.Metadata.AggregateRankings) != 3 {
		t.Fatalf("expected 3 aggregate rankings, got %d", len(res.Metadata.AggregateRankings))
	}
	if len(res.Metadata.RubricScores) == 0 {
		t.Error("expected aggregated rubric scores")
	}
	if res.Stage3.Content != rt.synthesis {
		t.Errorf("synthesis = %q", res.Stage3.Content)
	}
	if res.Stage3.Model != "fake/chairman" {
		t.Errorf("chairman = %q", res.Stage3.Model)
	}
	if res.ID == "" || res.Duration <= 0 {
		t.Errorf("missing bookkeeping: id=%q duration=%v", res.ID, res.Duration)
	}
}

func TestDeliberateInvalidTier(t *testing.T) {
	svc := newTestService(newFakeRouter(), service.CouncilDeps{})

	_, err := svc.Deliberate(context.Background(), "q", "turbo")
	if !errors.Is(err, tier.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestDeliberateExhaustedPool(t *testing.T) {
	rt := newFakeRouter()
	for _, m := range testPool {
		rt.failures[m] = fmt.Errorf("model %s: %w", m, gateway.ErrInvalidModel)
	}
	svc := newTestService(rt, service.CouncilDeps{})

	_, err := svc.Deliberate(context.Background(), "q", "balanced")
	if !errors.Is(err, service.ErrInsufficientModels) {
		t.Fatalf("expected ErrInsufficientModels, got %v", err)
	}
}

func TestDeliberateQuickTierSkipsPeerReview(t *testing.T) {
	rt := newFakeRouter()
	svc := newTestService(rt, service.CouncilDeps{})

	res, err := svc.Deliberate(context.Background(), "q", "quick")
	if err != nil {
		t.Fatalf("Deliberate() error = %v", err)
	}
	if len(res.Stage2) != 0 {
		t.Errorf("quick tier ran peer review: %d reviews", len(res.Stage2))
	}
	if !rt.sawPrompt("Sanity-check") {
		t.Error("quick tier did not run the verifier")
	}
	if len(res.Metadata.AggregateRankings) != 0 {
		t.Errorf("quick tier produced rankings: %v", res.Metadata.AggregateRankings)
	}
}

func TestDeliberateCachesResult(t *testing.T) {
	rt := newFakeRouter()
	c := newFakeCache()
	svc := newTestService(rt, service.CouncilDeps{Cache: c})

	first, err := svc.Deliberate(context.Background(), "what is 2+2", "balanced")
	if err != nil {
		t.Fatalf("first Deliberate() error = %v", err)
	}
	if first.Metadata.FromCache {
		t.Fatal("first run must not come from cache")
	}
	callsAfterFirst := rt.callCount()

	second, err := svc.Deliberate(context.Background(), "what is 2+2", "balanced")
	if err != nil {
		t.Fatalf("second Deliberate() error = %v", err)
	}
	if !second.Metadata.FromCache {
		t.Fatal("second run should be served from cache")
	}
	if second.ID != first.ID {
		t.Errorf("cached result id = %q, want %q", second.ID, first.ID)
	}
	if rt.callCount() != callsAfterFirst {
		t.Errorf("cache hit still called models: %d -> %d", callsAfterFirst, rt.callCount())
	}
}

func TestDeliberateDistinctTiersMissCache(t *testing.T) {
	rt := newFakeRouter()
	c := newFakeCache()
	svc := newTestService(rt, service.CouncilDeps{Cache: c})

	if _, err := svc.Deliberate(context.Background(), "q", "balanced"); err != nil {
		t.Fatalf("balanced: %v", err)
	}
	res, err := svc.Deliberate(context.Background(), "q", "quick")
	if err != nil {
		t.Fatalf("quick: %v", err)
	}
	if res.Metadata.FromCache {
		t.Error("different tier must not share a cache entry")
	}
}

func TestDeliberateRecordsHistory(t *testing.T) {
	rt := newFakeRouter()
	hist := newFakeHistory()
	svc := newTestService(rt, service.CouncilDeps{History: hist})

	res, err := svc.Deliberate(context.Background(), "q", "balanced")
	if err != nil {
		t.Fatalf("Deliberate() error = %v", err)
	}

	rec, err := hist.Get(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("deliberation not recorded: %v", err)
	}
	if rec.Verdict != nil {
		t.Error("plain deliberation must not carry a verdict")
	}
}

func TestDeliberateOpenBreakerFailsFast(t *testing.T) {
	rt := newFakeRouter()
	breakers := resilience.NewGroup(1, 1, time.Minute)
	// One recorded failure trips the single-failure-threshold breaker for
	// the shared fake endpoint.
	breakers.For("fake").RecordFailure()

	svc := newTestService(rt, service.CouncilDeps{Breakers: breakers})

	_, err := svc.Deliberate(context.Background(), "q", "balanced")
	if !errors.Is(err, service.ErrInsufficientModels) {
		t.Fatalf("expected ErrInsufficientModels with open breaker, got %v", err)
	}
	if rt.callCount() != 0 {
		t.Errorf("open breaker still executed %d calls", rt.callCount())
	}
}

func TestDeliberateRedactsCredentialsInFailureReasons(t *testing.T) {
	const apiKey = "sk-or-v1-deadbeefcafe"

	vault, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{secrets.KeyOpenRouter: apiKey}, nil
	})
	if err != nil {
		t.Fatalf("NewVault() error = %v", err)
	}

	// Provider error bodies sometimes echo the authorization header back.
	rt := newFakeRouter()
	rt.failures["fake/delta"] = fmt.Errorf("model fake/delta: %w: bad token %s", gateway.ErrInvalidModel, apiKey)
	svc := newTestService(rt, service.CouncilDeps{Secrets: vault})

	res, err := svc.Deliberate(context.Background(), "what is 2+2", "balanced")
	if err != nil {
		t.Fatalf("Deliberate() error = %v", err)
	}
	if len(res.Metadata.FailedModels) != 1 {
		t.Fatalf("expected 1 failure annotation, got %d", len(res.Metadata.FailedModels))
	}
	reason := res.Metadata.FailedModels[0].Reason
	if strings.Contains(reason, apiKey) {
		t.Fatalf("failure reason leaked the credential: %q", reason)
	}
	if !strings.Contains(reason, "sk****") {
		t.Errorf("failure reason = %q, want masked credential", reason)
	}
}
