package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/skill"
	"github.com/lana-info/llm-council/internal/domain/verdict"
	"github.com/lana-info/llm-council/internal/port/history"
	"github.com/lana-info/llm-council/internal/resilience"
	"github.com/lana-info/llm-council/internal/service"
)

const maxQueryLength = 8000

// Deliberator runs a full council deliberation.
type Deliberator interface {
	Deliberate(ctx context.Context, query, tierName string) (*council.Result, error)
}

// Verifier runs a verification deliberation and extracts a verdict.
type Verifier interface {
	Verify(ctx context.Context, query, tierName string, threshold float64) (*verdict.Result, *council.Result, error)
}

// HealthChecker reports router readiness and breaker state.
type HealthChecker interface {
	HealthCheck(ctx context.Context) service.Health
}

// SkillReader provides read access to the skill library.
type SkillReader interface {
	List() ([]string, error)
	LoadMetadata(name string) (skill.Metadata, error)
	LoadFull(name string) (skill.Skill, error)
}

// WSHandler upgrades a request to a progress-event WebSocket.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Handlers holds the HTTP handler dependencies. Optional fields (History,
// Skills, Hub) may be nil; the corresponding endpoints then report the
// feature as unavailable.
type Handlers struct {
	Council  Deliberator
	Verifier Verifier
	Health   HealthChecker
	History  history.Store
	Skills   SkillReader
	Breakers *resilience.Group
	Hub      WSHandler

	DefaultTier string
}

// deliberationRequest is the POST /deliberations body. When Verify is
// true the deliberation runs in verification mode and the response
// carries a verdict.
type deliberationRequest struct {
	Query               string  `json:"query"`
	Tier                string  `json:"tier,omitempty"`
	Verify              bool    `json:"verify,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
}

// CreateDeliberation runs one deliberation synchronously and returns the
// full result. Clients wanting progress subscribe to /ws first.
func (h *Handlers) CreateDeliberation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[deliberationRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Query, "query") {
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query too long")
		return
	}
	tierName := req.Tier
	if tierName == "" {
		tierName = h.DefaultTier
	}

	if req.Verify {
		if h.Verifier == nil {
			writeError(w, http.StatusServiceUnavailable, "verification not configured")
			return
		}
		v, res, err := h.Verifier.Verify(r.Context(), req.Query, tierName, req.ConfidenceThreshold)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history.Record{Result: *res, Verdict: v})
		return
	}

	res, err := h.Council.Deliberate(r.Context(), req.Query, tierName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history.Record{Result: *res})
}

// ListDeliberations returns summaries of recent deliberations from the
// history store.
func (h *Handlers) ListDeliberations(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}
	summaries, err := h.History.ListRecent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if summaries == nil {
		summaries = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetDeliberation returns one stored deliberation by id.
func (h *Handlers) GetDeliberation(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	id := urlParam(r, "id")
	rec, err := h.History.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "deliberation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetBreakers returns a stats snapshot of every circuit breaker.
func (h *Handlers) GetBreakers(w http.ResponseWriter, _ *http.Request) {
	if h.Breakers == nil {
		writeJSON(w, http.StatusOK, []resilience.Stats{})
		return
	}
	stats := h.Breakers.Stats()
	if stats == nil {
		stats = []resilience.Stats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListSkills returns metadata for every available skill.
func (h *Handlers) ListSkills(w http.ResponseWriter, _ *http.Request) {
	if h.Skills == nil {
		writeError(w, http.StatusServiceUnavailable, "skills not configured")
		return
	}
	names, err := h.Skills.List()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	metas := make([]skill.Metadata, 0, len(names))
	for _, name := range names {
		meta, err := h.Skills.LoadMetadata(name)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	writeJSON(w, http.StatusOK, metas)
}

// GetSkill returns the full skill (metadata plus instruction body).
func (h *Handlers) GetSkill(w http.ResponseWriter, r *http.Request) {
	if h.Skills == nil {
		writeError(w, http.StatusServiceUnavailable, "skills not configured")
		return
	}
	name := urlParam(r, "name")
	if err := sanitizeName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sk, err := h.Skills.LoadFull(name)
	if err != nil {
		writeDomainError(w, err, "skill not found")
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

// Healthz is the liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is the readiness probe: it pings every router and reports
// breaker state, returning 503 until at least one router answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.Health == nil {
		writeError(w, http.StatusServiceUnavailable, "health checker not configured")
		return
	}
	health := h.Health.HealthCheck(r.Context())
	status := http.StatusOK
	if !health.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// HandleWS upgrades the connection and streams deliberation progress
// events.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket hub not configured")
		return
	}
	h.Hub.HandleWS(w, r)
}
