package service

import (
	"context"
	"time"

	"github.com/lana-info/llm-council/internal/port/router"
	"github.com/lana-info/llm-council/internal/resilience"
)

// probeTimeout bounds one upstream liveness probe.
const probeTimeout = 10 * time.Second

// RouterHealth reports one upstream's reachability.
type RouterHealth struct {
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Health is the council's readiness snapshot: every upstream probed plus
// every breaker's state.
type Health struct {
	Ready    bool               `json:"ready"`
	Routers  []RouterHealth     `json:"routers"`
	Breakers []resilience.Stats `json:"breakers"`
}

// HealthCheck probes every registered router and snapshots the breakers.
// The council is ready when at least one upstream answers.
func (s *CouncilService) HealthCheck(ctx context.Context) Health {
	h := Health{Breakers: s.breakers.Stats()}

	for _, rt := range s.routers.All() {
		rh := RouterHealth{Name: rt.Name()}
		p, ok := rt.(router.Pinger)
		if !ok {
			// No cheap probe; assume reachable and let the breaker
			// report reality.
			rh.Ready = true
			h.Routers = append(h.Routers, rh)
			h.Ready = true
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		start := time.Now()
		err := p.Ping(probeCtx)
		cancel()

		rh.LatencyMS = time.Since(start).Milliseconds()
		if err != nil {
			rh.Error = err.Error()
		} else {
			rh.Ready = true
			h.Ready = true
		}
		h.Routers = append(h.Routers, rh)
	}
	return h
}
