package resilience

import (
	"sort"
	"sync"
	"time"
)

// Group manages one breaker per endpoint name, creating them lazily with a
// shared configuration. Breakers live for the process lifetime.
type Group struct {
	failureThreshold int
	successThreshold int
	timeout          time.Duration

	mu           sync.Mutex
	breakers     map[string]*Breaker
	onTransition func(name string, from, to State)
}

// NewGroup creates a breaker group. Zero values select the package defaults.
func NewGroup(failureThreshold, successThreshold int, timeout time.Duration) *Group {
	return &Group{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		breakers:         make(map[string]*Breaker),
	}
}

// For returns the breaker for the named endpoint, creating it on first use.
func (g *Group) For(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[name]
	if !ok {
		b = NewBreaker(name, g.failureThreshold, g.successThreshold, g.timeout)
		if g.onTransition != nil {
			b.OnTransition(g.onTransition)
		}
		g.breakers[name] = b
	}
	return b
}

// OnTransition registers fn on every breaker in the group, including ones
// created later. The breaker lock is held during fn; see Breaker.OnTransition.
func (g *Group) OnTransition(fn func(name string, from, to State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onTransition = fn
	for _, b := range g.breakers {
		b.OnTransition(fn)
	}
}

// Stats returns snapshots of all breakers, sorted by endpoint name.
func (g *Group) Stats() []Stats {
	g.mu.Lock()
	breakers := make([]*Breaker, 0, len(g.breakers))
	for _, b := range g.breakers {
		breakers = append(breakers, b)
	}
	g.mu.Unlock()

	stats := make([]Stats, 0, len(breakers))
	for _, b := range breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
