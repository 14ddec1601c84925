package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoRouter reports a model id no registered router can serve.
var ErrNoRouter = errors.New("no router for model")

// Registry dispatches model ids to routers by provider prefix. Council model
// ids follow the "provider/model" convention, so "openai/gpt-4o" resolves to
// the router registered under "openai". The fallback takes everything else;
// in openrouter mode it is the only router installed.
type Registry struct {
	mu       sync.RWMutex
	routers  map[string]Router
	fallback Router
}

func NewRegistry() *Registry {
	return &Registry{routers: make(map[string]Router)}
}

// Register binds a provider prefix to a router. Later registrations replace
// earlier ones.
func (r *Registry) Register(prefix string, rt Router) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routers[prefix] = rt
}

// SetFallback installs the router used when no prefix matches.
func (r *Registry) SetFallback(rt Router) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = rt
}

// For resolves the router responsible for a model id.
func (r *Registry) For(model string) (Router, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if prefix, _, ok := strings.Cut(model, "/"); ok {
		if rt, ok := r.routers[prefix]; ok {
			return rt, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("model %q: %w", model, ErrNoRouter)
}

// All returns every distinct router in the registry, sorted by name. Health
// probes iterate this set.
func (r *Registry) All() []Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]Router, len(r.routers)+1)
	for _, rt := range r.routers {
		seen[rt.Name()] = rt
	}
	if r.fallback != nil {
		seen[r.fallback.Name()] = r.fallback
	}
	all := make([]Router, 0, len(seen))
	for _, rt := range seen {
		all = append(all, rt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}
