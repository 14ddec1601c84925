// Package router defines the model gateway port. A Router sends a single
// chat completion to an upstream provider, either the OpenRouter proxy or a
// native provider SDK. The council never talks to providers directly.
package router

import (
	"context"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

// Router executes model calls against one upstream.
type Router interface {
	// Name identifies the upstream, e.g. "openrouter" or "openai".
	Name() string

	// Execute performs a single model call. Transport and provider failures
	// are returned as errors; the response carries status and usage when the
	// call reached the upstream.
	Execute(ctx context.Context, req gateway.Request) (gateway.Response, error)
}

// Pinger is implemented by routers that support a cheap liveness probe.
// Health endpoints use it to report upstream reachability without spending
// tokens on a real completion.
type Pinger interface {
	Ping(ctx context.Context) error
}
