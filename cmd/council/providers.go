package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/lana-info/llm-council/internal/adapter/anthropic"
	"github.com/lana-info/llm-council/internal/adapter/gemini"
	"github.com/lana-info/llm-council/internal/adapter/openai"
	"github.com/lana-info/llm-council/internal/adapter/openrouter"
	"github.com/lana-info/llm-council/internal/config"
	"github.com/lana-info/llm-council/internal/port/router"
	"github.com/lana-info/llm-council/internal/secrets"
)

// buildRegistry wires model routers according to the configured provider.
// In openrouter mode every model id goes to one OpenRouter client. In
// native mode each provider prefix gets its own SDK client; prefixes
// without an API key are simply not registered.
func buildRegistry(ctx context.Context, cfg *config.Config, vault *secrets.Vault) (*router.Registry, error) {
	registry := router.NewRegistry()

	if cfg.Router.Provider == "openrouter" {
		key := vault.Get(secrets.KeyOpenRouter)
		if key == "" {
			return nil, errors.New("OPENROUTER_API_KEY is not set")
		}
		registry.SetFallback(openrouter.NewClient(
			cfg.Router.BaseURL, key, cfg.Router.Referer, cfg.Router.Title,
		))
		return registry, nil
	}

	registered := 0
	if key := vault.Get(secrets.KeyOpenAI); key != "" {
		client, err := openai.NewClient(key)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		registry.Register("openai", client)
		registered++
	}
	if key := vault.Get(secrets.KeyAnthropic); key != "" {
		client, err := anthropic.NewClient(key)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		registry.Register("anthropic", client)
		registered++
	}
	key := vault.Get(secrets.KeyGemini)
	if key == "" {
		key = vault.Get(secrets.KeyGoogle)
	}
	if key != "" {
		client, err := gemini.NewClient(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		registry.Register("google", client)
		registered++
	}

	if registered == 0 {
		return nil, errors.New("native provider mode needs at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY")
	}
	return registry, nil
}
