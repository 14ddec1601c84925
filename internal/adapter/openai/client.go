// Package openai is a native router for OpenAI models using the official SDK.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

// Client wraps the OpenAI SDK behind the router port.
type Client struct {
	client openaigo.Client
}

// NewClient creates an OpenAI router. Extra options are mainly for tests.
func NewClient(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	// Retries are the caller's concern; the SDK's own retry loop stays off.
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &Client{client: openaigo.NewClient(append(base, opts...)...)}, nil
}

// Name returns the router identifier.
func (c *Client) Name() string { return "openai" }

// Execute sends one chat completion to the OpenAI API.
func (c *Client) Execute(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	msgs := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case gateway.RoleSystem:
			msgs = append(msgs, openaigo.SystemMessage(m.Content))
		case gateway.RoleAssistant:
			msgs = append(msgs, openaigo.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openaigo.UserMessage(m.Content))
		}
	}

	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(modelID(req.Model)),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openaigo.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openaigo.Float(*req.Temperature)
	}

	start := time.Now()
	out, err := c.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fail(req.Model, latency, fmt.Errorf("openai API error: %w", err))
	}
	if len(out.Choices) == 0 {
		return fail(req.Model, latency, fmt.Errorf("openai returned no choices"))
	}

	return gateway.Response{
		Content:   out.Choices[0].Message.Content,
		Model:     req.Model,
		Status:    gateway.StatusOK,
		LatencyMS: latency,
		Usage: &gateway.Usage{
			PromptTokens:     int(out.Usage.PromptTokens),
			CompletionTokens: int(out.Usage.CompletionTokens),
			TotalTokens:      int(out.Usage.TotalTokens),
		},
	}, nil
}

// Ping lists models to verify the API key and connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}

// modelID strips the council's provider prefix: "openai/gpt-4o" -> "gpt-4o".
func modelID(model string) string {
	if _, rest, ok := strings.Cut(model, "/"); ok {
		return rest
	}
	return model
}

func fail(model string, latency int64, err error) (gateway.Response, error) {
	status := gateway.StatusFromError(err)
	resp := gateway.Response{
		Model:     model,
		Status:    status,
		Error:     err.Error(),
		LatencyMS: latency,
	}
	return resp, gateway.NewCallError(model, status, gateway.WrapStatus(status, err))
}
