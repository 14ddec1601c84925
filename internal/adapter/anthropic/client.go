// Package anthropic is a native router for Claude models using the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

// defaultMaxTokens applies when the request carries no token budget; the
// Anthropic API requires max_tokens on every call.
const defaultMaxTokens = 4096

// Client wraps the Anthropic SDK behind the router port.
type Client struct {
	client anthropicsdk.Client
}

// NewClient creates an Anthropic router. Extra options are mainly for tests.
func NewClient(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &Client{client: anthropicsdk.NewClient(append(base, opts...)...)}, nil
}

// Name returns the router identifier.
func (c *Client) Name() string { return "anthropic" }

// Execute sends one message to the Anthropic API.
func (c *Client) Execute(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var system strings.Builder
	msgs := make([]anthropicsdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case gateway.RoleSystem:
			// The Anthropic API carries the system prompt outside the
			// message list.
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
		case gateway.RoleAssistant:
			msgs = append(msgs, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(modelID(req.Model)),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system.Len() > 0 {
		params.System = []anthropicsdk.TextBlockParam{{Text: system.String()}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*req.Temperature)
	}

	start := time.Now()
	out, err := c.client.Messages.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fail(req.Model, latency, fmt.Errorf("anthropic API error: %w", err))
	}

	var content strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := &gateway.Usage{
		PromptTokens:     int(out.Usage.InputTokens),
		CompletionTokens: int(out.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	return gateway.Response{
		Content:   content.String(),
		Model:     req.Model,
		Status:    gateway.StatusOK,
		LatencyMS: latency,
		Usage:     usage,
	}, nil
}

// Ping lists models to verify the API key and connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropicsdk.ModelListParams{}); err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	return nil
}

// modelID strips the council's provider prefix:
// "anthropic/claude-opus-4.5" -> "claude-opus-4.5".
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
