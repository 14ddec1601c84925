// Package gemini is a native router for Google Gemini models using the
// genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

// pingModel is the cheap model used for health probes.
const pingModel = "gemini-2.0-flash-001"

// Client wraps the genai SDK behind the router port.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini router against the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Name returns the router identifier.
func (c *Client) Name() string { return "gemini" }

// Execute sends one generation request to the Gemini API.
func (c *Client) Execute(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case gateway.RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case gateway.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	start := time.Now()
	out, err := c.client.Models.GenerateContent(ctx, modelID(req.Model), contents, cfg)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fail(req.Model, latency, fmt.Errorf("gemini API error: %w", err))
	}
	if out == nil || len(out.Candidates) == 0 {
		return fail(req.Model, latency, fmt.Errorf("gemini returned no candidates"))
	}

	var content strings.Builder
	if out.Candidates[0].Content != nil {
		for _, part := range out.Candidates[0].Content.Parts {
			if part.Text != "" {
				content.WriteString(part.Text)
			}
		}
	}

	resp := gateway.Response{
		Content:   content.String(),
		Model:     req.Model,
		Status:    gateway.StatusOK,
		LatencyMS: latency,
	}
	if out.UsageMetadata != nil {
		resp.Usage = &gateway.Usage{
			PromptTokens:     int(out.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(out.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(out.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

// Ping runs a token count against a cheap model to verify connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.CountTokens(ctx, pingModel, genai.Text("ping"), nil); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// modelID strips the council's provider prefix:
// "google/gemini-2.0-flash-001" -> "gemini-2.0-flash-001".
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
