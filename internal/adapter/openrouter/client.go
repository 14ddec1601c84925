// Package openrouter routes chat completions through the OpenRouter proxy,
// which fronts models from every provider behind one OpenAI-compatible
// endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lana-info/llm-council/internal/domain/gateway"
)

// DefaultBaseURL is the public OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to the OpenRouter chat completions API.
type Client struct {
	baseURL    string
	apiKey     string
	referer    string
	title      string
	httpClient *http.Client
}

// NewClient creates an OpenRouter client. referer and title are optional
// attribution headers OpenRouter uses for app rankings.
func NewClient(baseURL, apiKey, referer, title string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		referer: referer,
		title:   title,
		httpClient: &http.Client{
			// Per-call deadlines come from the request context; this is the
			// hard ceiling for a single completion.
			Timeout: 10 * time.Minute,
		},
	}
}

// Name returns the router identifier.
func (c *Client) Name() string { return "openrouter" }

// chatRequest is the OpenAI-compatible request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible response format.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Execute sends one chat completion through OpenRouter. Failures are
// classified into the gateway status taxonomy so the caller can decide
// whether to retry.
func (c *Client) Execute(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload, err := buildPayload(req)
	if err != nil {
		return fail(req.Model, 0, gateway.StatusError, fmt.Errorf("marshal request: %w", err))
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fail(req.Model, 0, gateway.StatusError, fmt.Errorf("create request: %w", err))
	}
	c.setHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		latency := time.Since(start).Milliseconds()
		if errors.Is(err, context.DeadlineExceeded) {
			return fail(req.Model, latency, gateway.StatusTimeout, gateway.ErrCallTimeout)
		}
		return fail(req.Model, latency, gateway.StatusError, fmt.Errorf("%w: %v", gateway.ErrCallFailed, err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fail(req.Model, latency, gateway.StatusError, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return failUpstream(req.Model, httpResp, data, latency)
	}

	var wire chatResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return fail(req.Model, latency, gateway.StatusError, fmt.Errorf("parse response: %w", err))
	}
	if wire.Error != nil {
		return fail(req.Model, latency, gateway.StatusError,
			fmt.Errorf("%w: openrouter error %d: %s", gateway.ErrCallFailed, wire.Error.Code, wire.Error.Message))
	}
	if len(wire.Choices) == 0 {
		return fail(req.Model, latency, gateway.StatusError, fmt.Errorf("%w: no choices in response", gateway.ErrCallFailed))
	}

	resp := gateway.Response{
		Content:   wire.Choices[0].Message.Content,
		Model:     req.Model,
		Status:    gateway.StatusOK,
		LatencyMS: latency,
	}
	if wire.Usage != nil {
		resp.Usage = &gateway.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// Ping verifies the OpenRouter API is reachable with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("openrouter ping status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}

// buildPayload serializes the request, folding Extra into the top level of
// the JSON object unvalidated. Extra keys never override core fields.
func buildPayload(req gateway.Request) ([]byte, error) {
	base, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, err
	}
	if len(req.Extra) == 0 {
		return base, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for k, v := range req.Extra {
		if _, exists := obj[k]; exists {
			continue
		}
		obj[k] = v
	}
	return json.Marshal(obj)
}

func buildRequest(req gateway.Request) chatRequest {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

func fail(model string, latency int64, status gateway.Status, err error) (gateway.Response, error) {
	resp := gateway.Response{
		Model:     model,
		Status:    status,
		Error:     err.Error(),
		LatencyMS: latency,
	}
	return resp, gateway.NewCallError(model, status, err)
}

func failUpstream(model string, httpResp *http.Response, body []byte, latency int64) (gateway.Response, error) {
	msg := upstreamMessage(body)
	switch httpResp.StatusCode {
	case http.StatusTooManyRequests:
		resp, err := fail(model, latency, gateway.StatusRateLimited,
			fmt.Errorf("%w: %s", gateway.ErrRateLimited, msg))
		resp.RetryAfter = retryAfter(httpResp.Header)
		return resp, err
	case http.StatusBadRequest, http.StatusNotFound:
		return fail(model, latency, gateway.StatusError,
			fmt.Errorf("%w: %s", gateway.ErrInvalidModel, msg))
	default:
		return fail(model, latency, gateway.StatusError,
			fmt.Errorf("%w: openrouter status %d: %s", gateway.ErrCallFailed, httpResp.StatusCode, msg))
	}
}

// upstreamMessage pulls the error message out of an OpenRouter error body,
// falling back to the raw body.
func upstreamMessage(body []byte) string {
	var wire struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != nil && wire.Error.Message != "" {
		return wire.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
