// Package gateway defines the provider-agnostic request/response envelope
// for a single outbound model call.
package gateway

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Status classifies the outcome of one call attempt.
type Status string

const (
	StatusOK          Status = "ok"
	StatusError       Status = "error"
	StatusTimeout     Status = "timeout"
	StatusRateLimited Status = "rate_limited"
)

// ContentBlock is one typed part of a multi-part message body.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// Message is a single canonical chat message. Content carries plain text;
// Blocks carries structured parts when a provider returns them.
type Message struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content"`
	Blocks     []ContentBlock   `json:"blocks,omitempty"`
	ToolCalls  []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// Request is the envelope for one outbound call. It is built once per
// attempt and never mutated. Extra is an open key/value bag handed to the
// transport untouched; the core does not validate it.
type Request struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Timeout     time.Duration  `json:"timeout,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Usage reports token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the envelope for one completed call attempt. Produced exactly
// once per attempt and never mutated after return.
type Response struct {
	Content    string        `json:"content"`
	Model      string        `json:"model"`
	Status     Status        `json:"status"`
	Usage      *Usage        `json:"usage,omitempty"`
	LatencyMS  int64         `json:"latency_ms,omitempty"`
	Error      string        `json:"error,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// OK reports whether the call produced a usable answer.
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// UserPrompt builds a single-turn request with one user message.
func UserPrompt(model, prompt string, maxTokens int, timeout time.Duration) Request {
	return Request{
		Model:     model,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
		Timeout:   timeout,
	}
}
