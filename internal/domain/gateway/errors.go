package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for the call-level failure taxonomy. Adapters wrap these
// so callers can classify failures with errors.Is.
var (
	// ErrCallTimeout indicates the per-call deadline was exceeded.
	ErrCallTimeout = errors.New("call timeout")

	// ErrCallFailed indicates the upstream returned a non-ok status.
	ErrCallFailed = errors.New("call failed")

	// ErrRateLimited indicates the upstream rejected the call with a
	// rate-limit response.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidModel indicates the model id is unknown to the transport.
	ErrInvalidModel = errors.New("invalid model")
)

// CallError carries the model identity and status classification of a
// failed call attempt.
type CallError struct {
	Model  string
	Status Status
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s: %s: %v", e.Model, e.Status, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// NewCallError wraps err with the model and status of the failed attempt.
func NewCallError(model string, status Status, err error) *CallError {
	return &CallError{Model: model, Status: status, Err: err}
}

// StatusFromError classifies an adapter error into a call status. The native
// SDKs do not share a typed error surface, so rate limits are matched on
// well-known markers in the message.
func StatusFromError(err error) Status {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, ErrCallTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	if errors.Is(err, ErrRateLimited) {
		return StatusRateLimited
	}
	msg := err.Error()
	if strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "rate limit") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return StatusRateLimited
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	return StatusError
}

// WrapStatus attaches the sentinel matching status to err so callers can
// classify with errors.Is.
func WrapStatus(status Status, err error) error {
	switch status {
	case StatusTimeout:
		return fmt.Errorf("%w: %v", ErrCallTimeout, err)
	case StatusRateLimited:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
}

// IsTransient reports whether a failed call is worth retrying: timeouts,
// rate limits, and network-level errors are; invalid models are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidModel) {
		return false
	}
	if errors.Is(err, ErrCallTimeout) || errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, ErrCallFailed)
}
