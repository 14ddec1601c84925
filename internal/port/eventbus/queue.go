// Package eventbus defines the message queue port (interface).
package eventbus

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for NATS subjects published by the council.
const (
	SubjectDeliberationStarted   = "council.deliberation.started"
	SubjectDeliberationCompleted = "council.deliberation.completed"
	SubjectDeliberationFailed    = "council.deliberation.failed"
	SubjectStageCompleted        = "council.stage.completed"

	// SubjectWildcard matches every council subject. The JetStream stream is
	// configured with it so consumers can filter per subject.
	SubjectWildcard = "council.>"
)
