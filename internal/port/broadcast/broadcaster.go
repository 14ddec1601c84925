// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients. The websocket
// hub implements it; a nil Broadcaster disables live updates.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Event types pushed to websocket clients during a deliberation.
const (
	EventDeliberationStarted   = "deliberation.started"
	EventStageCompleted        = "stage.completed"
	EventModelFailed           = "model.failed"
	EventDeliberationCompleted = "deliberation.completed"
)
