// Package broadcast defines the port for pushing run events to connected clients.
package broadcast

import (
	"context"

	"github.com/Strob0t/interviewlab/internal/domain/run"
)

// Event types emitted while a run is driven.
const (
	EventRunCreated   = "run.created"
	EventRunTurn      = "run.turn"
	EventRunCompleted = "run.completed"
	EventRunDeleted   = "run.deleted"
)

// RunEvent is the payload of every run event. Entries holds the transcript
// entries appended by the operation that produced the event.
type RunEvent struct {
	RunID     string      `json:"runId"`
	Mode      run.Mode    `json:"mode,omitempty"`
	Status    run.Status  `json:"status,omitempty"`
	TurnCount int         `json:"turnCount"`
	Entries   []run.Entry `json:"entries,omitempty"`
}

// Broadcaster sends events to all connected clients. Delivery is best effort
// and never fails the operation that produced the event.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
