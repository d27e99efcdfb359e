package events

import "time"

// Event is the contract for lifecycle events the shell emits onto the bus
// for downstream consumers (analytics, audit).
type Event interface {
	// EventType returns the unique code for this event (e.g. "PROJECT_LOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used for all shell lifecycle events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Lifecycle event codes emitted by the coordinator.
const (
	TypeDataUploaded   = "DATA_UPLOADED"
	TypeDataCleared    = "DATA_CLEARED"
	TypeProjectCreated = "PROJECT_CREATED"
	TypeProjectLoaded  = "PROJECT_LOADED"
)
