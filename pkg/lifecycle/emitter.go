// Package lifecycle bridges coordinator lifecycle moments onto the NATS
// event bus. Emission is best-effort: a missing or failed bus never blocks
// the coordinator.
package lifecycle

import (
	"context"
	"time"

	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/pkg/events"
)

// Publisher is the bus side, satisfied by pkg/nats.Publisher.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Emitter publishes BaseEvents for lifecycle codes. A nil inner publisher
// (NATS unavailable at startup) turns Emit into a no-op.
type Emitter struct {
	publisher Publisher
	logger    logger.ILogger
}

func NewEmitter(publisher Publisher, log logger.ILogger) *Emitter {
	return &Emitter{publisher: publisher, logger: log}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if e.publisher == nil {
		return
	}
	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Lifecycle", "Failed to publish lifecycle event", map[string]interface{}{
			"event": eventType, "error": err.Error(),
		})
	}
}
