package events

import (
	"context"
	"encoding/json"

	"geoanomaly/internal"
	"geoanomaly/ports"
)

// LogPublisher is the default EventPublisher: it writes events to the
// structured log. Deployments that want real fan-out swap in a queue-backed
// implementation; the core never depends on which one is wired.
type LogPublisher struct {
	log *internal.Logger
}

// NewLogPublisher creates a log-backed event publisher.
func NewLogPublisher(logger *internal.Logger) *LogPublisher {
	return &LogPublisher{log: logger.WithPrefix("events")}
}

// Publish logs the event and returns.
func (p *LogPublisher) Publish(ctx context.Context, event ports.Event) error {
	payload, _ := json.Marshal(event.Payload)
	p.log.Info("%s %s", event.Name, payload)
	return nil
}
