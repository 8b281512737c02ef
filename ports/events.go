package ports

import (
	"context"

	"geoanomaly/domain/core"
)

// Event is a fire-and-forget notification emitted by the core. Downstream
// consumers decide whether to trigger further analysis; the core never
// blocks on delivery.
type Event struct {
	Name       string                 `json:"name"`
	OccurredAt core.Timestamp         `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Event names emitted by the core.
const (
	EventSubmissionScored   = "submission.scored"
	EventGridRebuilt        = "grid.rebuilt"
	EventPredictionResolved = "prediction.resolved"
)

// EventPublisher decouples the core from any particular task queue or
// async runtime.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
