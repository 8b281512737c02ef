package app

import (
	"context"

	"geoanomaly/domain/core"
	"geoanomaly/domain/prediction"
	"geoanomaly/internal"
	"geoanomaly/internal/lifecycle"
	"geoanomaly/ports"
)

// PredictionService drives the prediction lifecycle. Recomputation is
// serialized per prediction and retried on concurrent-update conflict; a
// missed transition is a correctness defect, so conflicts are never
// swallowed.
type PredictionService struct {
	repo    ports.PredictionRepository
	machine *lifecycle.Machine
	events  ports.EventPublisher
	log     *internal.Logger

	// maxRetries bounds optimistic retry on update conflict.
	maxRetries int
}

// NewPredictionService creates a prediction service.
func NewPredictionService(repo ports.PredictionRepository, machine *lifecycle.Machine, events ports.EventPublisher, logger *internal.Logger) *PredictionService {
	return &PredictionService{
		repo:       repo,
		machine:    machine,
		events:     events,
		log:        logger.WithPrefix("prediction"),
		maxRetries: 3,
	}
}

// AcceptResult stores an accepted test result and recomputes the owning
// prediction's status.
func (s *PredictionService) AcceptResult(ctx context.Context, result *prediction.TestResult) (prediction.Status, error) {
	if err := s.repo.SaveResult(ctx, result); err != nil {
		return "", err
	}
	return s.RecomputeStatus(ctx, result.PredictionID)
}

// RecomputeStatus recomputes a prediction's status from its current
// qualifying-result set. Idempotent and order-independent: the status is a
// pure aggregate of the set, not an incremental counter.
func (s *PredictionService) RecomputeStatus(ctx context.Context, id core.PredictionID) (prediction.Status, error) {
	unlock := s.machine.Lock(id)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		p, err := s.repo.GetPrediction(ctx, id)
		if err != nil {
			return "", err
		}
		if p.Status.IsTerminal() {
			return p.Status, nil
		}

		results, err := s.repo.ListQualifyingResults(ctx, id, s.machine.MinQuality())
		if err != nil {
			return "", err
		}

		before := p.Status
		next, agg := s.machine.Recompute(p, results)
		if next == before {
			return next, nil
		}

		if err := s.repo.UpdateStatus(ctx, p); err != nil {
			if core.IsConflictError(err) {
				lastErr = err
				continue // retry with fresh data
			}
			return "", err
		}

		s.log.Info("prediction %s: %s -> %s (n=%d, support=%.2f, avg_p=%.4f)",
			id, before, next, agg.TotalSampleSize, agg.SupportPercent, agg.AvgSignificantP)

		if next.IsTerminal() && s.events != nil {
			event := ports.Event{
				Name:       ports.EventPredictionResolved,
				OccurredAt: core.Now(),
				Payload: map[string]interface{}{
					"prediction_id": id.String(),
					"status":        string(next),
				},
			}
			if perr := s.events.Publish(ctx, event); perr != nil {
				s.log.Warn("event publish failed: %v", perr)
			}
		}
		return next, nil
	}
	return "", lastErr
}
