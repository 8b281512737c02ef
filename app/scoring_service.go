package app

import (
	"context"

	domainaudit "geoanomaly/domain/audit"
	"geoanomaly/domain/core"
	"geoanomaly/domain/scoring"
	"geoanomaly/internal"
	auditor "geoanomaly/internal/audit"
	"geoanomaly/internal/errors"
	scorer "geoanomaly/internal/scoring"
	"geoanomaly/ports"
)

// ScoringService computes quality scores and guards the scoring process
// against manipulation. Hard validation runs synchronously before any
// write; the soft audit runs after and never blocks the response.
type ScoringService struct {
	auditRepo ports.AuditRepository
	auditor   *auditor.Auditor
	events    ports.EventPublisher
	log       *internal.Logger
}

// NewScoringService creates a scoring service.
func NewScoringService(auditRepo ports.AuditRepository, a *auditor.Auditor, events ports.EventPublisher, logger *internal.Logger) *ScoringService {
	return &ScoringService{
		auditRepo: auditRepo,
		auditor:   a,
		events:    events,
		log:       logger.WithPrefix("scoring"),
	}
}

// ScoreSubmission computes the multiplicative quality score. Pure
// function, no side effects.
func (s *ScoringService) ScoreSubmission(sub scoring.SubScores) (scoring.Breakdown, error) {
	return scorer.Score(sub)
}

// AuditOutcome is the result of auditing one scoring attempt.
type AuditOutcome struct {
	Accepted  bool                    `json:"accepted"`
	Fields    []string                `json:"fields,omitempty"`
	Flags     []domainaudit.GamingFlag `json:"flags"`
	RiskScore int                     `json:"risk_score"`
}

// AuditScoringAttempt validates and audits one scoring attempt on a draft.
// On rejection the caller must not persist the new score. Acceptance
// appends an audit entry and emits a submission-scored event.
func (s *ScoringService) AuditScoringAttempt(ctx context.Context, draftID core.DraftID, state domainaudit.DraftState, score float64) (AuditOutcome, error) {
	previous, err := s.auditRepo.Latest(ctx, draftID)
	if err != nil && !core.IsNotFoundError(err) {
		return AuditOutcome{}, err
	}

	// Hard validation precedes persistence: an upgrade without new
	// evidence rejects the attempt outright.
	if previous != nil {
		if verr := auditor.ValidateUpdate(previous.State, state); verr != nil {
			var fields []string
			if appErr, ok := verr.(*errors.AppError); ok {
				fields = appErr.Fields
			}
			s.log.Warn("scoring attempt rejected: draft=%s fields=%v", draftID, fields)
			return AuditOutcome{Accepted: false, Fields: fields}, verr
		}
	}

	priorAttempts, err := s.auditRepo.CountForDraft(ctx, draftID)
	if err != nil {
		return AuditOutcome{}, err
	}

	eval := s.auditor.Evaluate(previous, priorAttempts, draftID, state, score)
	if err := s.auditRepo.Append(ctx, eval.Entry); err != nil {
		return AuditOutcome{}, err
	}

	if len(eval.Flags) > 0 {
		s.log.Info("gaming flags raised: draft=%s flags=%d risk=%d", draftID, len(eval.Flags), eval.RiskScore)
	}

	if s.events != nil {
		event := ports.Event{
			Name:       ports.EventSubmissionScored,
			OccurredAt: core.Now(),
			Payload: map[string]interface{}{
				"draft_id":   draftID.String(),
				"score":      score,
				"risk_score": eval.RiskScore,
			},
		}
		if perr := s.events.Publish(ctx, event); perr != nil {
			s.log.Warn("event publish failed: %v", perr)
		}
	}

	return AuditOutcome{
		Accepted:  true,
		Flags:     eval.Flags,
		RiskScore: eval.RiskScore,
	}, nil
}

// History returns recent audit entries for a draft, newest first.
func (s *ScoringService) History(ctx context.Context, draftID core.DraftID, limit int) ([]*domainaudit.Entry, error) {
	return s.auditRepo.History(ctx, draftID, limit)
}
