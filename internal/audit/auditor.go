package audit

import (
	"fmt"

	"geoanomaly/domain/audit"
	"geoanomaly/domain/core"
	"geoanomaly/internal/config"
)

// Auditor evaluates scoring attempts against the audit history and raises
// gaming flags. Flagging is informational: it never blocks the write. The
// synchronous rejection path lives in Validator.
type Auditor struct {
	cfg config.AuditConfig
}

// NewAuditor creates a gaming auditor.
func NewAuditor(cfg config.AuditConfig) *Auditor {
	return &Auditor{cfg: cfg}
}

// Evaluation is the outcome of auditing one scoring attempt.
type Evaluation struct {
	Entry     *audit.Entry
	Flags     []audit.GamingFlag
	RiskScore int
}

// Evaluate audits one scoring attempt. previous is the most recent audit
// entry for the draft (nil on first attempt); priorAttempts is how many
// entries already exist. Drift comparison always uses the single most
// recent entry, not a rolling average, so incremental doctoring can stay
// under the threshold.
func (a *Auditor) Evaluate(previous *audit.Entry, priorAttempts int, draftID core.DraftID, current audit.DraftState, currentScore float64) Evaluation {
	entry := &audit.Entry{
		ID:          core.NewID(),
		DraftID:     draftID,
		ContentHash: current.ContentHash(),
		State:       current,
		Score:       currentScore,
		CreatedAt:   core.Now(),
	}

	var flags []audit.GamingFlag

	if previous != nil {
		entry.Changes = DiffStates(previous.State, current)
		newEvidence := NewEvidenceCount(previous.State, current)

		if delta := currentScore - previous.Score; delta >= a.cfg.DriftThreshold && newEvidence == 0 {
			flags = append(flags, audit.GamingFlag{
				Type:     audit.FlagRigorDrift,
				Severity: audit.SeverityMedium,
				Reason:   fmt.Sprintf("score increased by %.1f points with no new evidence", delta),
				Details: map[string]interface{}{
					"previous_score": previous.Score,
					"current_score":  currentScore,
				},
			})
		}

		if upgrades := credentialUpgrades(entry.Changes); len(upgrades) > 0 && newEvidence == 0 {
			flags = append(flags, audit.GamingFlag{
				Type:     audit.FlagCredentialInflation,
				Severity: audit.SeverityHigh,
				Reason:   fmt.Sprintf("%d credential or verification upgrade(s) with no new evidence", len(upgrades)),
				Details: map[string]interface{}{
					"upgrades": upgrades,
				},
			})
		}
	}

	if attempt := priorAttempts + 1; attempt >= a.cfg.IterationThreshold {
		flags = append(flags, audit.GamingFlag{
			Type:     audit.FlagExcessiveIteration,
			Severity: audit.SeverityLow,
			Reason:   fmt.Sprintf("scoring attempt %d on the same draft", attempt),
			Details: map[string]interface{}{
				"attempt": attempt,
			},
		})
	}

	entry.Flags = flags
	return Evaluation{
		Entry:     entry,
		Flags:     flags,
		RiskScore: a.riskScore(flags),
	}
}

// riskScore sums per-flag severity weights, capped.
func (a *Auditor) riskScore(flags []audit.GamingFlag) int {
	score := 0
	for _, f := range flags {
		score += f.Severity.RiskWeight()
	}
	if score > a.cfg.RiskCap {
		score = a.cfg.RiskCap
	}
	return score
}
