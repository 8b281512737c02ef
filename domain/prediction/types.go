package prediction

import (
	"geoanomaly/domain/core"
)

// Status is the lifecycle state of a standing hypothesis. Confirmed and
// refuted are terminal.
type Status string

const (
	StatusOpen      Status = "open"
	StatusTesting   Status = "testing"
	StatusConfirmed Status = "confirmed"
	StatusRefuted   Status = "refuted"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusRefuted
}

// Prediction is a standing hypothesis whose status is driven only by
// aggregated, quality-filtered test results.
type Prediction struct {
	ID         core.PredictionID `json:"id"`
	Statement  string            `json:"statement"`
	Status     Status            `json:"status"`
	CreatedAt  core.Timestamp    `json:"created_at"`
	ResolvedAt *core.Timestamp   `json:"resolved_at,omitempty"`
	// Version supports optimistic concurrency on status updates.
	Version int `json:"-"`
}

// TestResult is one verified test outcome attached to a prediction.
type TestResult struct {
	ID           core.ResultID     `json:"id"`
	PredictionID core.PredictionID `json:"prediction_id"`
	SampleSize   int               `json:"sample_size"`
	PValue       float64           `json:"p_value"`
	// EffectObserved is true when the test supported the prediction's
	// hypothesized direction.
	EffectObserved bool `json:"effect_observed"`
	// QualityScore is the 0-10 methodological quality of the evidence
	// behind the result. Lifecycle aggregation only considers results at
	// or above the configured quality floor.
	QualityScore float64        `json:"quality_score"`
	AcceptedAt   core.Timestamp `json:"accepted_at"`
}

// Aggregate summarizes the qualifying-result set for one prediction. It is
// a pure function of the set: replaying the same results in any order
// produces the same aggregate.
type Aggregate struct {
	QualifyingResults int     `json:"qualifying_results"`
	TotalSampleSize   int     `json:"total_sample_size"`
	SupportPercent    float64 `json:"support_percent"`
	// AvgSignificantP averages p-values among qualifying results with
	// p < 0.05; 1.0 when no result is individually significant.
	AvgSignificantP float64 `json:"avg_significant_p"`
}
