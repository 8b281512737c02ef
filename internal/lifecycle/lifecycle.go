package lifecycle

import (
	"sync"

	"geoanomaly/domain/core"
	"geoanomaly/domain/prediction"
	"geoanomaly/internal/config"
)

// Machine recomputes prediction status from the quality-filtered result
// set. The recomputation is a pure aggregate function: replaying the same
// results in any order yields the same status.
type Machine struct {
	cfg config.LifecycleConfig

	mu    sync.Mutex
	locks map[core.PredictionID]*sync.Mutex
}

// NewMachine creates a lifecycle machine.
func NewMachine(cfg config.LifecycleConfig) *Machine {
	return &Machine{
		cfg:   cfg,
		locks: make(map[core.PredictionID]*sync.Mutex),
	}
}

// MinQuality returns the quality floor results must meet to qualify.
func (m *Machine) MinQuality() float64 {
	return m.cfg.MinQuality
}

// Lock serializes recomputation per prediction. Two concurrent result
// submissions for the same prediction must not race to inconsistent
// status; cross-prediction work stays fully parallel.
func (m *Machine) Lock(id core.PredictionID) func() {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Aggregate summarizes the qualifying-result set. Pure function of the
// set's contents.
func (m *Machine) Aggregate(results []prediction.TestResult) prediction.Aggregate {
	agg := prediction.Aggregate{AvgSignificantP: 1.0}

	supporting := 0
	significantSum := 0.0
	significantCount := 0
	for _, r := range results {
		if r.QualityScore < m.cfg.MinQuality {
			continue
		}
		agg.QualifyingResults++
		agg.TotalSampleSize += r.SampleSize
		if r.EffectObserved {
			supporting++
		}
		if r.PValue < m.cfg.SignificanceLevel {
			significantSum += r.PValue
			significantCount++
		}
	}

	if agg.QualifyingResults > 0 {
		agg.SupportPercent = float64(supporting) / float64(agg.QualifyingResults)
	}
	if significantCount > 0 {
		agg.AvgSignificantP = significantSum / float64(significantCount)
	}
	return agg
}

// NextStatus derives the status a prediction should hold given its current
// status and the qualifying-result aggregate. Terminal statuses never
// change.
func (m *Machine) NextStatus(current prediction.Status, agg prediction.Aggregate) prediction.Status {
	if current.IsTerminal() {
		return current
	}
	if agg.QualifyingResults == 0 {
		return current
	}

	// First qualifying result moves an open prediction to testing.
	status := current
	if status == prediction.StatusOpen {
		status = prediction.StatusTesting
	}

	if agg.TotalSampleSize < m.cfg.SampleFloor {
		return status
	}
	if agg.AvgSignificantP >= m.cfg.SignificanceLevel {
		return status
	}
	if agg.SupportPercent >= m.cfg.ConfirmSupport {
		return prediction.StatusConfirmed
	}
	if agg.SupportPercent <= m.cfg.RefuteSupport {
		return prediction.StatusRefuted
	}
	return status
}

// Recompute applies Aggregate and NextStatus to a prediction, setting the
// resolution timestamp on a terminal transition. Callers hold the
// per-prediction lock and persist the returned prediction.
func (m *Machine) Recompute(p *prediction.Prediction, results []prediction.TestResult) (prediction.Status, prediction.Aggregate) {
	agg := m.Aggregate(results)
	next := m.NextStatus(p.Status, agg)
	if next != p.Status {
		p.Status = next
		if next.IsTerminal() {
			now := core.Now()
			p.ResolvedAt = &now
		}
	}
	return next, agg
}
