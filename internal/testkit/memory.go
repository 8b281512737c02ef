package testkit

import (
	"context"
	"sync"

	"geoanomaly/domain/audit"
	"geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
	"geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	"geoanomaly/domain/prediction"
	"geoanomaly/ports"
)

// MemoryObservationRepository serves a fixed record set.
type MemoryObservationRepository struct {
	Records []observation.Record
}

func (r *MemoryObservationRepository) ListGeolocated(ctx context.Context) ([]observation.Record, error) {
	out := make([]observation.Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.HasCoordinates() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryObservationRepository) CountByCategory(ctx context.Context) (map[observation.Category]int, error) {
	counts := make(map[observation.Category]int)
	for _, rec := range r.Records {
		counts[rec.Category]++
	}
	return counts, nil
}

// MemoryGridRepository keeps one snapshot per resolution.
type MemoryGridRepository struct {
	mu    sync.Mutex
	snaps map[float64]*grid.Snapshot
}

func NewMemoryGridRepository() *MemoryGridRepository {
	return &MemoryGridRepository{snaps: make(map[float64]*grid.Snapshot)}
}

func (r *MemoryGridRepository) ReplaceSnapshot(ctx context.Context, snap *grid.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[snap.Resolution] = snap
	return nil
}

func (r *MemoryGridRepository) GetSnapshot(ctx context.Context, resolution float64) (*grid.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[resolution]
	if !ok {
		return nil, core.ErrGridNotFound
	}
	return snap, nil
}

// MemoryCooccurrenceRepository appends results in memory.
type MemoryCooccurrenceRepository struct {
	mu      sync.Mutex
	Results []*cooccur.Result
	Sweeps  []*cooccur.MultiResolutionResult
}

func (r *MemoryCooccurrenceRepository) SaveResult(ctx context.Context, result *cooccur.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, result)
	return nil
}

func (r *MemoryCooccurrenceRepository) GetResult(ctx context.Context, runID core.RunID) (*cooccur.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.Results {
		if res.RunID == runID {
			return res, nil
		}
	}
	return nil, core.NewNotFoundError("cooccurrence result", runID.String())
}

func (r *MemoryCooccurrenceRepository) ListResults(ctx context.Context, resolution float64, limit int) ([]*cooccur.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cooccur.Result
	for i := len(r.Results) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.Results[i].Resolution == resolution {
			out = append(out, r.Results[i])
		}
	}
	return out, nil
}

func (r *MemoryCooccurrenceRepository) SaveMultiResolution(ctx context.Context, result *cooccur.MultiResolutionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sweeps = append(r.Sweeps, result)
	return nil
}

// MemoryAuditRepository keeps append-only entries per draft in insertion
// order.
type MemoryAuditRepository struct {
	mu      sync.Mutex
	entries map[core.DraftID][]*audit.Entry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{entries: make(map[core.DraftID][]*audit.Entry)}
}

func (r *MemoryAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.DraftID] = append(r.entries[entry.DraftID], entry)
	return nil
}

func (r *MemoryAuditRepository) Latest(ctx context.Context, draftID core.DraftID) (*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[draftID]
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

func (r *MemoryAuditRepository) CountForDraft(ctx context.Context, draftID core.DraftID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[draftID]), nil
}

func (r *MemoryAuditRepository) History(ctx context.Context, draftID core.DraftID, limit int) ([]*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[draftID]
	var out []*audit.Entry
	for i := len(list) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// MemoryPredictionRepository emulates the version-guarded status update,
// including core.ErrConflict on a stale version.
type MemoryPredictionRepository struct {
	mu          sync.Mutex
	predictions map[core.PredictionID]*prediction.Prediction
	results     map[core.PredictionID][]prediction.TestResult

	// ConflictsBeforeSuccess fails UpdateStatus with core.ErrConflict this
	// many times before letting it through, to exercise retry paths.
	ConflictsBeforeSuccess int
}

func NewMemoryPredictionRepository() *MemoryPredictionRepository {
	return &MemoryPredictionRepository{
		predictions: make(map[core.PredictionID]*prediction.Prediction),
		results:     make(map[core.PredictionID][]prediction.TestResult),
	}
}

func (r *MemoryPredictionRepository) Put(p *prediction.Prediction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.predictions[p.ID] = &cp
}

func (r *MemoryPredictionRepository) GetPrediction(ctx context.Context, id core.PredictionID) (*prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[id]
	if !ok {
		return nil, core.NewNotFoundError("prediction", id.String())
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryPredictionRepository) UpdateStatus(ctx context.Context, p *prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ConflictsBeforeSuccess > 0 {
		r.ConflictsBeforeSuccess--
		return core.ErrConflict
	}

	stored, ok := r.predictions[p.ID]
	if !ok {
		return core.NewNotFoundError("prediction", p.ID.String())
	}
	if stored.Version != p.Version {
		return core.ErrConflict
	}
	cp := *p
	cp.Version++
	r.predictions[p.ID] = &cp
	p.Version++
	return nil
}

func (r *MemoryPredictionRepository) SaveResult(ctx context.Context, result *prediction.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.PredictionID] = append(r.results[result.PredictionID], *result)
	return nil
}

func (r *MemoryPredictionRepository) ListQualifyingResults(ctx context.Context, id core.PredictionID, minQuality float64) ([]prediction.TestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []prediction.TestResult
	for _, res := range r.results[id] {
		if res.QualityScore >= minQuality {
			out = append(out, res)
		}
	}
	return out, nil
}

// CapturePublisher records published events for assertions.
type CapturePublisher struct {
	mu     sync.Mutex
	Events []ports.Event
}

func (p *CapturePublisher) Publish(ctx context.Context, event ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// Named returns the captured events with the given name.
func (p *CapturePublisher) Named(name string) []ports.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ports.Event
	for _, e := range p.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
