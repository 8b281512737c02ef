package app

import (
	"context"
	"errors"
	"time"

	"geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
	domaingrid "geoanomaly/domain/grid"
	"geoanomaly/internal"
	"geoanomaly/internal/config"
	gridbuilder "geoanomaly/internal/grid"
	cooccurengine "geoanomaly/internal/cooccur"
	"geoanomaly/ports"
)

// AnalysisService orchestrates grid rebuilds and cooccurrence analysis.
// Both are long-running batch operations; the repositories guarantee that
// readers never observe a half-written grid.
type AnalysisService struct {
	obsRepo     ports.ObservationRepository
	gridRepo    ports.GridRepository
	cooccurRepo ports.CooccurrenceRepository
	builder     *gridbuilder.Builder
	engine      *cooccurengine.Engine
	events      ports.EventPublisher
	gridCfg     config.GridConfig
	log         *internal.Logger
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(
	obsRepo ports.ObservationRepository,
	gridRepo ports.GridRepository,
	cooccurRepo ports.CooccurrenceRepository,
	builder *gridbuilder.Builder,
	engine *cooccurengine.Engine,
	events ports.EventPublisher,
	gridCfg config.GridConfig,
	logger *internal.Logger,
) *AnalysisService {
	return &AnalysisService{
		obsRepo:     obsRepo,
		gridRepo:    gridRepo,
		cooccurRepo: cooccurRepo,
		builder:     builder,
		engine:      engine,
		events:      events,
		gridCfg:     gridCfg,
		log:         logger.WithPrefix("analysis"),
	}
}

// RebuildGrid consumes all geolocated observation records and replaces the
// persisted cells for the resolution. The replace is transactional: a
// failure mid-rebuild leaves the previous grid intact.
func (s *AnalysisService) RebuildGrid(ctx context.Context, resolution float64) (*domaingrid.Snapshot, error) {
	if resolution <= 0 {
		resolution = s.gridCfg.DefaultResolution
	}

	started := time.Now()
	records, err := s.obsRepo.ListGeolocated(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := s.builder.Build(records, resolution)
	if err != nil {
		return nil, err
	}

	if err := s.gridRepo.ReplaceSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	summary := gridbuilder.Summarize(snap)
	s.log.Info("grid rebuilt: resolution=%g cells=%d multi_type=%d elapsed=%s",
		resolution, summary.CellCount, summary.MultiTypeCells, time.Since(started))

	s.publish(ctx, ports.Event{
		Name:       ports.EventGridRebuilt,
		OccurredAt: core.Now(),
		Payload: map[string]interface{}{
			"run_id":     snap.RunID.String(),
			"resolution": resolution,
			"cell_count": summary.CellCount,
		},
	})
	return snap, nil
}

// AnalyzeCooccurrence runs the shuffle test over the current grid at the
// given resolution, rebuilding the grid first when none exists. The result
// is appended to history and never mutated.
func (s *AnalysisService) AnalyzeCooccurrence(ctx context.Context, resolution float64, shuffleCount int, stratify bool) (*cooccur.Result, error) {
	if resolution <= 0 {
		resolution = s.gridCfg.DefaultResolution
	}

	snap, err := s.gridRepo.GetSnapshot(ctx, resolution)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		snap, err = s.RebuildGrid(ctx, resolution)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.engine.Analyze(ctx, snap, shuffleCount)
	if err != nil {
		return nil, err
	}

	if stratify {
		strata, err := s.engine.AnalyzeStratified(ctx, snap, shuffleCount)
		if err != nil {
			return nil, err
		}
		result.Stratified = strata
	}

	if err := s.cooccurRepo.SaveResult(ctx, result); err != nil {
		return nil, err
	}

	s.log.Info("cooccurrence analyzed: run=%s resolution=%g pairings=%d window_effect=%t",
		result.RunID, resolution, len(result.Pairings), result.WindowEffectDetected)
	return result, nil
}

// AnalyzeMultiResolution repeats the grid-build + cooccurrence cycle at the
// configured sweep resolutions.
func (s *AnalysisService) AnalyzeMultiResolution(ctx context.Context, shuffleCount int) (*cooccur.MultiResolutionResult, error) {
	records, err := s.obsRepo.ListGeolocated(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.MultiResolutionSweep(ctx, s.builder, records, s.gridCfg.SweepResolutions, shuffleCount)
	if err != nil {
		return nil, err
	}

	if err := s.cooccurRepo.SaveMultiResolution(ctx, result); err != nil {
		return nil, err
	}

	s.log.Info("multi-resolution sweep: run=%s correlation=%.3f", result.RunID, result.ResolutionCorrelation)
	return result, nil
}

func (s *AnalysisService) publish(ctx context.Context, event ports.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// Event delivery is fire-and-forget; failures are logged, never fatal.
		s.log.Warn("event publish failed: %v", err)
	}
}
