package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoanomaly/adapters/rng"
	"geoanomaly/internal"
	"geoanomaly/internal/config"
	cooccurengine "geoanomaly/internal/cooccur"
	gridbuilder "geoanomaly/internal/grid"
	"geoanomaly/internal/testkit"
	"geoanomaly/ports"
)

type analysisFixture struct {
	svc         *AnalysisService
	gridRepo    *testkit.MemoryGridRepository
	cooccurRepo *testkit.MemoryCooccurrenceRepository
	publisher   *testkit.CapturePublisher
}

func newAnalysisFixture() *analysisFixture {
	gridCfg := config.DefaultGridConfig()
	analysisCfg := config.DefaultAnalysisConfig()
	analysisCfg.ShuffleCount = 100
	analysisCfg.Timeout = 0

	obsRepo := &testkit.MemoryObservationRepository{
		Records: testkit.NewGenerator(7).WindowEffectDataset(),
	}
	gridRepo := testkit.NewMemoryGridRepository()
	cooccurRepo := &testkit.MemoryCooccurrenceRepository{}
	publisher := &testkit.CapturePublisher{}

	svc := NewAnalysisService(
		obsRepo, gridRepo, cooccurRepo,
		gridbuilder.NewBuilder(gridCfg),
		cooccurengine.NewEngine(analysisCfg, rng.NewSeededAdapter()),
		publisher, gridCfg, internal.NewDefaultLogger(),
	)
	return &analysisFixture{svc: svc, gridRepo: gridRepo, cooccurRepo: cooccurRepo, publisher: publisher}
}

func TestAnalysisService_RebuildGrid(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture()

	snap, err := f.svc.RebuildGrid(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.Resolution, "zero resolution falls back to the configured default")
	assert.NotEmpty(t, snap.Cells)

	stored, err := f.gridRepo.GetSnapshot(ctx, 1.0)
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, stored.RunID)

	events := f.publisher.Named(ports.EventGridRebuilt)
	require.Len(t, events, 1)
	assert.Equal(t, snap.RunID.String(), events[0].Payload["run_id"])
}

func TestAnalysisService_AnalyzeCooccurrence(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds a missing grid first", func(t *testing.T) {
		f := newAnalysisFixture()

		result, err := f.svc.AnalyzeCooccurrence(ctx, 1.0, 100, false)
		require.NoError(t, err)
		assert.True(t, result.WindowEffectDetected)
		assert.Empty(t, result.Stratified)

		_, err = f.gridRepo.GetSnapshot(ctx, 1.0)
		require.NoError(t, err, "analysis should have left a persisted grid behind")
		assert.Len(t, f.cooccurRepo.Results, 1)
	})

	t.Run("reuses the existing grid", func(t *testing.T) {
		f := newAnalysisFixture()

		snap, err := f.svc.RebuildGrid(ctx, 1.0)
		require.NoError(t, err)

		result, err := f.svc.AnalyzeCooccurrence(ctx, 1.0, 100, false)
		require.NoError(t, err)
		assert.Equal(t, len(snap.Cells), result.CellCount)
		// Only the explicit rebuild emitted a grid event.
		assert.Len(t, f.publisher.Named(ports.EventGridRebuilt), 1)
	})

	t.Run("stratified analysis attaches strata", func(t *testing.T) {
		f := newAnalysisFixture()

		result, err := f.svc.AnalyzeCooccurrence(ctx, 1.0, 100, true)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Stratified)
	})
}

func TestAnalysisService_AnalyzeMultiResolution(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture()

	result, err := f.svc.AnalyzeMultiResolution(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, result.Points, len(config.DefaultGridConfig().SweepResolutions))
	assert.Len(t, f.cooccurRepo.Sweeps, 1)
}
