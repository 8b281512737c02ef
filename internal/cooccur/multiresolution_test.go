package cooccur

import (
	"context"
	"testing"

	"geoanomaly/adapters/rng"
	"geoanomaly/domain/core"
	"geoanomaly/internal/config"
	gridbuilder "geoanomaly/internal/grid"
	"geoanomaly/internal/testkit"
)

func TestEngine_MultiResolutionSweep(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.ShuffleCount = 100
	cfg.Timeout = 0
	engine := NewEngine(cfg, rng.NewSeededAdapter())
	builder := gridbuilder.NewBuilder(config.DefaultGridConfig())
	records := testkit.NewGenerator(7).WindowEffectDataset()

	t.Run("requires at least one resolution", func(t *testing.T) {
		_, err := engine.MultiResolutionSweep(context.Background(), builder, records, nil, 100)
		if !core.IsInvalidInputError(err) {
			t.Errorf("expected invalid-input error, got %v", err)
		}
	})

	t.Run("one point per resolution in order", func(t *testing.T) {
		resolutions := []float64{0.25, 0.5, 1.0, 2.0}
		result, err := engine.MultiResolutionSweep(context.Background(), builder, records, resolutions, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Points) != len(resolutions) {
			t.Fatalf("point count = %d, want %d", len(result.Points), len(resolutions))
		}
		for i, p := range result.Points {
			if p.Resolution != resolutions[i] {
				t.Errorf("point %d resolution = %v, want %v", i, p.Resolution, resolutions[i])
			}
			if p.CellCount <= 0 {
				t.Errorf("point %d has no cells", i)
			}
			if p.MultiTypeFraction < 0 || p.MultiTypeFraction > 1 {
				t.Errorf("point %d fraction = %v outside [0,1]", i, p.MultiTypeFraction)
			}
		}
		// Coarser cells capture more co-located categories.
		if first, last := result.Points[0], result.Points[3]; last.MultiTypeFraction < first.MultiTypeFraction {
			t.Errorf("fraction at 2.0 deg (%v) below 0.25 deg (%v)",
				last.MultiTypeFraction, first.MultiTypeFraction)
		}
		if result.ResolutionCorrelation < -1 || result.ResolutionCorrelation > 1 {
			t.Errorf("correlation = %v outside [-1,1]", result.ResolutionCorrelation)
		}
	})

	t.Run("failing build aborts the sweep", func(t *testing.T) {
		_, err := engine.MultiResolutionSweep(context.Background(), builder, records, []float64{1.0, -1}, 100)
		if err == nil {
			t.Error("expected an error from the invalid resolution")
		}
	})
}
