package cooccur

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"geoanomaly/adapters/rng"
	dcooccur "geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
	"geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	"geoanomaly/internal/config"
	gridbuilder "geoanomaly/internal/grid"
	"geoanomaly/internal/testkit"
)

func newTestEngine() *Engine {
	cfg := config.DefaultAnalysisConfig()
	cfg.ShuffleCount = 200
	cfg.Timeout = 0
	return NewEngine(cfg, rng.NewSeededAdapter())
}

func hotspotSnapshot(t *testing.T, resolution float64) *grid.Snapshot {
	t.Helper()
	builder := gridbuilder.NewBuilder(config.DefaultGridConfig())
	snap, err := builder.Build(testkit.NewGenerator(7).WindowEffectDataset(), resolution)
	if err != nil {
		t.Fatalf("grid build: %v", err)
	}
	return snap
}

func TestEngine_Analyze(t *testing.T) {
	engine := newTestEngine()

	t.Run("empty snapshot is insufficient data", func(t *testing.T) {
		if _, err := engine.Analyze(context.Background(), nil, 100); !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
		if _, err := engine.Analyze(context.Background(), &grid.Snapshot{}, 100); !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("detects the planted window effect", func(t *testing.T) {
		snap := hotspotSnapshot(t, 1.0)
		result, err := engine.Analyze(context.Background(), snap, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.WindowEffectDetected {
			t.Error("co-located clusters should trigger window-effect detection")
		}
		if result.Strongest == nil {
			t.Fatal("expected a strongest pairing")
		}
		if result.Strongest.Pairing.Label != "ufo+bigfoot" {
			t.Errorf("strongest pairing = %s, want ufo+bigfoot", result.Strongest.Pairing.Label)
		}
		if result.Strongest.ZScore <= 2.0 {
			t.Errorf("strongest z = %v, want > 2", result.Strongest.ZScore)
		}
		if result.Strongest.Ratio <= 1.0 {
			t.Errorf("observed/expected ratio = %v, want > 1", result.Strongest.Ratio)
		}
		if result.ShuffleCount != 200 {
			t.Errorf("shuffle count = %d, want 200", result.ShuffleCount)
		}
		if result.CellCount != len(snap.Cells) {
			t.Errorf("cell count = %d, want %d", result.CellCount, len(snap.Cells))
		}
	})

	t.Run("all five categories produce eleven pairings", func(t *testing.T) {
		snap := hotspotSnapshot(t, 1.0)
		result, err := engine.Analyze(context.Background(), snap, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// C(5,2) two-way pairings plus the combined all-categories pairing.
		if len(result.Pairings) != 11 {
			t.Fatalf("pairing count = %d, want 11", len(result.Pairings))
		}
		if first := result.Pairings[0].Pairing.Label; first != "ufo+bigfoot" {
			t.Errorf("first pairing = %s, enumeration order broken", first)
		}
		last := result.Pairings[len(result.Pairings)-1].Pairing
		if len(last.Categories) != 5 {
			t.Errorf("last pairing spans %d categories, want the combined 5", len(last.Categories))
		}
	})

	t.Run("p-values agree with z-scores", func(t *testing.T) {
		snap := hotspotSnapshot(t, 1.0)
		result, err := engine.Analyze(context.Background(), snap, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, p := range result.Pairings {
			if p.PValue < 0 || p.PValue > 1 {
				t.Errorf("pairing %s: p = %v outside [0,1]", p.Pairing.Label, p.PValue)
			}
			if math.Abs(p.ZScore) > 3 && p.PValue > 0.01 {
				t.Errorf("pairing %s: |z|=%v but p=%v", p.Pairing.Label, p.ZScore, p.PValue)
			}
		}
	})

	t.Run("zero shuffle count falls back to configuration", func(t *testing.T) {
		snap := hotspotSnapshot(t, 1.0)
		result, err := engine.Analyze(context.Background(), snap, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ShuffleCount != 200 {
			t.Errorf("shuffle count = %d, want configured 200", result.ShuffleCount)
		}
	})

	t.Run("shuffle count is capped at max iterations", func(t *testing.T) {
		cfg := config.DefaultAnalysisConfig()
		cfg.MaxIterations = 150
		cfg.Timeout = 0
		capped := NewEngine(cfg, rng.NewSeededAdapter())

		snap := hotspotSnapshot(t, 1.0)
		result, err := capped.Analyze(context.Background(), snap, 10000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ShuffleCount != 150 {
			t.Errorf("shuffle count = %d, want capped 150", result.ShuffleCount)
		}
	})

	t.Run("cancelled context aborts the run", func(t *testing.T) {
		snap := hotspotSnapshot(t, 1.0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := engine.Analyze(ctx, snap, 500); err == nil {
			t.Error("expected an error from a cancelled context")
		}
	})
}

func TestEngine_AnalyzeCells_Determinism(t *testing.T) {
	engine := newTestEngine()
	snap := hotspotSnapshot(t, 1.0)
	runID := core.RunID("fixed-run")

	a, err := engine.analyzeCells(context.Background(), runID, snap.Cells, 200, "full")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := engine.analyzeCells(context.Background(), runID, snap.Cells, 200, "full")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Per-simulation streams are keyed by run and simulation index, so worker
	// scheduling cannot change the numbers.
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated analysis of the same run produced different results")
	}
}

func TestEngine_AnalyzeCells_CategoryExclusion(t *testing.T) {
	engine := newTestEngine()

	t.Run("zero-prevalence categories are excluded", func(t *testing.T) {
		cells := twoCategoryCells(20, 8, 8, 5)
		results, err := engine.analyzeCells(context.Background(), core.RunID("r"), cells, 200, "full")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("pairing count = %d, want only ufo+bigfoot", len(results))
		}
		if results[0].Pairing.Label != "ufo+bigfoot" {
			t.Errorf("pairing = %s, want ufo+bigfoot", results[0].Pairing.Label)
		}
		if results[0].ObservedCount != 5 {
			t.Errorf("observed = %d, want 5", results[0].ObservedCount)
		}
	})

	t.Run("single category is insufficient", func(t *testing.T) {
		cells := twoCategoryCells(20, 8, 0, 0)
		_, err := engine.analyzeCells(context.Background(), core.RunID("r"), cells, 200, "full")
		if !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestEngine_AnalyzeStratified(t *testing.T) {
	engine := newTestEngine()
	snap := hotspotSnapshot(t, 1.0)

	strata, err := engine.AnalyzeStratified(context.Background(), snap, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strata) == 0 {
		t.Fatal("expected at least one stratum")
	}

	seen := make(map[int]bool)
	totalCells := 0
	for _, s := range strata {
		if s.Quartile < 1 || s.Quartile > 4 {
			t.Errorf("quartile %d out of range", s.Quartile)
		}
		if seen[s.Quartile] {
			t.Errorf("quartile %d appears twice", s.Quartile)
		}
		seen[s.Quartile] = true
		totalCells += s.CellCount
	}
	if totalCells != len(snap.Cells) {
		t.Errorf("strata cover %d cells, snapshot has %d", totalCells, len(snap.Cells))
	}
}

func TestPickStrongest(t *testing.T) {
	engine := newTestEngine()

	t.Run("empty input", func(t *testing.T) {
		strongest, detected := engine.pickStrongest(nil)
		if strongest != nil || detected {
			t.Error("expected nil result for empty input")
		}
	})

	t.Run("ties keep the first pairing", func(t *testing.T) {
		pairings := []dcooccur.PairingResult{
			{Pairing: dcooccur.Pairing{Label: "a+b"}, ZScore: 1.5},
			{Pairing: dcooccur.Pairing{Label: "a+c"}, ZScore: 1.5},
		}
		strongest, detected := engine.pickStrongest(pairings)
		if strongest.Pairing.Label != "a+b" {
			t.Errorf("strongest = %s, want first pairing a+b", strongest.Pairing.Label)
		}
		if detected {
			t.Error("z of 1.5 must not cross the 2.0 threshold")
		}
	})

	t.Run("detection needs only one crossing", func(t *testing.T) {
		pairings := []dcooccur.PairingResult{
			{Pairing: dcooccur.Pairing{Label: "a+b"}, ZScore: 0.3},
			{Pairing: dcooccur.Pairing{Label: "a+c"}, ZScore: 2.4},
		}
		strongest, detected := engine.pickStrongest(pairings)
		if strongest.Pairing.Label != "a+c" {
			t.Errorf("strongest = %s, want a+c", strongest.Pairing.Label)
		}
		if !detected {
			t.Error("z of 2.4 should trigger detection")
		}
	})
}

// twoCategoryCells builds n cells where ufo is present in the first ufoN,
// bigfoot in the first bigfootN with overlap cells shared at the front.
func twoCategoryCells(n, ufoN, bigfootN, overlap int) []grid.Cell {
	cells := make([]grid.Cell, n)
	for i := range cells {
		cells[i] = grid.Cell{
			Key:            grid.CellKey{LatBucket: i, LngBucket: 0, Resolution: 1},
			CategoryCounts: make(map[observation.Category]int),
		}
	}
	for i := 0; i < ufoN; i++ {
		cells[i].CategoryCounts[observation.CategoryUFO] = 1
	}
	placed := 0
	for i := 0; i < n && placed < bigfootN; i++ {
		// The first `overlap` bigfoot cells share ufo cells; the rest avoid them.
		if placed < overlap || i >= ufoN {
			cells[i].CategoryCounts[observation.CategoryBigfoot] = 1
			placed++
		}
	}
	return cells
}
