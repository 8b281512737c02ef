package grid

import (
	"reflect"
	"testing"

	"geoanomaly/domain/core"
	domaingrid "geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	"geoanomaly/internal/config"
	"geoanomaly/internal/testkit"
)

func TestBuilder_Build(t *testing.T) {
	builder := NewBuilder(config.DefaultGridConfig())

	t.Run("rejects non-positive resolution", func(t *testing.T) {
		if _, err := builder.Build(nil, 0); err != core.ErrInvalidResolution {
			t.Errorf("expected ErrInvalidResolution, got %v", err)
		}
		if _, err := builder.Build(nil, -1); err != core.ErrInvalidResolution {
			t.Errorf("expected ErrInvalidResolution, got %v", err)
		}
	})

	t.Run("bins by floor division", func(t *testing.T) {
		records := []observation.Record{
			record(observation.CategoryUFO, 40.2, -111.3),
			record(observation.CategoryUFO, 40.9, -111.9),
			record(observation.CategoryUFO, 41.1, -111.3),
		}
		snap, err := builder.Build(records, 1.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snap.Cells) != 2 {
			t.Fatalf("expected 2 cells, got %d", len(snap.Cells))
		}

		first := snap.Cells[0]
		if first.Key.LatBucket != 40 || first.Key.LngBucket != -112 {
			t.Errorf("first cell key = %v, want 40:-112", first.Key)
		}
		if first.TotalCount != 2 {
			t.Errorf("first cell total = %d, want 2", first.TotalCount)
		}
		if first.CenterLat != 40.5 || first.CenterLng != -111.5 {
			t.Errorf("first cell center = (%v,%v), want (40.5,-111.5)", first.CenterLat, first.CenterLng)
		}
	})

	t.Run("negative coordinates floor toward negative infinity", func(t *testing.T) {
		records := []observation.Record{
			record(observation.CategoryUFO, -0.5, -0.5),
		}
		snap, err := builder.Build(records, 1.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		key := snap.Cells[0].Key
		if key.LatBucket != -1 || key.LngBucket != -1 {
			t.Errorf("key = %v, want -1:-1", key)
		}
	})

	t.Run("skips records without coordinates or with unknown category", func(t *testing.T) {
		records := []observation.Record{
			record(observation.CategoryUFO, 40.2, -111.3),
			{ID: core.ObservationID(core.NewID()), Category: observation.CategoryBigfoot},
			record(observation.Category("cryptid"), 40.2, -111.3),
		}
		snap, err := builder.Build(records, 1.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snap.Cells) != 1 || snap.Cells[0].TotalCount != 1 {
			t.Fatalf("expected one cell with one record, got %+v", snap.Cells)
		}
	})

	t.Run("counts diversity not volume", func(t *testing.T) {
		var records []observation.Record
		for i := 0; i < 10; i++ {
			records = append(records, record(observation.CategoryUFO, 40.2, -111.3))
			records = append(records, record(observation.CategoryBigfoot, 40.6, -111.7))
		}
		snap, err := builder.Build(records, 1.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snap.Cells) != 1 {
			t.Fatalf("expected 1 cell, got %d", len(snap.Cells))
		}
		cell := snap.Cells[0]
		if cell.TotalCount != 20 {
			t.Errorf("total = %d, want 20", cell.TotalCount)
		}
		if cell.TypeCount != 2 {
			t.Errorf("type count = %d, want 2", cell.TypeCount)
		}
		if cell.HasCategory(observation.CategoryHaunting) {
			t.Error("haunting should be absent")
		}
		if cell.WindowIndex <= 0 {
			t.Errorf("window index = %v, want > 0", cell.WindowIndex)
		}
	})

	t.Run("rare category bonus scales the window index", func(t *testing.T) {
		base := []observation.Record{
			record(observation.CategoryUFO, 40.2, -111.3),
			record(observation.CategoryBigfoot, 40.3, -111.4),
		}
		withRare := append(append([]observation.Record{}, base...),
			record(observation.CategoryHaunting, 40.4, -111.5))
		withBonus := append(append([]observation.Record{}, base...),
			record(observation.CategoryMissingPerson, 40.4, -111.5))

		plain, _ := builder.Build(withRare, 1.0)
		boosted, _ := builder.Build(withBonus, 1.0)

		// Same type count and total; only the rarity bonus differs.
		ratio := boosted.Cells[0].WindowIndex / plain.Cells[0].WindowIndex
		if ratio < 1.19 || ratio > 1.21 {
			t.Errorf("bonus ratio = %v, want ~1.2", ratio)
		}
	})

	t.Run("identical input yields identical cells", func(t *testing.T) {
		records := testkit.NewGenerator(7).WindowEffectDataset()

		a, err := builder.Build(records, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := builder.Build(records, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(a.Cells, b.Cells) {
			t.Error("two builds over identical input produced different cell sets")
		}
	})
}

func TestAssignQuartiles(t *testing.T) {
	t.Run("even split over distinct totals", func(t *testing.T) {
		cells := make([]domaingrid.Cell, 8)
		for i := range cells {
			cells[i].TotalCount = i + 1
		}
		assignQuartiles(cells)
		want := []int{1, 1, 2, 2, 3, 3, 4, 4}
		for i, cell := range cells {
			if cell.PopulationQuartile != want[i] {
				t.Errorf("cell with total %d got quartile %d, want %d",
					cell.TotalCount, cell.PopulationQuartile, want[i])
			}
		}
	})

	t.Run("ties break by position", func(t *testing.T) {
		cells := make([]domaingrid.Cell, 4)
		for i := range cells {
			cells[i].TotalCount = 5
			cells[i].Key.LatBucket = i
		}
		assignQuartiles(cells)
		for i, cell := range cells {
			if cell.PopulationQuartile != i+1 {
				t.Errorf("tied cell %d got quartile %d, want %d", i, cell.PopulationQuartile, i+1)
			}
		}
	})

	t.Run("single cell lands in quartile one", func(t *testing.T) {
		cells := []domaingrid.Cell{{TotalCount: 3}}
		assignQuartiles(cells)
		if cells[0].PopulationQuartile != 1 {
			t.Errorf("quartile = %d, want 1", cells[0].PopulationQuartile)
		}
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		assignQuartiles(nil)
	})
}

func TestSummarize(t *testing.T) {
	builder := NewBuilder(config.DefaultGridConfig())
	records := testkit.NewGenerator(11).WindowEffectDataset()
	snap, err := builder.Build(records, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := Summarize(snap)
	if summary.CellCount != len(snap.Cells) {
		t.Errorf("cell count = %d, want %d", summary.CellCount, len(snap.Cells))
	}
	if summary.MaxTotal < summary.MeanTotal {
		t.Errorf("max %v below mean %v", summary.MaxTotal, summary.MeanTotal)
	}
	if summary.MultiTypeCells <= 0 {
		t.Error("hotspot dataset should produce multi-type cells")
	}

	if got := Summarize(&domaingrid.Snapshot{}); got != (Summary{}) {
		t.Errorf("empty snapshot summary = %+v, want zero value", got)
	}
}

func record(cat observation.Category, lat, lng float64) observation.Record {
	return observation.Record{
		ID:        core.ObservationID(core.NewID()),
		Category:  cat,
		Latitude:  &lat,
		Longitude: &lng,
	}
}
