package grid

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"geoanomaly/domain/core"
	domaingrid "geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	"geoanomaly/internal/config"
)

// Builder bins geolocated observation records into fixed-size cells and
// derives per-cell indices. Build is a pure batch computation: the full
// record set goes in, a complete snapshot comes out, and persistence swaps
// the snapshot atomically.
type Builder struct {
	cfg config.GridConfig
}

// NewBuilder creates a grid builder with the given configuration.
func NewBuilder(cfg config.GridConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build constructs a complete snapshot at the given resolution. Records
// without coordinates or with categories outside the enumeration are
// skipped. Running Build twice on identical input yields identical cell
// sets: accumulation order does not affect counts, and the quartile
// tie-break is a stable sort.
func (b *Builder) Build(records []observation.Record, resolution float64) (*domaingrid.Snapshot, error) {
	if resolution <= 0 {
		return nil, core.ErrInvalidResolution
	}

	cells := make(map[domaingrid.CellKey]*domaingrid.Cell)
	for _, rec := range records {
		if !rec.HasCoordinates() || !rec.Category.IsValid() {
			continue
		}
		key := domaingrid.CellKey{
			LatBucket:  int(math.Floor(*rec.Latitude / resolution)),
			LngBucket:  int(math.Floor(*rec.Longitude / resolution)),
			Resolution: resolution,
		}
		cell, ok := cells[key]
		if !ok {
			cell = &domaingrid.Cell{
				Key:            key,
				CenterLat:      (float64(key.LatBucket) + 0.5) * resolution,
				CenterLng:      (float64(key.LngBucket) + 0.5) * resolution,
				CategoryCounts: make(map[observation.Category]int),
			}
			cells[key] = cell
		}
		cell.CategoryCounts[rec.Category]++
		cell.TotalCount++
	}

	ordered := make([]domaingrid.Cell, 0, len(cells))
	for _, cell := range cells {
		cell.TypeCount = len(cell.CategoriesPresent())
		cell.WindowIndex = b.windowIndex(cell)
		ordered = append(ordered, *cell)
	}

	// Deterministic cell order for byte-for-byte reproducible snapshots.
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Key.LatBucket != ordered[j].Key.LatBucket {
			return ordered[i].Key.LatBucket < ordered[j].Key.LatBucket
		}
		return ordered[i].Key.LngBucket < ordered[j].Key.LngBucket
	})

	assignQuartiles(ordered)

	return &domaingrid.Snapshot{
		RunID:      core.RunID(core.NewID()),
		Resolution: resolution,
		Cells:      ordered,
		BuiltAt:    core.Now(),
	}, nil
}

// windowIndex scores a cell by category diversity and excess report volume:
// typeDiversity * ln(max(1, total/numCategories) + 1) * rarityBonus.
func (b *Builder) windowIndex(cell *domaingrid.Cell) float64 {
	numCategories := float64(len(observation.AllCategories()))
	diversity := float64(cell.TypeCount) / numCategories
	volume := math.Log(math.Max(1, float64(cell.TotalCount)/numCategories) + 1)

	bonus := 1.0
	if b.cfg.RareCategory != "" && cell.HasCategory(observation.Category(b.cfg.RareCategory)) {
		bonus = b.cfg.RarityBonus
	}
	return diversity * volume * bonus
}

// assignQuartiles ranks cells 1-4 by total count, ascending, in four
// equal-sized bands. Ties break by stable sort over the already
// key-ordered slice. This is a banding approximation, not exact quartile
// interpolation.
func assignQuartiles(cells []domaingrid.Cell) {
	if len(cells) == 0 {
		return
	}
	idx := make([]int, len(cells))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return cells[idx[a]].TotalCount < cells[idx[b]].TotalCount
	})
	for rank, i := range idx {
		q := rank*4/len(cells) + 1
		if q > 4 {
			q = 4
		}
		cells[i].PopulationQuartile = q
	}
}

// Summary describes the distribution of cell totals and window indices for
// one snapshot. Feeds reviewer reports and build logging.
type Summary struct {
	CellCount      int     `json:"cell_count"`
	MeanTotal      float64 `json:"mean_total"`
	MedianTotal    float64 `json:"median_total"`
	MaxTotal       float64 `json:"max_total"`
	MeanWindowIdx  float64 `json:"mean_window_index"`
	TopWindowIdx   float64 `json:"top_window_index"`
	MultiTypeCells int     `json:"multi_type_cells"`
}

// Summarize computes descriptive statistics over a snapshot's cells.
func Summarize(snap *domaingrid.Snapshot) Summary {
	if len(snap.Cells) == 0 {
		return Summary{}
	}
	totals := make([]float64, len(snap.Cells))
	windows := make([]float64, len(snap.Cells))
	multi := 0
	for i, cell := range snap.Cells {
		totals[i] = float64(cell.TotalCount)
		windows[i] = cell.WindowIndex
		if cell.TypeCount >= 2 {
			multi++
		}
	}

	meanTotal, _ := stats.Mean(totals)
	medianTotal, _ := stats.Median(totals)
	maxTotal, _ := stats.Max(totals)
	meanWindow, _ := stats.Mean(windows)
	topWindow, _ := stats.Max(windows)

	return Summary{
		CellCount:      len(snap.Cells),
		MeanTotal:      meanTotal,
		MedianTotal:    medianTotal,
		MaxTotal:       maxTotal,
		MeanWindowIdx:  meanWindow,
		TopWindowIdx:   topWindow,
		MultiTypeCells: multi,
	}
}
