package grid

import (
	"fmt"

	"geoanomaly/domain/core"
	"geoanomaly/domain/observation"
)

// CellKey identifies a grid cell at a given resolution. Buckets are the
// floor-division of latitude/longitude by the resolution in degrees.
type CellKey struct {
	LatBucket  int     `json:"lat_bucket"`
	LngBucket  int     `json:"lng_bucket"`
	Resolution float64 `json:"resolution"`
}

// String returns the persistence key form.
func (k CellKey) String() string {
	return fmt.Sprintf("%d:%d:%g", k.LatBucket, k.LngBucket, k.Resolution)
}

// Cell is one spatial bin with per-category counts and derived indices.
// Cells are rebuilt wholesale on every grid run; they are never patched
// incrementally.
type Cell struct {
	Key            CellKey                      `json:"key"`
	CenterLat      float64                      `json:"center_lat"`
	CenterLng      float64                      `json:"center_lng"`
	CategoryCounts map[observation.Category]int `json:"category_counts"`
	TotalCount     int                          `json:"total_count"`
	TypeCount      int                          `json:"type_count"`
	// PopulationQuartile ranks the cell 1-4 among all cells by total count.
	PopulationQuartile int `json:"population_quartile"`
	// WindowIndex combines category diversity and excess report volume to
	// rank candidate hotspot regions. Always >= 0.
	WindowIndex float64 `json:"window_index"`
}

// CategoriesPresent returns the categories with a nonzero count, in the
// fixed enumeration order.
func (c Cell) CategoriesPresent() []observation.Category {
	present := make([]observation.Category, 0, len(c.CategoryCounts))
	for _, cat := range observation.AllCategories() {
		if c.CategoryCounts[cat] > 0 {
			present = append(present, cat)
		}
	}
	return present
}

// HasCategory reports whether the cell contains at least one record of cat.
func (c Cell) HasCategory(cat observation.Category) bool {
	return c.CategoryCounts[cat] > 0
}

// Snapshot is the complete, immutable output of one grid rebuild. Readers
// always see either the previous snapshot or this one, never a mix.
type Snapshot struct {
	RunID      core.RunID     `json:"run_id"`
	Resolution float64        `json:"resolution"`
	Cells      []Cell         `json:"cells"`
	BuiltAt    core.Timestamp `json:"built_at"`
}
