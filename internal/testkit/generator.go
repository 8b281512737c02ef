package testkit

import (
	"math/rand"

	"geoanomaly/domain/core"
	"geoanomaly/domain/observation"
)

// Generator produces synthetic observation records with controllable
// spatial structure. All output is a pure function of the seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a seeded synthetic record generator.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Cluster generates count records of one category scattered uniformly
// within spread degrees of the center.
func (g *Generator) Cluster(cat observation.Category, centerLat, centerLng, spread float64, count int) []observation.Record {
	records := make([]observation.Record, 0, count)
	for i := 0; i < count; i++ {
		lat := centerLat + (g.rng.Float64()*2-1)*spread
		lng := centerLng + (g.rng.Float64()*2-1)*spread
		records = append(records, g.record(cat, lat, lng))
	}
	return records
}

// Scatter generates count records of one category uniformly over the
// bounding box.
func (g *Generator) Scatter(cat observation.Category, minLat, maxLat, minLng, maxLng float64, count int) []observation.Record {
	records := make([]observation.Record, 0, count)
	for i := 0; i < count; i++ {
		lat := minLat + g.rng.Float64()*(maxLat-minLat)
		lng := minLng + g.rng.Float64()*(maxLng-minLng)
		records = append(records, g.record(cat, lat, lng))
	}
	return records
}

// WithoutCoordinates generates count records missing a location. The grid
// builder must skip them.
func (g *Generator) WithoutCoordinates(cat observation.Category, count int) []observation.Record {
	records := make([]observation.Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, observation.Record{
			ID:         core.ObservationID(core.NewID()),
			Category:   cat,
			OccurredAt: core.Now(),
		})
	}
	return records
}

// WindowEffectDataset builds a record set where two categories co-occur in
// the same cells far more than their prevalence explains: paired clusters
// at shared centers, plus uniform background noise for the remaining
// categories.
func (g *Generator) WindowEffectDataset() []observation.Record {
	var records []observation.Record

	// Hotspots: ufo and bigfoot share five tight centers.
	centers := [][2]float64{{40.5, -111.5}, {44.5, -122.5}, {35.5, -106.5}, {47.5, -120.5}, {38.5, -104.5}}
	for _, c := range centers {
		records = append(records, g.Cluster(observation.CategoryUFO, c[0], c[1], 0.2, 12)...)
		records = append(records, g.Cluster(observation.CategoryBigfoot, c[0], c[1], 0.2, 12)...)
	}

	// Background: the other categories spread independently.
	records = append(records, g.Scatter(observation.CategoryHaunting, 30, 50, -125, -100, 40)...)
	records = append(records, g.Scatter(observation.CategoryMissingPerson, 30, 50, -125, -100, 20)...)
	records = append(records, g.Scatter(observation.CategoryAnomaly, 30, 50, -125, -100, 30)...)

	return records
}

func (g *Generator) record(cat observation.Category, lat, lng float64) observation.Record {
	return observation.Record{
		ID:         core.ObservationID(core.NewID()),
		Category:   cat,
		Latitude:   &lat,
		Longitude:  &lng,
		OccurredAt: core.Now(),
	}
}
