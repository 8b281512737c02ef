package ports

import (
	"context"

	"geoanomaly/domain/observation"
)

// ObservationRepository reads ingested observation records. The ingestion
// pipeline owns writes; the core only consumes.
type ObservationRepository interface {
	// ListGeolocated returns every record with non-null coordinates.
	ListGeolocated(ctx context.Context) ([]observation.Record, error)

	// CountByCategory returns record counts per category.
	CountByCategory(ctx context.Context) (map[observation.Category]int, error)
}
