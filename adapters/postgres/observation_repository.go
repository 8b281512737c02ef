package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"geoanomaly/domain/core"
	"geoanomaly/domain/observation"
	"geoanomaly/ports"
)

// ObservationRepositoryImpl reads ingested observations from PostgreSQL.
// The ingestion pipeline owns the table; this repository never writes.
type ObservationRepositoryImpl struct {
	db *sqlx.DB
}

// NewObservationRepository creates a read-only observation repository
func NewObservationRepository(db *sqlx.DB) ports.ObservationRepository {
	return &ObservationRepositoryImpl{db: db}
}

// ListGeolocated returns every record with non-null coordinates
func (r *ObservationRepositoryImpl) ListGeolocated(ctx context.Context) ([]observation.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, latitude, longitude, occurred_at
		FROM observations
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []observation.Record
	for rows.Next() {
		var rec observation.Record
		var id, category string
		var lat, lng float64
		var occurredAt time.Time
		if err := rows.Scan(&id, &category, &lat, &lng, &occurredAt); err != nil {
			return nil, err
		}
		rec.ID = core.ObservationID(id)
		rec.Category = observation.Category(category)
		rec.Latitude = &lat
		rec.Longitude = &lng
		rec.OccurredAt = core.NewTimestamp(occurredAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByCategory returns record counts per category
func (r *ObservationRepositoryImpl) CountByCategory(ctx context.Context) (map[observation.Category]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM observations GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[observation.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[observation.Category(category)] = count
	}
	return counts, rows.Err()
}
