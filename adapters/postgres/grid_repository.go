package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"geoanomaly/domain/core"
	"geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	"geoanomaly/ports"
)

// GridRepositoryImpl persists grid snapshots in PostgreSQL. ReplaceSnapshot
// runs delete-and-insert inside one transaction so readers only ever see a
// complete grid.
type GridRepositoryImpl struct {
	db *sqlx.DB
}

// NewGridRepository creates a PostgreSQL grid repository
func NewGridRepository(db *sqlx.DB) ports.GridRepository {
	return &GridRepositoryImpl{db: db}
}

// ReplaceSnapshot deletes all cells for the resolution and inserts the new
// set in one transaction
func (r *GridRepositoryImpl) ReplaceSnapshot(ctx context.Context, snap *grid.Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grid_cells WHERE resolution = $1`, snap.Resolution); err != nil {
		return fmt.Errorf("failed to clear grid cells: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO grid_cells (
			resolution, cell_key, run_id, lat_bucket, lng_bucket,
			center_lat, center_lng, category_counts, total_count,
			type_count, population_quartile, window_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, cell := range snap.Cells {
		countsJSON, _ := json.Marshal(cell.CategoryCounts)
		if _, err := stmt.ExecContext(ctx,
			snap.Resolution, cell.Key.String(), snap.RunID.String(),
			cell.Key.LatBucket, cell.Key.LngBucket,
			cell.CenterLat, cell.CenterLng, countsJSON, cell.TotalCount,
			cell.TypeCount, cell.PopulationQuartile, cell.WindowIndex,
		); err != nil {
			return fmt.Errorf("failed to insert cell %s: %w", cell.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO grid_snapshots (resolution, run_id, cell_count, built_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resolution) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			cell_count = EXCLUDED.cell_count,
			built_at = EXCLUDED.built_at`,
		snap.Resolution, snap.RunID.String(), len(snap.Cells), snap.BuiltAt.Time(),
	); err != nil {
		return fmt.Errorf("failed to upsert snapshot row: %w", err)
	}

	return tx.Commit()
}

// GetSnapshot returns the current snapshot for a resolution
func (r *GridRepositoryImpl) GetSnapshot(ctx context.Context, resolution float64) (*grid.Snapshot, error) {
	var runID string
	var builtAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, built_at FROM grid_snapshots WHERE resolution = $1`,
		resolution).Scan(&runID, &builtAt)
	if err == sql.ErrNoRows {
		return nil, core.ErrGridNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT lat_bucket, lng_bucket, center_lat, center_lng, category_counts,
		       total_count, type_count, population_quartile, window_index
		FROM grid_cells
		WHERE resolution = $1
		ORDER BY lat_bucket, lng_bucket`, resolution)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &grid.Snapshot{
		RunID:      core.RunID(runID),
		Resolution: resolution,
		BuiltAt:    core.NewTimestamp(builtAt),
	}
	for rows.Next() {
		var cell grid.Cell
		var countsJSON []byte
		if err := rows.Scan(
			&cell.Key.LatBucket, &cell.Key.LngBucket,
			&cell.CenterLat, &cell.CenterLng, &countsJSON,
			&cell.TotalCount, &cell.TypeCount, &cell.PopulationQuartile, &cell.WindowIndex,
		); err != nil {
			return nil, err
		}
		cell.Key.Resolution = resolution
		cell.CategoryCounts = make(map[observation.Category]int)
		if err := json.Unmarshal(countsJSON, &cell.CategoryCounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal category_counts: %w", err)
		}
		snap.Cells = append(snap.Cells, cell)
	}
	return snap, rows.Err()
}
