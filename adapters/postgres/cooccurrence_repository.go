package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
	"geoanomaly/ports"
)

// CooccurrenceRepositoryImpl stores analysis runs append-only in
// PostgreSQL. There is no update path: results are immutable history.
type CooccurrenceRepositoryImpl struct {
	db *sqlx.DB
}

// NewCooccurrenceRepository creates a PostgreSQL cooccurrence repository
func NewCooccurrenceRepository(db *sqlx.DB) ports.CooccurrenceRepository {
	return &CooccurrenceRepositoryImpl{db: db}
}

// SaveResult appends one analysis run
func (r *CooccurrenceRepositoryImpl) SaveResult(ctx context.Context, result *cooccur.Result) error {
	pairingsJSON, _ := json.Marshal(result.Pairings)
	var strongestJSON []byte
	if result.Strongest != nil {
		strongestJSON, _ = json.Marshal(result.Strongest)
	}
	var stratifiedJSON []byte
	if result.Stratified != nil {
		stratifiedJSON, _ = json.Marshal(result.Stratified)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cooccurrence_results (
			run_id, resolution, shuffle_count, cell_count, pairings,
			strongest, window_effect_detected, stratified, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.RunID.String(), result.Resolution, result.ShuffleCount, result.CellCount,
		pairingsJSON, strongestJSON, result.WindowEffectDetected, stratifiedJSON,
		result.AnalyzedAt.Time())
	return err
}

// GetResult retrieves one analysis run by run ID
func (r *CooccurrenceRepositoryImpl) GetResult(ctx context.Context, runID core.RunID) (*cooccur.Result, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, resolution, shuffle_count, cell_count, pairings,
		       strongest, window_effect_detected, stratified, analyzed_at
		FROM cooccurrence_results
		WHERE run_id = $1`, runID.String())
	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, core.NewNotFoundError("cooccurrence result", runID.String())
	}
	return result, err
}

// ListResults returns recent runs for a resolution, newest first
func (r *CooccurrenceRepositoryImpl) ListResults(ctx context.Context, resolution float64, limit int) ([]*cooccur.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, resolution, shuffle_count, cell_count, pairings,
		       strongest, window_effect_detected, stratified, analyzed_at
		FROM cooccurrence_results
		WHERE resolution = $1
		ORDER BY analyzed_at DESC
		LIMIT $2`, resolution, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*cooccur.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// SaveMultiResolution appends one multi-resolution sweep
func (r *CooccurrenceRepositoryImpl) SaveMultiResolution(ctx context.Context, result *cooccur.MultiResolutionResult) error {
	pointsJSON, _ := json.Marshal(result.Points)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO multi_resolution_results (run_id, points, resolution_correlation, analyzed_at)
		VALUES ($1, $2, $3, $4)`,
		result.RunID.String(), pointsJSON, result.ResolutionCorrelation, result.AnalyzedAt.Time())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*cooccur.Result, error) {
	var result cooccur.Result
	var runID string
	var pairingsJSON, strongestJSON, stratifiedJSON []byte
	var analyzedAt time.Time

	if err := row.Scan(
		&runID, &result.Resolution, &result.ShuffleCount, &result.CellCount,
		&pairingsJSON, &strongestJSON, &result.WindowEffectDetected, &stratifiedJSON,
		&analyzedAt,
	); err != nil {
		return nil, err
	}

	result.RunID = core.RunID(runID)
	result.AnalyzedAt = core.NewTimestamp(analyzedAt)
	if err := json.Unmarshal(pairingsJSON, &result.Pairings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pairings: %w", err)
	}
	if len(strongestJSON) > 0 {
		result.Strongest = &cooccur.PairingResult{}
		if err := json.Unmarshal(strongestJSON, result.Strongest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal strongest pairing: %w", err)
		}
	}
	if len(stratifiedJSON) > 0 {
		if err := json.Unmarshal(stratifiedJSON, &result.Stratified); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stratified results: %w", err)
		}
	}
	return &result, nil
}
