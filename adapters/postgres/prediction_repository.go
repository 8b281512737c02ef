package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"geoanomaly/domain/core"
	"geoanomaly/domain/prediction"
	"geoanomaly/ports"
)

// PredictionRepositoryImpl persists predictions and their accepted test
// results in PostgreSQL. Status updates use optimistic concurrency: a
// version mismatch surfaces core.ErrConflict and the caller retries with
// fresh data.
type PredictionRepositoryImpl struct {
	db *sqlx.DB
}

// NewPredictionRepository creates a PostgreSQL prediction repository
func NewPredictionRepository(db *sqlx.DB) ports.PredictionRepository {
	return &PredictionRepositoryImpl{db: db}
}

// GetPrediction retrieves a prediction by ID
func (r *PredictionRepositoryImpl) GetPrediction(ctx context.Context, id core.PredictionID) (*prediction.Prediction, error) {
	var p prediction.Prediction
	var pid, statement, status string
	var createdAt time.Time
	var resolvedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, statement, status, created_at, resolved_at, version
		FROM predictions
		WHERE id = $1`, id.String()).Scan(
		&pid, &statement, &status, &createdAt, &resolvedAt, &p.Version)
	if err == sql.ErrNoRows {
		return nil, core.NewNotFoundError("prediction", id.String())
	}
	if err != nil {
		return nil, err
	}

	p.ID = core.PredictionID(pid)
	p.Statement = statement
	p.Status = prediction.Status(status)
	p.CreatedAt = core.NewTimestamp(createdAt)
	if resolvedAt.Valid {
		t := core.NewTimestamp(resolvedAt.Time)
		p.ResolvedAt = &t
	}
	return &p, nil
}

// UpdateStatus persists a recomputed status, guarded by the version column
func (r *PredictionRepositoryImpl) UpdateStatus(ctx context.Context, p *prediction.Prediction) error {
	var resolvedAt interface{}
	if p.ResolvedAt != nil {
		resolvedAt = p.ResolvedAt.Time()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE predictions
		SET status = $1, resolved_at = $2, version = version + 1
		WHERE id = $3 AND version = $4`,
		string(p.Status), resolvedAt, p.ID.String(), p.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrConflict
	}
	p.Version++
	return nil
}

// SaveResult appends one accepted test result
func (r *PredictionRepositoryImpl) SaveResult(ctx context.Context, result *prediction.TestResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prediction_results (
			id, prediction_id, sample_size, p_value, effect_observed,
			quality_score, accepted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID.String(), result.PredictionID.String(), result.SampleSize,
		result.PValue, result.EffectObserved, result.QualityScore,
		result.AcceptedAt.Time())
	return err
}

// ListQualifyingResults returns all results at or above the quality floor
func (r *PredictionRepositoryImpl) ListQualifyingResults(ctx context.Context, id core.PredictionID, minQuality float64) ([]prediction.TestResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prediction_id, sample_size, p_value, effect_observed,
		       quality_score, accepted_at
		FROM prediction_results
		WHERE prediction_id = $1 AND quality_score >= $2
		ORDER BY accepted_at`, id.String(), minQuality)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []prediction.TestResult
	for rows.Next() {
		var result prediction.TestResult
		var rid, pid string
		var acceptedAt time.Time
		if err := rows.Scan(&rid, &pid, &result.SampleSize, &result.PValue,
			&result.EffectObserved, &result.QualityScore, &acceptedAt); err != nil {
			return nil, err
		}
		result.ID = core.ResultID(rid)
		result.PredictionID = core.PredictionID(pid)
		result.AcceptedAt = core.NewTimestamp(acceptedAt)
		results = append(results, result)
	}
	return results, rows.Err()
}
