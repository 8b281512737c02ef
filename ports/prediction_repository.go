package ports

import (
	"context"

	"geoanomaly/domain/core"
	"geoanomaly/domain/prediction"
)

// PredictionRepository persists predictions and their accepted test results.
type PredictionRepository interface {
	GetPrediction(ctx context.Context, id core.PredictionID) (*prediction.Prediction, error)

	// UpdateStatus persists a recomputed status. Implementations must
	// return core.ErrConflict when a concurrent update won; callers retry
	// with fresh data.
	UpdateStatus(ctx context.Context, p *prediction.Prediction) error

	SaveResult(ctx context.Context, result *prediction.TestResult) error

	// ListQualifyingResults returns all results for a prediction with
	// quality score >= minQuality.
	ListQualifyingResults(ctx context.Context, id core.PredictionID, minQuality float64) ([]prediction.TestResult, error)
}
