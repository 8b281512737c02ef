package ports

import (
	"context"

	"geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
)

// CooccurrenceRepository stores analysis runs as append-only history.
// Results are never mutated after creation.
type CooccurrenceRepository interface {
	SaveResult(ctx context.Context, result *cooccur.Result) error
	GetResult(ctx context.Context, runID core.RunID) (*cooccur.Result, error)
	ListResults(ctx context.Context, resolution float64, limit int) ([]*cooccur.Result, error)
	SaveMultiResolution(ctx context.Context, result *cooccur.MultiResolutionResult) error
}
