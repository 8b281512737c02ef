package ports

import (
	"context"

	"geoanomaly/domain/grid"
)

// GridRepository persists grid snapshots. ReplaceSnapshot must be atomic
// from the reader's perspective: a rebuild in progress is never observable
// in a half-written state.
type GridRepository interface {
	// ReplaceSnapshot deletes all cells for the snapshot's resolution and
	// inserts the new set in one transaction.
	ReplaceSnapshot(ctx context.Context, snap *grid.Snapshot) error

	// GetSnapshot returns the current snapshot for a resolution.
	GetSnapshot(ctx context.Context, resolution float64) (*grid.Snapshot, error)
}
