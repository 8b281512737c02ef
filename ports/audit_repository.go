package ports

import (
	"context"

	"geoanomaly/domain/audit"
	"geoanomaly/domain/core"
)

// AuditRepository stores score audit entries append-only, keyed by
// (draftID, createdAt). Entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *audit.Entry) error

	// Latest returns the most recent entry for a draft, or nil when the
	// draft has never been scored.
	Latest(ctx context.Context, draftID core.DraftID) (*audit.Entry, error)

	// CountForDraft returns how many scoring attempts exist for a draft.
	CountForDraft(ctx context.Context, draftID core.DraftID) (int, error)

	// History returns entries for a draft, newest first.
	History(ctx context.Context, draftID core.DraftID, limit int) ([]*audit.Entry, error)
}
