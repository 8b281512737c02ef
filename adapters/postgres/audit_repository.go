package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"geoanomaly/domain/audit"
	"geoanomaly/domain/core"
	"geoanomaly/ports"
)

// AuditRepositoryImpl stores score audit entries append-only in
// PostgreSQL, keyed by (draft_id, created_at). Rows are never updated or
// deleted; the integrity guarantee rests on immutability plus strict
// chronological ordering.
type AuditRepositoryImpl struct {
	db *sqlx.DB
}

// NewAuditRepository creates a PostgreSQL audit repository
func NewAuditRepository(db *sqlx.DB) ports.AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

// Append inserts one audit entry
func (r *AuditRepositoryImpl) Append(ctx context.Context, entry *audit.Entry) error {
	stateJSON, _ := json.Marshal(entry.State)
	changesJSON, _ := json.Marshal(entry.Changes)
	flagsJSON, _ := json.Marshal(entry.Flags)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO score_audit_entries (
			id, draft_id, content_hash, state, score, changes, flags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID.String(), entry.DraftID.String(), entry.ContentHash.String(),
		stateJSON, entry.Score, changesJSON, flagsJSON, entry.CreatedAt.Time())
	return err
}

// Latest returns the most recent entry for a draft
func (r *AuditRepositoryImpl) Latest(ctx context.Context, draftID core.DraftID) (*audit.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, draft_id, content_hash, state, score, changes, flags, created_at
		FROM score_audit_entries
		WHERE draft_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, draftID.String())

	entry, err := scanAuditEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// CountForDraft returns how many scoring attempts exist for a draft
func (r *AuditRepositoryImpl) CountForDraft(ctx context.Context, draftID core.DraftID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM score_audit_entries WHERE draft_id = $1`,
		draftID.String()).Scan(&count)
	return count, err
}

// History returns entries for a draft, newest first
func (r *AuditRepositoryImpl) History(ctx context.Context, draftID core.DraftID, limit int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, content_hash, state, score, changes, flags, created_at
		FROM score_audit_entries
		WHERE draft_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, draftID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanAuditEntry(row rowScanner) (*audit.Entry, error) {
	var entry audit.Entry
	var id, draftID, contentHash string
	var stateJSON, changesJSON, flagsJSON []byte
	var createdAt time.Time

	if err := row.Scan(&id, &draftID, &contentHash, &stateJSON, &entry.Score,
		&changesJSON, &flagsJSON, &createdAt); err != nil {
		return nil, err
	}

	entry.ID = core.ID(id)
	entry.DraftID = core.DraftID(draftID)
	entry.ContentHash = core.StateHash(contentHash)
	entry.CreatedAt = core.NewTimestamp(createdAt)
	if err := json.Unmarshal(stateJSON, &entry.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft state: %w", err)
	}
	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &entry.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}
	return &entry, nil
}
