package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Migrator handles database schema migrations
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new migrator
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

type migration struct {
	version string
	sql     string
}

// Migrations run in order; never edit an applied migration, append a new one.
var all = []migration{
	{
		version: "0001_observations",
		sql: `
			CREATE TABLE IF NOT EXISTS observations (
				id UUID PRIMARY KEY,
				category TEXT NOT NULL,
				latitude DOUBLE PRECISION,
				longitude DOUBLE PRECISION,
				occurred_at TIMESTAMPTZ NOT NULL,
				payload JSONB
			);
			CREATE INDEX IF NOT EXISTS idx_observations_category ON observations (category);
			CREATE INDEX IF NOT EXISTS idx_observations_geo ON observations (latitude, longitude)
				WHERE latitude IS NOT NULL AND longitude IS NOT NULL;`,
	},
	{
		version: "0002_grid",
		sql: `
			CREATE TABLE IF NOT EXISTS grid_snapshots (
				resolution DOUBLE PRECISION PRIMARY KEY,
				run_id UUID NOT NULL,
				cell_count INTEGER NOT NULL,
				built_at TIMESTAMPTZ NOT NULL
			);
			CREATE TABLE IF NOT EXISTS grid_cells (
				resolution DOUBLE PRECISION NOT NULL,
				cell_key TEXT NOT NULL,
				run_id UUID NOT NULL,
				lat_bucket INTEGER NOT NULL,
				lng_bucket INTEGER NOT NULL,
				center_lat DOUBLE PRECISION NOT NULL,
				center_lng DOUBLE PRECISION NOT NULL,
				category_counts JSONB NOT NULL,
				total_count INTEGER NOT NULL,
				type_count INTEGER NOT NULL,
				population_quartile INTEGER NOT NULL,
				window_index DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (resolution, cell_key)
			);`,
	},
	{
		version: "0003_cooccurrence",
		sql: `
			CREATE TABLE IF NOT EXISTS cooccurrence_results (
				run_id UUID PRIMARY KEY,
				resolution DOUBLE PRECISION NOT NULL,
				shuffle_count INTEGER NOT NULL,
				cell_count INTEGER NOT NULL,
				pairings JSONB NOT NULL,
				strongest JSONB,
				window_effect_detected BOOLEAN NOT NULL,
				stratified JSONB,
				analyzed_at TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_cooccurrence_resolution
				ON cooccurrence_results (resolution, analyzed_at DESC);
			CREATE TABLE IF NOT EXISTS multi_resolution_results (
				run_id UUID PRIMARY KEY,
				points JSONB NOT NULL,
				resolution_correlation DOUBLE PRECISION NOT NULL,
				analyzed_at TIMESTAMPTZ NOT NULL
			);`,
	},
	{
		version: "0004_audit",
		sql: `
			CREATE TABLE IF NOT EXISTS score_audit_entries (
				id UUID PRIMARY KEY,
				draft_id TEXT NOT NULL,
				content_hash TEXT NOT NULL,
				state JSONB NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				changes JSONB,
				flags JSONB,
				created_at TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_audit_draft
				ON score_audit_entries (draft_id, created_at DESC);`,
	},
	{
		version: "0005_predictions",
		sql: `
			CREATE TABLE IF NOT EXISTS predictions (
				id UUID PRIMARY KEY,
				statement TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'open',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				resolved_at TIMESTAMPTZ,
				version INTEGER NOT NULL DEFAULT 0
			);
			CREATE TABLE IF NOT EXISTS prediction_results (
				id UUID PRIMARY KEY,
				prediction_id UUID NOT NULL REFERENCES predictions (id),
				sample_size INTEGER NOT NULL,
				p_value DOUBLE PRECISION NOT NULL,
				effect_observed BOOLEAN NOT NULL,
				quality_score DOUBLE PRECISION NOT NULL,
				accepted_at TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_prediction_results
				ON prediction_results (prediction_id, quality_score);`,
	},
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, mig := range all {
		sum := checksum(mig.sql)
		if prev, ok := applied[mig.version]; ok {
			if prev != sum {
				return fmt.Errorf("migration %s was modified after being applied", mig.version)
			}
			continue
		}
		if err := m.apply(ctx, mig, sum); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.version, err)
		}
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, mig migration, sum string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`,
		mig.version, sum); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, sum string
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

func checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
