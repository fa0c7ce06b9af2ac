// Package migrations applies the SQL schema the Postgres store relies on.
// Statements are idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		pin               TEXT NOT NULL,
		spend_tokens      INTEGER NOT NULL CHECK (spend_tokens >= 0),
		save_tokens       INTEGER NOT NULL CHECK (save_tokens >= 0),
		grow_tokens       INTEGER NOT NULL CHECK (grow_tokens >= 0),
		assigned_missions JSONB NOT NULL DEFAULT '[]',
		purchased_rewards JSONB NOT NULL DEFAULT '[]',
		save_goal         INTEGER NOT NULL DEFAULT 0,
		history           JSONB NOT NULL DEFAULT '[]',
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS missions (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		base_reward         INTEGER NOT NULL CHECK (base_reward > 0),
		current_reward      INTEGER NOT NULL,
		requested_by        JSONB NOT NULL DEFAULT '[]',
		assigned_student_id TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL,
		band_color          TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_missions_status ON missions(status)`,
	`CREATE TABLE IF NOT EXISTS rewards (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost        INTEGER NOT NULL CHECK (cost > 0),
		icon        TEXT NOT NULL DEFAULT '',
		sold_out    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pending_rewards (
		id            TEXT PRIMARY KEY,
		mission_id    TEXT NOT NULL,
		student_id    TEXT NOT NULL,
		mission_title TEXT NOT NULL,
		total_amount  INTEGER NOT NULL CHECK (total_amount >= 0),
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_rewards_student ON pending_rewards(student_id)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Count returns the number of migration statements. Used by tests.
func Count() int { return len(statements) }
