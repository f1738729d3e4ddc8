package sqlite

import (
	"context"

	"github.com/pkg/errors"
)

// latestSchema is the full schema applied idempotently on startup.
const latestSchema = `
CREATE TABLE IF NOT EXISTS contact (
	user_id TEXT NOT NULL,
	email TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	last_interaction_ts INTEGER NOT NULL DEFAULT 0,
	interaction_count INTEGER NOT NULL DEFAULT 0,
	recent_topics TEXT NOT NULL DEFAULT '[]',
	relationship_note TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL,
	updated_ts INTEGER NOT NULL,
	PRIMARY KEY (user_id, email)
);

CREATE TABLE IF NOT EXISTS goal (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	horizon TEXT NOT NULL DEFAULT 'short',
	status TEXT NOT NULL DEFAULT 'active',
	created_ts INTEGER NOT NULL,
	updated_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goal_user_status ON goal (user_id, status);

CREATE TABLE IF NOT EXISTS insight (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	generated_ts INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'ok',
	payload TEXT NOT NULL DEFAULT '{}',
	fallback_body TEXT NOT NULL DEFAULT '',
	viewed INTEGER NOT NULL DEFAULT 0,
	viewed_ts INTEGER
);
CREATE INDEX IF NOT EXISTS idx_insight_user_generated ON insight (user_id, generated_ts DESC);

CREATE TABLE IF NOT EXISTS insight_feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	insight_id TEXT NOT NULL,
	verdict TEXT NOT NULL,
	created_ts INTEGER NOT NULL,
	UNIQUE (user_id, insight_id)
);
`

// Migrate applies the latest schema to the database.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}
