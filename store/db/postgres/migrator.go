package postgres

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
	last_interaction_ts BIGINT NOT NULL DEFAULT 0,
	interaction_count INTEGER NOT NULL DEFAULT 0,
	recent_topics JSONB NOT NULL DEFAULT '[]',
	relationship_note TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	PRIMARY KEY (user_id, email)
);

CREATE TABLE IF NOT EXISTS goal (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	horizon TEXT NOT NULL DEFAULT 'short',
	status TEXT NOT NULL DEFAULT 'active',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goal_user_status ON goal (user_id, status);

CREATE TABLE IF NOT EXISTS insight (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	generated_ts BIGINT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ok',
	payload JSONB NOT NULL DEFAULT '{}',
	fallback_body TEXT NOT NULL DEFAULT '',
	viewed BOOLEAN NOT NULL DEFAULT FALSE,
	viewed_ts BIGINT
);
CREATE INDEX IF NOT EXISTS idx_insight_user_generated ON insight (user_id, generated_ts DESC);

CREATE TABLE IF NOT EXISTS insight_feedback (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	insight_id TEXT NOT NULL,
	verdict TEXT NOT NULL,
	created_ts BIGINT NOT NULL,
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
