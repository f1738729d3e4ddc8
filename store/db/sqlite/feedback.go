package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daybrief/daybrief/store"
)

// UpsertInsightFeedback records a verdict; a repeated vote for the same
// (user, insight) replaces the previous one.
func (d *DB) UpsertInsightFeedback(ctx context.Context, upsert *store.InsightFeedback) (*store.InsightFeedback, error) {
	upsert.CreatedTs = time.Now().Unix()

	stmt := `INSERT INTO insight_feedback (user_id, insight_id, verdict, created_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, insight_id) DO UPDATE SET
			verdict = excluded.verdict,
			created_ts = excluded.created_ts
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.InsightID,
		string(upsert.Verdict),
		upsert.CreatedTs,
	).Scan(&upsert.ID); err != nil {
		return nil, errors.Wrap(err, "failed to upsert insight feedback")
	}
	return upsert, nil
}

func (d *DB) ListInsightFeedback(ctx context.Context, find *store.FindInsightFeedback) ([]*store.InsightFeedback, error) {
	where, args := []string{"user_id = ?"}, []any{find.UserID}

	if find.InsightID != nil {
		where, args = append(where, "insight_id = ?"), append(args, *find.InsightID)
	}

	query := `SELECT id, user_id, insight_id, verdict, created_ts
		FROM insight_feedback
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list insight feedback")
	}
	defer rows.Close()

	list := []*store.InsightFeedback{}
	for rows.Next() {
		var feedback store.InsightFeedback
		if err := rows.Scan(
			&feedback.ID,
			&feedback.UserID,
			&feedback.InsightID,
			&feedback.Verdict,
			&feedback.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan insight feedback")
		}
		list = append(list, &feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate insight feedback")
	}
	return list, nil
}
