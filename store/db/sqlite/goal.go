package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daybrief/daybrief/store"
)

func (d *DB) CreateGoal(ctx context.Context, create *store.Goal) (*store.Goal, error) {
	now := time.Now().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now

	stmt := `INSERT INTO goal (id, user_id, content, horizon, status, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.UserID,
		create.Content,
		string(create.Horizon),
		string(create.Status),
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create goal")
	}
	return create, nil
}

func (d *DB) ListGoals(ctx context.Context, find *store.FindGoal) ([]*store.Goal, error) {
	where, args := []string{"user_id = ?"}, []any{find.UserID}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}
	if find.Horizon != nil {
		where, args = append(where, "horizon = ?"), append(args, string(*find.Horizon))
	}

	query := `SELECT id, user_id, content, horizon, status, created_ts, updated_ts
		FROM goal
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list goals")
	}
	defer rows.Close()

	list := []*store.Goal{}
	for rows.Next() {
		var goal store.Goal
		if err := rows.Scan(
			&goal.ID,
			&goal.UserID,
			&goal.Content,
			&goal.Horizon,
			&goal.Status,
			&goal.CreatedTs,
			&goal.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan goal")
		}
		list = append(list, &goal)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate goals")
	}
	return list, nil
}

func (d *DB) UpdateGoal(ctx context.Context, update *store.UpdateGoal) (*store.Goal, error) {
	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}

	if update.Content != nil {
		set, args = append(set, "content = ?"), append(args, *update.Content)
	}
	if update.Horizon != nil {
		set, args = append(set, "horizon = ?"), append(args, string(*update.Horizon))
	}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, string(*update.Status))
	}
	args = append(args, update.ID, update.UserID)

	stmt := `UPDATE goal SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND user_id = ?
		RETURNING id, user_id, content, horizon, status, created_ts, updated_ts`

	var goal store.Goal
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Content,
		&goal.Horizon,
		&goal.Status,
		&goal.CreatedTs,
		&goal.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update goal")
	}
	return &goal, nil
}
