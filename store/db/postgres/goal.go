package postgres

import (
	"context"
	"fmt"
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
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
	where, args := []string{"user_id = $1"}, []any{find.UserID}

	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if find.Status != nil {
		args = append(args, string(*find.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if find.Horizon != nil {
		args = append(args, string(*find.Horizon))
		where = append(where, fmt.Sprintf("horizon = $%d", len(args)))
	}

	query := `SELECT id, user_id, content, horizon, status, created_ts, updated_ts
		FROM goal
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
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
	set, args := []string{"updated_ts = $1"}, []any{time.Now().Unix()}

	if update.Content != nil {
		args = append(args, *update.Content)
		set = append(set, fmt.Sprintf("content = $%d", len(args)))
	}
	if update.Horizon != nil {
		args = append(args, string(*update.Horizon))
		set = append(set, fmt.Sprintf("horizon = $%d", len(args)))
	}
	if update.Status != nil {
		args = append(args, string(*update.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, update.ID, update.UserID)

	stmt := `UPDATE goal SET ` + strings.Join(set, ", ") +
		fmt.Sprintf(` WHERE id = $%d AND user_id = $%d`, len(args)-1, len(args)) + `
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
