package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daybrief/daybrief/store"
)

// insightPayload is the JSON document stored in the payload column.
type insightPayload struct {
	TopPriorities []store.PriorityItem   `json:"top_priorities"`
	OnYourRadar   []store.RadarItem      `json:"on_your_radar"`
	Connections   []store.ConnectionItem `json:"connections"`
}

func (d *DB) CreateInsight(ctx context.Context, create *store.Insight) (*store.Insight, error) {
	payload, err := json.Marshal(insightPayload{
		TopPriorities: create.TopPriorities,
		OnYourRadar:   create.OnYourRadar,
		Connections:   create.Connections,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal insight payload")
	}

	if create.GeneratedAt.IsZero() {
		create.GeneratedAt = time.Now().UTC()
	}

	stmt := `INSERT INTO insight (id, user_id, generated_ts, status, payload, fallback_body, viewed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.UserID,
		create.GeneratedAt.Unix(),
		string(create.Status),
		string(payload),
		create.FallbackBody,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create insight")
	}
	return create, nil
}

func (d *DB) ListInsights(ctx context.Context, find *store.FindInsight) ([]*store.Insight, error) {
	where, args := []string{"user_id = $1"}, []any{find.UserID}

	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if find.ExcludeViewed {
		where = append(where, "viewed = FALSE")
	}

	query := `SELECT id, user_id, generated_ts, status, payload, fallback_body, viewed, viewed_ts
		FROM insight
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY generated_ts DESC`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list insights")
	}
	defer rows.Close()

	list := []*store.Insight{}
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate insights")
	}
	return list, nil
}

// GetLatestInsight returns the newest insight for the user, or nil when the
// user has none yet.
func (d *DB) GetLatestInsight(ctx context.Context, userID string) (*store.Insight, error) {
	insights, err := d.ListInsights(ctx, &store.FindInsight{UserID: userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(insights) == 0 {
		return nil, nil
	}
	return insights[0], nil
}

func (d *DB) MarkInsightViewed(ctx context.Context, userID, id string) error {
	stmt := `UPDATE insight SET viewed = TRUE, viewed_ts = $1 WHERE id = $2 AND user_id = $3`
	if _, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), id, userID); err != nil {
		return errors.Wrap(err, "failed to mark insight viewed")
	}
	return nil
}

func scanInsight(rows *sql.Rows) (*store.Insight, error) {
	var insight store.Insight
	var generatedTs int64
	var payloadJSON []byte
	var viewedTs sql.NullInt64

	if err := rows.Scan(
		&insight.ID,
		&insight.UserID,
		&generatedTs,
		&insight.Status,
		&payloadJSON,
		&insight.FallbackBody,
		&insight.Viewed,
		&viewedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan insight")
	}

	insight.GeneratedAt = time.Unix(generatedTs, 0).UTC()
	if viewedTs.Valid {
		insight.ViewedTs = &viewedTs.Int64
	}

	var payload insightPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal insight payload")
	}
	insight.TopPriorities = payload.TopPriorities
	insight.OnYourRadar = payload.OnYourRadar
	insight.Connections = payload.Connections

	return &insight, nil
}
