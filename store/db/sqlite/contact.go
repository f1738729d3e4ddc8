package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daybrief/daybrief/store"
)

// UpsertContact writes a merged contact atomically per (user_id, email) key.
// The merge itself happens in the store layer; the driver replaces the row.
func (d *DB) UpsertContact(ctx context.Context, contact *store.Contact) (*store.Contact, error) {
	topics, err := json.Marshal(contact.RecentTopics)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal recent topics")
	}

	now := time.Now().Unix()
	if contact.CreatedTs == 0 {
		contact.CreatedTs = now
	}
	contact.UpdatedTs = now

	stmt := `INSERT INTO contact (user_id, email, name, last_interaction_ts, interaction_count, recent_topics, relationship_note, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, email) DO UPDATE SET
			name = excluded.name,
			last_interaction_ts = excluded.last_interaction_ts,
			interaction_count = excluded.interaction_count,
			recent_topics = excluded.recent_topics,
			relationship_note = excluded.relationship_note,
			updated_ts = excluded.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		contact.UserID,
		contact.Email,
		contact.Name,
		contact.LastInteractionAt.Unix(),
		contact.InteractionCount,
		string(topics),
		contact.RelationshipNote,
		contact.CreatedTs,
		contact.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert contact")
	}

	return contact, nil
}

// GetContact returns the contact for the key, or nil when absent.
func (d *DB) GetContact(ctx context.Context, userID, email string) (*store.Contact, error) {
	find := &store.FindContact{UserID: userID, Email: &email, Limit: 1}
	contacts, err := d.ListContacts(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return contacts[0], nil
}

func (d *DB) ListContacts(ctx context.Context, find *store.FindContact) ([]*store.Contact, error) {
	where, args := []string{"user_id = ?"}, []any{find.UserID}

	if find.Email != nil {
		where, args = append(where, "email = ?"), append(args, *find.Email)
	}
	if find.StaleBefore != nil {
		where, args = append(where, "last_interaction_ts < ?"), append(args, find.StaleBefore.Unix())
	}

	query := `SELECT user_id, email, name, last_interaction_ts, interaction_count, recent_topics, relationship_note, created_ts, updated_ts
		FROM contact
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY last_interaction_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts")
	}
	defer rows.Close()

	list := []*store.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate contacts")
	}
	return list, nil
}

func scanContact(rows *sql.Rows) (*store.Contact, error) {
	var contact store.Contact
	var lastInteractionTs int64
	var topicsJSON string

	if err := rows.Scan(
		&contact.UserID,
		&contact.Email,
		&contact.Name,
		&lastInteractionTs,
		&contact.InteractionCount,
		&topicsJSON,
		&contact.RelationshipNote,
		&contact.CreatedTs,
		&contact.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan contact")
	}

	contact.LastInteractionAt = time.Unix(lastInteractionTs, 0).UTC()
	if err := json.Unmarshal([]byte(topicsJSON), &contact.RecentTopics); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal recent topics")
	}
	return &contact, nil
}
