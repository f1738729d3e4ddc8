package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/store"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &DB{db: mockDB}, mock
}

func TestUpsertContact(t *testing.T) {
	driver, mock := newMockDB(t)

	lastSeen := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contact")).
		WithArgs(
			"u1",
			"ana@example.com",
			"Ana",
			lastSeen.Unix(),
			3,
			`["budget review","offsite"]`,
			"",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	contact, err := driver.UpsertContact(context.Background(), &store.Contact{
		UserID:            "u1",
		Email:             "ana@example.com",
		Name:              "Ana",
		LastInteractionAt: lastSeen,
		InteractionCount:  3,
		RecentTopics:      []string{"budget review", "offsite"},
	})
	require.NoError(t, err)
	require.NotZero(t, contact.CreatedTs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListContactsStaleFilter(t *testing.T) {
	driver, mock := newMockDB(t)

	staleBefore := time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"user_id", "email", "name", "last_interaction_ts", "interaction_count",
		"recent_topics", "relationship_note", "created_ts", "updated_ts",
	}).AddRow("u1", "bo@example.com", "Bo", int64(1746000000), 7, `["hiring"]`, "", int64(1740000000), int64(1746000000))

	mock.ExpectQuery(regexp.QuoteMeta("last_interaction_ts < $2")).
		WithArgs("u1", staleBefore.Unix()).
		WillReturnRows(rows)

	contacts, err := driver.ListContacts(context.Background(), &store.FindContact{
		UserID:      "u1",
		StaleBefore: &staleBefore,
	})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "bo@example.com", contacts[0].Email)
	require.Equal(t, []string{"hiring"}, contacts[0].RecentTopics)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContactAbsent(t *testing.T) {
	driver, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contact")).
		WithArgs("u1", "nobody@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "email", "name", "last_interaction_ts", "interaction_count",
			"recent_topics", "relationship_note", "created_ts", "updated_ts",
		}))

	contact, err := driver.GetContact(context.Background(), "u1", "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, contact)
	require.NoError(t, mock.ExpectationsWereMet())
}
