package feedback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/internal/profile"
	"github.com/daybrief/daybrief/store"
	"github.com/daybrief/daybrief/store/db/sqlite"
)

func newTestService(t *testing.T) (Service, *store.Store) {
	t.Helper()
	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "feedback_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	st := store.New(driver, p)
	return NewService(st), st
}

func seedInsight(t *testing.T, st *store.Store, userID, id string) {
	t.Helper()
	_, err := st.CreateInsight(context.Background(), &store.Insight{
		ID:          id,
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
		Status:      store.InsightStatusOK,
	})
	require.NoError(t, err)
}

func TestRecordVerdictLatestWins(t *testing.T) {
	svc, st := newTestService(t)
	seedInsight(t, st, "u1", "in1")

	_, err := svc.RecordVerdict(context.Background(), "u1", "in1", store.FeedbackLike)
	require.NoError(t, err)
	_, err = svc.RecordVerdict(context.Background(), "u1", "in1", store.FeedbackDislike)
	require.NoError(t, err)

	list, err := svc.ListFeedback(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1, "repeated verdicts replace, never accumulate")
	require.Equal(t, store.FeedbackDislike, list[0].Verdict)
}

func TestRecordVerdictValidation(t *testing.T) {
	svc, st := newTestService(t)
	seedInsight(t, st, "u1", "in1")

	_, err := svc.RecordVerdict(context.Background(), "u1", "in1", store.FeedbackVerdict("meh"))
	require.Error(t, err)

	_, err = svc.RecordVerdict(context.Background(), "u1", "missing", store.FeedbackLike)
	require.ErrorIs(t, err, ErrInsightNotFound)

	// An insight belonging to another user is invisible.
	_, err = svc.RecordVerdict(context.Background(), "u2", "in1", store.FeedbackLike)
	require.ErrorIs(t, err, ErrInsightNotFound)
}
