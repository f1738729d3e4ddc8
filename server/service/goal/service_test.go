package goal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/internal/profile"
	"github.com/daybrief/daybrief/store"
	"github.com/daybrief/daybrief/store/db/sqlite"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "goal_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return NewService(store.New(driver, p))
}

func TestCreateGoalDefaults(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateGoal(context.Background(), "u1", &CreateGoalRequest{
		Content: "Ship the beta",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, store.GoalHorizonMedium, created.Horizon)
	require.Equal(t, store.GoalStatusActive, created.Status)
}

func TestCreateGoalValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateGoal(context.Background(), "u1", &CreateGoalRequest{Content: "  "})
	require.Error(t, err)

	_, err = svc.CreateGoal(context.Background(), "u1", &CreateGoalRequest{
		Content: "x", Horizon: store.GoalHorizon("decade"),
	})
	require.Error(t, err)
}

func TestUpdateGoalOwnership(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateGoal(context.Background(), "u1", &CreateGoalRequest{Content: "Ship the beta"})
	require.NoError(t, err)

	content := "Ship the GA release"
	_, err = svc.UpdateGoal(context.Background(), "intruder", created.ID, &UpdateGoalRequest{Content: &content})
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.UpdateGoal(context.Background(), "u1", created.ID, &UpdateGoalRequest{Content: &content})
	require.NoError(t, err)
	require.Equal(t, content, updated.Content)
}

func TestDeleteGoalArchives(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateGoal(context.Background(), "u1", &CreateGoalRequest{Content: "Learn Rust"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteGoal(context.Background(), "u1", created.ID))

	active, err := svc.ListActiveGoals(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, active)

	archived := store.GoalStatusArchived
	all, err := svc.ListGoals(context.Background(), "u1", &archived)
	require.NoError(t, err)
	require.Len(t, all, 1, "deleted goals are archived, not removed")
}
