package goal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/daybrief/daybrief/store"
)

// ErrNotFound means the goal does not exist or belongs to another user.
var ErrNotFound = errors.New("goal not found")

type service struct {
	store *store.Store
}

// NewService creates a goal service backed by the store.
func NewService(st *store.Store) Service {
	return &service{store: st}
}

func (s *service) CreateGoal(ctx context.Context, userID string, create *CreateGoalRequest) (*store.Goal, error) {
	content := strings.TrimSpace(create.Content)
	if content == "" {
		return nil, errors.New("goal content is required")
	}
	horizon := create.Horizon
	if horizon == "" {
		horizon = store.GoalHorizonMedium
	}
	switch horizon {
	case store.GoalHorizonShort, store.GoalHorizonMedium, store.GoalHorizonLong:
	default:
		return nil, fmt.Errorf("invalid goal horizon: %q", horizon)
	}

	return s.store.CreateGoal(ctx, &store.Goal{
		ID:      uuid.NewString(),
		UserID:  userID,
		Content: content,
		Horizon: horizon,
		Status:  store.GoalStatusActive,
	})
}

func (s *service) ListGoals(ctx context.Context, userID string, status *store.GoalStatus) ([]*store.Goal, error) {
	return s.store.ListGoals(ctx, &store.FindGoal{UserID: userID, Status: status})
}

func (s *service) ListActiveGoals(ctx context.Context, userID string) ([]*store.Goal, error) {
	active := store.GoalStatusActive
	return s.ListGoals(ctx, userID, &active)
}

func (s *service) UpdateGoal(ctx context.Context, userID, id string, update *UpdateGoalRequest) (*store.Goal, error) {
	if _, err := s.ownedGoal(ctx, userID, id); err != nil {
		return nil, err
	}
	if update.Content != nil && strings.TrimSpace(*update.Content) == "" {
		return nil, errors.New("goal content cannot be emptied")
	}
	if update.Horizon != nil {
		switch *update.Horizon {
		case store.GoalHorizonShort, store.GoalHorizonMedium, store.GoalHorizonLong:
		default:
			return nil, fmt.Errorf("invalid goal horizon: %q", *update.Horizon)
		}
	}
	if update.Status != nil {
		switch *update.Status {
		case store.GoalStatusActive, store.GoalStatusCompleted, store.GoalStatusArchived:
		default:
			return nil, fmt.Errorf("invalid goal status: %q", *update.Status)
		}
	}

	return s.store.UpdateGoal(ctx, &store.UpdateGoal{
		ID:      id,
		UserID:  userID,
		Content: update.Content,
		Horizon: update.Horizon,
		Status:  update.Status,
	})
}

func (s *service) DeleteGoal(ctx context.Context, userID, id string) error {
	if _, err := s.ownedGoal(ctx, userID, id); err != nil {
		return err
	}
	archived := store.GoalStatusArchived
	_, err := s.store.UpdateGoal(ctx, &store.UpdateGoal{
		ID:     id,
		UserID: userID,
		Status: &archived,
	})
	return err
}

func (s *service) ownedGoal(ctx context.Context, userID, id string) (*store.Goal, error) {
	goals, err := s.store.ListGoals(ctx, &store.FindGoal{UserID: userID, ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, ErrNotFound
	}
	return goals[0], nil
}
