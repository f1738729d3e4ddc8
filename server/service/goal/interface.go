package goal

import (
	"context"

	"github.com/daybrief/daybrief/store"
)

// Service defines the business logic for goal management. The synthesis
// pipeline reads active goals through this interface; goal mutation happens
// only here, never in the pipeline.
type Service interface {
	// CreateGoal validates and stores a new goal.
	CreateGoal(ctx context.Context, userID string, create *CreateGoalRequest) (*store.Goal, error)

	// ListGoals returns the user's goals, optionally filtered by status.
	ListGoals(ctx context.Context, userID string, status *store.GoalStatus) ([]*store.Goal, error)

	// ListActiveGoals returns the goals the alignment stage reads.
	ListActiveGoals(ctx context.Context, userID string) ([]*store.Goal, error)

	// UpdateGoal applies a partial update after an ownership check.
	UpdateGoal(ctx context.Context, userID, id string, update *UpdateGoalRequest) (*store.Goal, error)

	// DeleteGoal archives a goal. Goals are never hard-deleted so old
	// alignment notes keep their referent.
	DeleteGoal(ctx context.Context, userID, id string) error
}

// CreateGoalRequest carries the fields a user may set on creation.
type CreateGoalRequest struct {
	Content string
	Horizon store.GoalHorizon
}

// UpdateGoalRequest carries a partial update; nil fields are untouched.
type UpdateGoalRequest struct {
	Content *string
	Horizon *store.GoalHorizon
	Status  *store.GoalStatus
}
