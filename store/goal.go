package store

// GoalHorizon is the time horizon of a goal.
type GoalHorizon string

const (
	GoalHorizonShort  GoalHorizon = "short"
	GoalHorizonMedium GoalHorizon = "medium"
	GoalHorizonLong   GoalHorizon = "long"
)

// GoalStatus is the lifecycle status of a goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusArchived  GoalStatus = "archived"
)

// Goal represents a long-lived user objective. Goals are mutated only
// through explicit goal-management operations; the synthesis pipeline reads
// active goals and never writes them.
type Goal struct {
	ID        string
	UserID    string
	Content   string
	Horizon   GoalHorizon
	Status    GoalStatus
	CreatedTs int64
	UpdatedTs int64
}

// FindGoal specifies the conditions for finding goals.
type FindGoal struct {
	UserID  string
	ID      *string
	Status  *GoalStatus
	Horizon *GoalHorizon
	Limit   int
}

// UpdateGoal specifies a partial goal update. Nil fields are left unchanged.
type UpdateGoal struct {
	ID      string
	UserID  string
	Content *string
	Horizon *GoalHorizon
	Status  *GoalStatus
}
