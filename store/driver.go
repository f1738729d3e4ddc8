package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// Contact model related methods.
	// UpsertContact stores a merged contact atomically per (user, email) key.
	UpsertContact(ctx context.Context, contact *Contact) (*Contact, error)
	GetContact(ctx context.Context, userID, email string) (*Contact, error)
	ListContacts(ctx context.Context, find *FindContact) ([]*Contact, error)

	// Goal model related methods.
	CreateGoal(ctx context.Context, create *Goal) (*Goal, error)
	ListGoals(ctx context.Context, find *FindGoal) ([]*Goal, error)
	UpdateGoal(ctx context.Context, update *UpdateGoal) (*Goal, error)

	// Insight model related methods.
	CreateInsight(ctx context.Context, create *Insight) (*Insight, error)
	ListInsights(ctx context.Context, find *FindInsight) ([]*Insight, error)
	GetLatestInsight(ctx context.Context, userID string) (*Insight, error)
	MarkInsightViewed(ctx context.Context, userID, id string) error

	// Feedback model related methods.
	UpsertInsightFeedback(ctx context.Context, upsert *InsightFeedback) (*InsightFeedback, error)
	ListInsightFeedback(ctx context.Context, find *FindInsightFeedback) ([]*InsightFeedback, error)
}
