package store

import (
	"context"

	"github.com/daybrief/daybrief/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Contact methods.

// ApplyContactDelta reads the current contact, merges the delta, and writes
// the result through the driver's atomic upsert. This is the only contact
// write path used by the synthesis pipeline.
func (s *Store) ApplyContactDelta(ctx context.Context, userID string, delta *ContactDelta) (*Contact, error) {
	existing, err := s.driver.GetContact(ctx, userID, delta.Email)
	if err != nil {
		return nil, err
	}
	merged := MergeContact(existing, delta)
	merged.UserID = userID
	return s.driver.UpsertContact(ctx, merged)
}

func (s *Store) GetContact(ctx context.Context, userID, email string) (*Contact, error) {
	return s.driver.GetContact(ctx, userID, email)
}

func (s *Store) ListContacts(ctx context.Context, find *FindContact) ([]*Contact, error) {
	return s.driver.ListContacts(ctx, find)
}

// Goal methods.

func (s *Store) CreateGoal(ctx context.Context, create *Goal) (*Goal, error) {
	return s.driver.CreateGoal(ctx, create)
}

func (s *Store) ListGoals(ctx context.Context, find *FindGoal) ([]*Goal, error) {
	return s.driver.ListGoals(ctx, find)
}

func (s *Store) UpdateGoal(ctx context.Context, update *UpdateGoal) (*Goal, error) {
	return s.driver.UpdateGoal(ctx, update)
}

// Insight methods.

func (s *Store) CreateInsight(ctx context.Context, create *Insight) (*Insight, error) {
	return s.driver.CreateInsight(ctx, create)
}

func (s *Store) ListInsights(ctx context.Context, find *FindInsight) ([]*Insight, error) {
	return s.driver.ListInsights(ctx, find)
}

func (s *Store) GetLatestInsight(ctx context.Context, userID string) (*Insight, error) {
	return s.driver.GetLatestInsight(ctx, userID)
}

func (s *Store) MarkInsightViewed(ctx context.Context, userID, id string) error {
	return s.driver.MarkInsightViewed(ctx, userID, id)
}

// Feedback methods.

func (s *Store) UpsertInsightFeedback(ctx context.Context, upsert *InsightFeedback) (*InsightFeedback, error) {
	return s.driver.UpsertInsightFeedback(ctx, upsert)
}

func (s *Store) ListInsightFeedback(ctx context.Context, find *FindInsightFeedback) ([]*InsightFeedback, error) {
	return s.driver.ListInsightFeedback(ctx, find)
}
