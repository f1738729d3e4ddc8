// Package feedback records user verdicts on briefings. Verdicts feed future
// prompt tuning; nothing in the synthesis pipeline reads them.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/daybrief/daybrief/store"
)

// ErrInsightNotFound means the verdict targets a missing or foreign insight.
var ErrInsightNotFound = errors.New("insight not found")

// Service records and lists briefing feedback.
type Service interface {
	// RecordVerdict stores a like/dislike for an insight. Idempotent per
	// (user, insight): the latest verdict wins.
	RecordVerdict(ctx context.Context, userID, insightID string, verdict store.FeedbackVerdict) (*store.InsightFeedback, error)

	// ListFeedback returns the user's recorded verdicts.
	ListFeedback(ctx context.Context, userID string) ([]*store.InsightFeedback, error)
}

type service struct {
	store *store.Store
}

func NewService(st *store.Store) Service {
	return &service{store: st}
}

func (s *service) RecordVerdict(ctx context.Context, userID, insightID string, verdict store.FeedbackVerdict) (*store.InsightFeedback, error) {
	switch verdict {
	case store.FeedbackLike, store.FeedbackDislike:
	default:
		return nil, fmt.Errorf("invalid verdict: %q", verdict)
	}

	insights, err := s.store.ListInsights(ctx, &store.FindInsight{UserID: userID, ID: &insightID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(insights) == 0 {
		return nil, ErrInsightNotFound
	}

	return s.store.UpsertInsightFeedback(ctx, &store.InsightFeedback{
		UserID:    userID,
		InsightID: insightID,
		Verdict:   verdict,
	})
}

func (s *service) ListFeedback(ctx context.Context, userID string) ([]*store.InsightFeedback, error) {
	return s.store.ListInsightFeedback(ctx, &store.FindInsightFeedback{UserID: userID})
}
