package store

// FeedbackVerdict is a user's reaction to a briefing.
type FeedbackVerdict string

const (
	FeedbackLike    FeedbackVerdict = "like"
	FeedbackDislike FeedbackVerdict = "dislike"
)

// InsightFeedback records a like/dislike against an insight. At most one
// verdict per (user, insight); a repeated vote replaces the previous one.
type InsightFeedback struct {
	ID        int64
	UserID    string
	InsightID string
	Verdict   FeedbackVerdict
	CreatedTs int64
}

// FindInsightFeedback specifies the conditions for finding feedback.
type FindInsightFeedback struct {
	UserID    string
	InsightID *string
	Limit     int
}
