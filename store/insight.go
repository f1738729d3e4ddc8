package store

import "time"

// InsightStatus describes how the briefing was produced.
type InsightStatus string

const (
	// InsightStatusOK means every pipeline stage completed normally.
	InsightStatusOK InsightStatus = "ok"
	// InsightStatusDegraded means one or more stages fell back to partial
	// data or deterministic output; the briefing is still usable.
	InsightStatusDegraded InsightStatus = "degraded"
	// InsightStatusFailed means the cycle could not produce a briefing.
	InsightStatusFailed InsightStatus = "failed"
)

// PriorityItem is one entry in a briefing's top priorities.
type PriorityItem struct {
	Title     string `json:"title"`
	Why       string `json:"why"`
	FirstStep string `json:"first_step"`
}

// RadarItem is an important-but-not-urgent topic to keep in mind.
type RadarItem struct {
	Title   string `json:"title"`
	Context string `json:"context"`
}

// ConnectionItem is a suggested social action for one person.
type ConnectionItem struct {
	Person     string `json:"person"`
	Suggestion string `json:"suggestion"`
}

// Insight is the final advisory briefing produced by one synthesis cycle.
// Insights are terminal: never mutated after creation (except the viewed
// marker), only superseded by a later one. History is retained for audit.
type Insight struct {
	ID            string
	UserID        string
	GeneratedAt   time.Time
	TopPriorities []PriorityItem
	OnYourRadar   []RadarItem
	Connections   []ConnectionItem
	Status        InsightStatus
	// FallbackBody carries the best-effort plain-text briefing when the
	// structured generation failed twice.
	FallbackBody string
	Viewed       bool
	ViewedTs     *int64
}

// FindInsight specifies the conditions for finding insights.
type FindInsight struct {
	UserID        string
	ID            *string
	ExcludeViewed bool
	Limit         int
}
