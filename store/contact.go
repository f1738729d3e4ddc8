package store

import (
	"sort"
	"strings"
	"time"
)

// Contact represents one person in the user's social graph, keyed by email.
// It is updated incrementally by the priority/social analysis stage each
// synthesis cycle; history is merged, never overwritten.
type Contact struct {
	UserID            string
	Email             string
	Name              string
	LastInteractionAt time.Time
	InteractionCount  int
	RecentTopics      []string
	RelationshipNote  string
	CreatedTs         int64
	UpdatedTs         int64
}

// ContactDelta is one cycle's observation about a contact, folded into the
// stored Contact via MergeContact.
type ContactDelta struct {
	Email            string
	Name             string
	OccurredAt       time.Time
	Topics           []string
	Interactions     int
	RelationshipNote string
}

// FindContact specifies the conditions for finding contacts.
type FindContact struct {
	UserID      string
	Email       *string
	StaleBefore *time.Time // only contacts with LastInteractionAt before this
	Limit       int
}

// maxRecentTopics bounds the merged topic list so the social prompt context
// stays small.
const maxRecentTopics = 20

// MergeContact folds a delta into an existing contact and returns the merged
// result. The merge is commutative across deltas: topics are unioned,
// timestamps take the maximum, and interaction counts are summed, so the
// order in which cycles land cannot corrupt relationship history. A nil
// existing contact yields a fresh one.
func MergeContact(existing *Contact, delta *ContactDelta) *Contact {
	merged := &Contact{Email: delta.Email}
	if existing != nil {
		merged.UserID = existing.UserID
		merged.Email = existing.Email
		merged.Name = existing.Name
		merged.LastInteractionAt = existing.LastInteractionAt
		merged.InteractionCount = existing.InteractionCount
		merged.RecentTopics = append(merged.RecentTopics, existing.RecentTopics...)
		merged.RelationshipNote = existing.RelationshipNote
		merged.CreatedTs = existing.CreatedTs
	}

	if merged.Name == "" {
		merged.Name = delta.Name
	}
	if delta.OccurredAt.After(merged.LastInteractionAt) {
		merged.LastInteractionAt = delta.OccurredAt
	}
	merged.InteractionCount += delta.Interactions
	merged.RecentTopics = unionTopics(merged.RecentTopics, delta.Topics)
	if delta.RelationshipNote != "" {
		merged.RelationshipNote = delta.RelationshipNote
	}
	return merged
}

// unionTopics merges two topic lists case-insensitively, keeping a sorted,
// bounded result so merge order does not matter.
func unionTopics(a, b []string) []string {
	seen := make(map[string]string, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, topic := range list {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			key := strings.ToLower(topic)
			if _, ok := seen[key]; !ok {
				seen[key] = topic
			}
		}
	}
	merged := make([]string, 0, len(seen))
	for _, topic := range seen {
		merged = append(merged, topic)
	}
	sort.Strings(merged)
	if len(merged) > maxRecentTopics {
		merged = merged[:maxRecentTopics]
	}
	return merged
}

// NameFromEmail derives a probable display name from an email address local
// part, e.g. "jane.doe@corp.com" becomes "Jane Doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
