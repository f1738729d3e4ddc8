package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMergeContactFresh(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	merged := MergeContact(nil, &ContactDelta{
		Email:        "jane.doe@corp.com",
		Name:         "Jane Doe",
		OccurredAt:   at,
		Topics:       []string{"Q2 planning"},
		Interactions: 2,
	})

	require.Equal(t, "jane.doe@corp.com", merged.Email)
	require.Equal(t, "Jane Doe", merged.Name)
	require.Equal(t, 2, merged.InteractionCount)
	require.Equal(t, at, merged.LastInteractionAt)
	require.Equal(t, []string{"Q2 planning"}, merged.RecentTopics)
}

func TestMergeContactCommutative(t *testing.T) {
	base := &Contact{
		UserID:            "u1",
		Email:             "sam@corp.com",
		Name:              "Sam",
		LastInteractionAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		InteractionCount:  3,
		RecentTopics:      []string{"budget"},
	}
	a := &ContactDelta{
		Email:        "sam@corp.com",
		OccurredAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Topics:       []string{"hiring", "budget"},
		Interactions: 1,
	}
	b := &ContactDelta{
		Email:        "sam@corp.com",
		OccurredAt:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Topics:       []string{"offsite"},
		Interactions: 2,
	}

	ab := MergeContact(MergeContact(base, a), b)
	ba := MergeContact(MergeContact(base, b), a)

	require.Equal(t, ab.LastInteractionAt, ba.LastInteractionAt)
	require.Equal(t, ab.InteractionCount, ba.InteractionCount)
	require.Equal(t, ab.RecentTopics, ba.RecentTopics)
	require.Equal(t, 6, ab.InteractionCount)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), ab.LastInteractionAt)
	require.Equal(t, []string{"budget", "hiring", "offsite"}, ab.RecentTopics)
}

func TestMergeContactTopicsCaseInsensitiveUnion(t *testing.T) {
	merged := MergeContact(
		&Contact{Email: "a@b.c", RecentTopics: []string{"Roadmap"}},
		&ContactDelta{Email: "a@b.c", Topics: []string{"roadmap", "Launch"}},
	)
	require.Equal(t, []string{"Launch", "Roadmap"}, merged.RecentTopics)
}

func TestMergeContactKeepsExistingName(t *testing.T) {
	merged := MergeContact(
		&Contact{Email: "a@b.c", Name: "Alice"},
		&ContactDelta{Email: "a@b.c", Name: "alice b"},
	)
	require.Equal(t, "Alice", merged.Name)
}

func TestMergeContactNotePreservedUnlessReplaced(t *testing.T) {
	existing := &Contact{Email: "a@b.c", RelationshipNote: "colleague, frequent contact"}

	merged := MergeContact(existing, &ContactDelta{Email: "a@b.c"})
	require.Equal(t, "colleague, frequent contact", merged.RelationshipNote)

	merged = MergeContact(existing, &ContactDelta{Email: "a@b.c", RelationshipNote: "client"})
	require.Equal(t, "client", merged.RelationshipNote)
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@corp.com", "Jane Doe"},
		{"j_smith@x.io", "J Smith"},
		{"team-lead@x.io", "Team Lead"},
		{"solo@x.io", "Solo"},
	}
	for _, tt := range tests {
		if got := NameFromEmail(tt.email); got != tt.want {
			t.Errorf("NameFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
