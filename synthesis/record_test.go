package synthesis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const validItem = `{
	"summary": "Ana needs the budget numbers by Friday",
	"intent": "ActionRequest",
	"entities": {"people": ["ana@example.com"], "organizations": [], "projects": ["budget"]},
	"commitments": {"tasks_for_me": ["send numbers"], "tasks_for_others": [], "deadlines": ["Friday"]},
	"sentiment": "neutral",
	"reply_needed": true,
	"urgency_score": 4
}`

func TestDecodeExtractionItem(t *testing.T) {
	record, err := DecodeExtractionItem(json.RawMessage(validItem))
	require.NoError(t, err)
	require.Equal(t, IntentActionRequest, record.Intent)
	require.Equal(t, 4, record.UrgencyScore)
	require.True(t, record.ReplyNeeded)
	require.Equal(t, []string{"Friday"}, record.Commitments.Deadlines)
}

func TestValidateExtractionItemRejects(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{"missing summary", `{"intent":"Other","sentiment":"neutral","reply_needed":false,"urgency_score":1}`},
		{"bad intent", `{"summary":"x","intent":"Urgent","sentiment":"neutral","reply_needed":false,"urgency_score":1}`},
		{"urgency out of range", `{"summary":"x","intent":"Other","sentiment":"neutral","reply_needed":false,"urgency_score":9}`},
		{"urgency not integer", `{"summary":"x","intent":"Other","sentiment":"neutral","reply_needed":false,"urgency_score":"high"}`},
		{"reply_needed not bool", `{"summary":"x","intent":"Other","sentiment":"neutral","reply_needed":"yes","urgency_score":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, ValidateExtractionItem(json.RawMessage(tt.item)))
		})
	}
}

func TestValidateExtractionItemIgnoresExtraKeys(t *testing.T) {
	item := `{"summary":"x","intent":"Other","sentiment":"neutral","reply_needed":false,"urgency_score":1,"confidence":0.9}`
	require.NoError(t, ValidateExtractionItem(json.RawMessage(item)))
}

func TestTopEntityPreference(t *testing.T) {
	r := &StructuredRecord{Entities: Entities{
		People:        []string{"ana@example.com"},
		Organizations: []string{"Acme"},
		Projects:      []string{"apollo"},
	}}
	require.Equal(t, "apollo", r.TopEntity())

	r.Entities.Projects = nil
	require.Equal(t, "Acme", r.TopEntity())

	r.Entities.Organizations = nil
	require.Equal(t, "ana@example.com", r.TopEntity())

	r.Entities.People = nil
	require.Equal(t, "", r.TopEntity())
}
