package synthesis

import (
	"fmt"
	"strings"

	"github.com/daybrief/daybrief/store"
)

const clusteringSystemPrompt = `You are an analyst grouping a user's recent activity into themes.
Group the records below by shared project, topic, or intent.
Every record id must appear in exactly one theme. Use a "Miscellaneous" theme for records with no natural grouping.
Respond with a single JSON object: {"themes": [{"label": "...", "record_ids": ["..."]}]}.`

const assessmentSystemPrompt = `You are a chief-of-staff reviewing themed activity for a user.
For each listed item, write a one-sentence rationale explaining why it matters now, and for each social note a short suggestion.
Respond with a single JSON object:
{"urgent": [{"description": "...", "rationale": "..."}], "important": [{"description": "...", "rationale": "..."}], "social_notes": [{"person": "...", "note": "..."}]}.
Keep descriptions exactly as given; only add rationale and note text.`

const alignmentSystemPrompt = `You judge whether action items advance a user's stated goals.
Respond with a single JSON object: {"alignments": [{"action": "...", "goal_id": "...", "note": "..."}]}.
Only include pairs with a genuine connection. An empty list is a valid answer.`

const briefingSystemPrompt = `You write a concise morning briefing from the structured analysis below.
Respond with a single JSON object, no prose around it:
{"top_priorities": [{"title": "...", "why": "...", "first_step": "..."}],
 "on_your_radar": [{"title": "...", "context": "..."}],
 "connections": [{"person": "...", "suggestion": "..."}]}
At most 3 top priorities, 5 radar items, 3 connections. Be specific and actionable.`

const relationshipNotePrompt = `Summarize this relationship in one sentence for the user's private contact notes, based on the interaction topics given. Respond with the sentence only.`

// strictJSONReminder is appended on the single briefing retry.
const strictJSONReminder = "Return ONLY the JSON object. No markdown, no commentary."

// condensedRecordView renders the per-record lines fed to the clustering call:
// id, summary, intent, entities. Raw bodies never reach this stage.
func condensedRecordView(records []*StructuredRecord) string {
	var b strings.Builder
	for _, r := range records {
		entities := strings.Join(flattenEntities(r.Entities), ", ")
		fmt.Fprintf(&b, "- id=%s intent=%s entities=[%s] summary=%s\n", r.ID, r.Intent, entities, r.Summary)
	}
	return b.String()
}

func flattenEntities(e Entities) []string {
	out := make([]string, 0, len(e.People)+len(e.Organizations)+len(e.Projects))
	out = append(out, e.Projects...)
	out = append(out, e.Organizations...)
	out = append(out, e.People...)
	return out
}

func assessmentUserPrompt(urgent, important []ActionItem, social []SocialNote) string {
	var b strings.Builder
	b.WriteString("Urgent candidates:\n")
	for _, item := range urgent {
		fmt.Fprintf(&b, "- %s (theme: %s)\n", item.Description, item.SourceTheme)
	}
	b.WriteString("Important candidates:\n")
	for _, item := range important {
		fmt.Fprintf(&b, "- %s (theme: %s)\n", item.Description, item.SourceTheme)
	}
	b.WriteString("Social notes:\n")
	for _, note := range social {
		fmt.Fprintf(&b, "- %s: %s\n", note.Person, note.Note)
	}
	return b.String()
}

func alignmentUserPrompt(actions []ActionItem, goals []*store.Goal) string {
	var b strings.Builder
	b.WriteString("Action items:\n")
	for _, item := range actions {
		fmt.Fprintf(&b, "- %s\n", item.Description)
	}
	b.WriteString("Active goals:\n")
	for _, g := range goals {
		fmt.Fprintf(&b, "- goal_id=%s horizon=%s content=%s\n", g.ID, g.Horizon, g.Content)
	}
	return b.String()
}

func briefingUserPrompt(assessment *PriorityAssessment, notes []AlignmentNote, contacts []*store.Contact) string {
	var b strings.Builder
	b.WriteString("URGENT:\n")
	for _, item := range assessment.Urgent {
		fmt.Fprintf(&b, "- %s | %s\n", item.Description, item.Rationale)
	}
	b.WriteString("IMPORTANT:\n")
	for _, item := range assessment.Important {
		fmt.Fprintf(&b, "- %s | %s\n", item.Description, item.Rationale)
	}
	b.WriteString("SOCIAL:\n")
	for _, note := range assessment.SocialNotes {
		fmt.Fprintf(&b, "- %s: %s\n", note.Person, note.Note)
	}
	b.WriteString("GOAL ALIGNMENT:\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s\n", n.Note)
	}
	b.WriteString("CONTACTS:\n")
	for _, c := range contacts {
		fmt.Fprintf(&b, "- %s (%s), last contact %s, topics: %s\n",
			c.Name, c.Email, c.LastInteractionAt.Format("2006-01-02"), strings.Join(c.RecentTopics, ", "))
	}
	return b.String()
}
