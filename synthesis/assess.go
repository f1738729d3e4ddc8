package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/store"
)

// ActionItem is one prioritized piece of work surfaced by assessment.
type ActionItem struct {
	Description string `json:"description"`
	SourceTheme string `json:"source_theme"`
	Rationale   string `json:"rationale"`
}

// SocialNote flags a relationship-relevant observation.
type SocialNote struct {
	Person string `json:"person"`
	Note   string `json:"note"`
}

// PriorityAssessment is the output of the priority/social stage. Degraded is
// set when the enrichment call failed and rationales are deterministic.
type PriorityAssessment struct {
	Urgent      []ActionItem
	Important   []ActionItem
	SocialNotes []SocialNote
	Degraded    bool
}

// urgentThemeThreshold marks a theme urgent by aggregate urgency alone.
const urgentThemeThreshold = 4

// staleContactNoteCap bounds how many stale relationships one briefing flags.
const staleContactNoteCap = 5

// relationshipNoteMinInteractions gates relationship note generation.
const relationshipNoteMinInteractions = 5

type assessmentResponse struct {
	Urgent []struct {
		Description string `json:"description"`
		Rationale   string `json:"rationale"`
	} `json:"urgent"`
	Important []struct {
		Description string `json:"description"`
		Rationale   string `json:"rationale"`
	} `json:"important"`
	SocialNotes []struct {
		Person string `json:"person"`
		Note   string `json:"note"`
	} `json:"social_notes"`
}

// Assess classifies themes into urgent/important, derives social notes, and
// applies contact updates. Classification is deterministic; the single
// gateway call only enriches rationales and suggestions, so its failure
// degrades the stage without changing what is urgent. This is the only stage
// with persisted side effects besides the final insight.
func (p *Pipeline) Assess(ctx context.Context, themes []*Theme, memory *WorkingMemory) *PriorityAssessment {
	start := time.Now()
	defer p.recordStage("assessing", start)

	assessment := p.classify(themes, memory)

	if err := p.enrichAssessment(ctx, assessment); err != nil {
		slog.Warn("assessment: enrichment degraded",
			"user_id", memory.UserID,
			"error", err,
		)
		p.recordFallback("assessing")
		assessment.Degraded = true
	}

	p.updateContacts(ctx, memory)
	p.flagStaleContacts(ctx, memory.UserID, assessment)

	return assessment
}

// classify applies the deterministic rules: aggregate urgency >= 4 or an
// explicit deadline makes a theme urgent; moderate urgency or informational
// themes become important; reply_needed or Social records feed social notes.
func (p *Pipeline) classify(themes []*Theme, memory *WorkingMemory) *PriorityAssessment {
	assessment := &PriorityAssessment{}

	for _, theme := range themes {
		deadlines := themeDeadlines(theme, memory)
		item := ActionItem{
			Description: themeDescription(theme, memory),
			SourceTheme: theme.Label,
		}
		switch {
		case theme.AggregateUrgency >= urgentThemeThreshold:
			item.Rationale = fmt.Sprintf("urgency %d", theme.AggregateUrgency)
			if len(deadlines) > 0 {
				item.Rationale += "; deadline " + deadlines[0]
			}
			assessment.Urgent = append(assessment.Urgent, item)
		case len(deadlines) > 0:
			item.Rationale = "deadline " + deadlines[0]
			assessment.Urgent = append(assessment.Urgent, item)
		case theme.AggregateUrgency >= 2 || themeIsInformational(theme, memory):
			item.Rationale = "worth tracking"
			assessment.Important = append(assessment.Important, item)
		}
	}

	for _, r := range memory.Records {
		if !r.ReplyNeeded && r.Intent != IntentSocial {
			continue
		}
		person := displayPerson(r)
		if person == "" {
			continue
		}
		note := r.Summary
		if r.ReplyNeeded {
			note = "awaiting your reply: " + note
		}
		assessment.SocialNotes = append(assessment.SocialNotes, SocialNote{Person: person, Note: note})
	}

	return assessment
}

// enrichAssessment replaces deterministic rationales with model-written ones
// when the response parses and matches by description.
func (p *Pipeline) enrichAssessment(ctx context.Context, assessment *PriorityAssessment) error {
	if len(assessment.Urgent)+len(assessment.Important)+len(assessment.SocialNotes) == 0 {
		return nil
	}

	content, stats, err := p.gateway.Chat(ctx, []llm.Message{
		llm.SystemPrompt(assessmentSystemPrompt),
		llm.UserMessage(assessmentUserPrompt(assessment.Urgent, assessment.Important, assessment.SocialNotes)),
	})
	p.recordTokens(stats)
	if err != nil {
		return err
	}

	var resp assessmentResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &resp); err != nil {
		return err
	}

	for _, enriched := range resp.Urgent {
		for i := range assessment.Urgent {
			if assessment.Urgent[i].Description == enriched.Description && enriched.Rationale != "" {
				assessment.Urgent[i].Rationale = enriched.Rationale
			}
		}
	}
	for _, enriched := range resp.Important {
		for i := range assessment.Important {
			if assessment.Important[i].Description == enriched.Description && enriched.Rationale != "" {
				assessment.Important[i].Rationale = enriched.Rationale
			}
		}
	}
	for _, enriched := range resp.SocialNotes {
		for i := range assessment.SocialNotes {
			if assessment.SocialNotes[i].Person == enriched.Person && enriched.Note != "" {
				assessment.SocialNotes[i].Note = enriched.Note
			}
		}
	}
	return nil
}

// updateContacts folds this cycle's interactions into the contact store.
// Deltas are aggregated per email before applying so each contact key is
// written atomically once per cycle.
func (p *Pipeline) updateContacts(ctx context.Context, memory *WorkingMemory) {
	if p.store == nil {
		return
	}

	deltas := make(map[string]*store.ContactDelta)
	for _, r := range memory.Records {
		if !r.ReplyNeeded && r.Intent != IntentSocial && r.Intent != IntentQuestion {
			continue
		}
		for _, person := range r.Entities.People {
			email := strings.ToLower(strings.TrimSpace(person))
			if !strings.Contains(email, "@") {
				continue // only address-keyed people reach the contact store
			}
			delta, ok := deltas[email]
			if !ok {
				delta = &store.ContactDelta{
					Email: email,
					Name:  store.NameFromEmail(email),
				}
				deltas[email] = delta
			}
			delta.Interactions++
			if r.Timestamp.After(delta.OccurredAt) {
				delta.OccurredAt = r.Timestamp
			}
			delta.Topics = append(delta.Topics, contactTopics(r)...)
		}
	}

	for email, delta := range deltas {
		merged, err := p.store.ApplyContactDelta(ctx, memory.UserID, delta)
		if err != nil {
			slog.Error("assessment: contact upsert failed",
				"user_id", memory.UserID,
				"email", email,
				"error", err,
			)
			continue
		}
		p.maybeWriteRelationshipNote(ctx, memory.UserID, merged)
	}
}

// maybeWriteRelationshipNote asks the gateway for a one-line relationship
// summary once a contact accumulates enough interactions. Failure leaves the
// prior (empty) note; the next cycle retries.
func (p *Pipeline) maybeWriteRelationshipNote(ctx context.Context, userID string, contact *store.Contact) {
	if contact.InteractionCount < relationshipNoteMinInteractions || contact.RelationshipNote != "" {
		return
	}

	content, stats, err := p.gateway.Chat(ctx, []llm.Message{
		llm.SystemPrompt(relationshipNotePrompt),
		llm.UserMessage(fmt.Sprintf("%s, %d interactions, topics: %s",
			contact.Name, contact.InteractionCount, strings.Join(contact.RecentTopics, ", "))),
	})
	p.recordTokens(stats)
	if err != nil || strings.TrimSpace(content) == "" {
		return
	}

	_, err = p.store.ApplyContactDelta(ctx, userID, &store.ContactDelta{
		Email:            contact.Email,
		RelationshipNote: strings.TrimSpace(content),
	})
	if err != nil {
		slog.Error("assessment: relationship note write failed",
			"user_id", userID,
			"email", contact.Email,
			"error", err,
		)
	}
}

// flagStaleContacts appends "no contact in N days" notes for relationships
// going quiet, capped so the briefing stays short.
func (p *Pipeline) flagStaleContacts(ctx context.Context, userID string, assessment *PriorityAssessment) {
	if p.store == nil {
		return
	}

	staleBefore := time.Now().Add(-p.staleContactAfter)
	stale, err := p.store.ListContacts(ctx, &store.FindContact{
		UserID:      userID,
		StaleBefore: &staleBefore,
		Limit:       staleContactNoteCap,
	})
	if err != nil {
		slog.Error("assessment: stale contact lookup failed", "user_id", userID, "error", err)
		return
	}

	days := int(p.staleContactAfter.Hours() / 24)
	for _, c := range stale {
		assessment.SocialNotes = append(assessment.SocialNotes, SocialNote{
			Person: c.Name,
			Note:   fmt.Sprintf("no contact in %d+ days", days),
		})
	}
}

func themeDeadlines(theme *Theme, memory *WorkingMemory) []string {
	var out []string
	for _, id := range theme.MemberIDs {
		if r := memory.ByID(id); r != nil {
			out = append(out, r.Commitments.Deadlines...)
		}
	}
	return out
}

func themeIsInformational(theme *Theme, memory *WorkingMemory) bool {
	for _, id := range theme.MemberIDs {
		if r := memory.ByID(id); r != nil && r.Intent == IntentInformational {
			return true
		}
	}
	return false
}

// themeDescription picks the highest-urgency member's summary as the theme's
// working description.
func themeDescription(theme *Theme, memory *WorkingMemory) string {
	var best *StructuredRecord
	for _, id := range theme.MemberIDs {
		r := memory.ByID(id)
		if r == nil {
			continue
		}
		if best == nil || r.UrgencyScore > best.UrgencyScore {
			best = r
		}
	}
	if best == nil {
		return theme.Label
	}
	return best.Summary
}

// displayPerson returns a readable name for a record's first person entity.
func displayPerson(r *StructuredRecord) string {
	if len(r.Entities.People) == 0 {
		return ""
	}
	person := r.Entities.People[0]
	if strings.Contains(person, "@") {
		return store.NameFromEmail(person)
	}
	return person
}

// contactTopics derives topic strings for the contact merge: project entities
// when present, else a truncated summary.
func contactTopics(r *StructuredRecord) []string {
	if len(r.Entities.Projects) > 0 {
		return r.Entities.Projects
	}
	summary := r.Summary
	if len(summary) > 60 {
		summary = summary[:60]
	}
	if summary == "" {
		return nil
	}
	return []string{summary}
}
