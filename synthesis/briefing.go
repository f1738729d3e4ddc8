package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/store"
)

// briefingContent is the JSON object the generation call must return.
type briefingContent struct {
	TopPriorities []store.PriorityItem   `json:"top_priorities"`
	OnYourRadar   []store.RadarItem      `json:"on_your_radar"`
	Connections   []store.ConnectionItem `json:"connections"`
}

// Generate produces the final insight from the prior stages' structured
// outputs; raw records never reach this prompt. A parse failure triggers
// exactly one retry with a stricter instruction; a second failure yields a
// degraded insight with a deterministic plain-text body. The cycle always
// gets an insight back.
func (p *Pipeline) Generate(ctx context.Context, userID string, assessment *PriorityAssessment, notes []AlignmentNote, contacts []*store.Contact) *store.Insight {
	start := time.Now()
	defer p.recordStage("generating", start)

	insight := &store.Insight{
		ID:          uuid.NewString(),
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
		Status:      store.InsightStatusOK,
	}
	if assessment.Degraded {
		insight.Status = store.InsightStatusDegraded
	}

	userPrompt := briefingUserPrompt(assessment, notes, contacts)

	content, err := p.generateOnce(ctx, userPrompt, false)
	if err == nil {
		if parsed, perr := parseBriefing(content); perr == nil {
			applyBriefing(insight, parsed)
			return insight
		}
		slog.Warn("briefing: unparsable response, retrying once", "user_id", userID)
	}

	content, err = p.generateOnce(ctx, userPrompt, true)
	if err == nil {
		if parsed, perr := parseBriefing(content); perr == nil {
			applyBriefing(insight, parsed)
			return insight
		}
	}

	slog.Warn("briefing: falling back to plain-text body", "user_id", userID, "error", err)
	p.recordFallback("generating")
	insight.Status = store.InsightStatusDegraded
	insight.FallbackBody = fallbackBriefingBody(assessment, notes)
	return insight
}

func (p *Pipeline) generateOnce(ctx context.Context, userPrompt string, strict bool) (string, error) {
	system := briefingSystemPrompt
	if strict {
		system += "\n" + strictJSONReminder
	}
	content, stats, err := p.gateway.Chat(ctx, []llm.Message{
		llm.SystemPrompt(system),
		llm.UserMessage(userPrompt),
	})
	p.recordTokens(stats)
	return content, err
}

func parseBriefing(content string) (*briefingContent, error) {
	var parsed briefingContent
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.TopPriorities)+len(parsed.OnYourRadar)+len(parsed.Connections) == 0 {
		return nil, fmt.Errorf("briefing response carries no content")
	}
	return &parsed, nil
}

func applyBriefing(insight *store.Insight, parsed *briefingContent) {
	insight.TopPriorities = parsed.TopPriorities
	insight.OnYourRadar = parsed.OnYourRadar
	insight.Connections = parsed.Connections
}

// fallbackBriefingBody renders the assessment as plain text so the user still
// gets a briefing when structured generation fails twice.
func fallbackBriefingBody(assessment *PriorityAssessment, notes []AlignmentNote) string {
	var b strings.Builder
	b.WriteString("Briefing (plain-text fallback)\n")
	if len(assessment.Urgent) > 0 {
		b.WriteString("\nUrgent:\n")
		for _, item := range assessment.Urgent {
			fmt.Fprintf(&b, "- %s (%s)\n", item.Description, item.Rationale)
		}
	}
	if len(assessment.Important) > 0 {
		b.WriteString("\nImportant:\n")
		for _, item := range assessment.Important {
			fmt.Fprintf(&b, "- %s\n", item.Description)
		}
	}
	if len(assessment.SocialNotes) > 0 {
		b.WriteString("\nPeople:\n")
		for _, note := range assessment.SocialNotes {
			fmt.Fprintf(&b, "- %s: %s\n", note.Person, note.Note)
		}
	}
	if len(notes) > 0 {
		b.WriteString("\nGoals:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n.Note)
		}
	}
	if b.Len() == len("Briefing (plain-text fallback)\n") {
		b.WriteString("\nNo notable activity this cycle.\n")
	}
	return b.String()
}

// quietInsight is the briefing for a cycle whose sources all succeeded but
// produced no records, e.g. an empty inbox. No gateway call involved.
func quietInsight(userID string, degradedSources []string) *store.Insight {
	status := store.InsightStatusOK
	if len(degradedSources) > 0 {
		status = store.InsightStatusDegraded
	}
	return &store.Insight{
		ID:          uuid.NewString(),
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
		Status:      status,
		OnYourRadar: []store.RadarItem{{
			Title:   "No new activity",
			Context: "Nothing new came in since the last briefing.",
		}},
	}
}
