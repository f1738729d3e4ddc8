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

// AlignmentNote links an action item to a goal it advances.
type AlignmentNote struct {
	Action string
	GoalID string
	Note   string
}

// minAlignTokenLen filters trivial words out of the overlap check.
const minAlignTokenLen = 4

type alignmentResponse struct {
	Alignments []struct {
		Action string `json:"action"`
		GoalID string `json:"goal_id"`
		Note   string `json:"note"`
	} `json:"alignments"`
}

// Align cross-references action items against active goals by keyword
// overlap. Pure for the basic path; when overlap finds nothing and urgent
// work exists, one optional gateway call looks for semantic alignment. Its
// failure is silent. Goals are never mutated.
func (p *Pipeline) Align(ctx context.Context, assessment *PriorityAssessment, goals []*store.Goal) []AlignmentNote {
	start := time.Now()
	defer p.recordStage("aligning", start)

	actions := make([]ActionItem, 0, len(assessment.Urgent)+len(assessment.Important))
	actions = append(actions, assessment.Urgent...)
	actions = append(actions, assessment.Important...)
	if len(actions) == 0 || len(goals) == 0 {
		return nil
	}

	var notes []AlignmentNote
	for _, action := range actions {
		actionTokens := alignTokens(action.Description)
		for _, goal := range goals {
			if goal.Status != store.GoalStatusActive {
				continue
			}
			if overlaps(actionTokens, alignTokens(goal.Content)) {
				notes = append(notes, AlignmentNote{
					Action: action.Description,
					GoalID: goal.ID,
					Note:   fmt.Sprintf("%q advances %q", action.Description, goal.Content),
				})
			}
		}
	}

	if len(notes) == 0 && len(assessment.Urgent) > 0 {
		notes = p.alignViaGateway(ctx, actions, goals)
	}
	return notes
}

// alignViaGateway handles the inconclusive case with one model call. Anything
// short of a clean parse yields no notes.
func (p *Pipeline) alignViaGateway(ctx context.Context, actions []ActionItem, goals []*store.Goal) []AlignmentNote {
	content, stats, err := p.gateway.Chat(ctx, []llm.Message{
		llm.SystemPrompt(alignmentSystemPrompt),
		llm.UserMessage(alignmentUserPrompt(actions, goals)),
	})
	p.recordTokens(stats)
	if err != nil {
		slog.Debug("alignment: semantic pass skipped", "error", err)
		return nil
	}

	var resp alignmentResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &resp); err != nil {
		return nil
	}

	goalIDs := make(map[string]bool, len(goals))
	for _, g := range goals {
		goalIDs[g.ID] = true
	}

	var notes []AlignmentNote
	for _, a := range resp.Alignments {
		if !goalIDs[a.GoalID] || a.Action == "" {
			continue
		}
		note := a.Note
		if note == "" {
			note = fmt.Sprintf("%q advances goal %s", a.Action, a.GoalID)
		}
		notes = append(notes, AlignmentNote{Action: a.Action, GoalID: a.GoalID, Note: note})
	}
	return notes
}

// alignTokens lowercases and splits text, keeping only words long enough to
// carry meaning.
func alignTokens(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(word) >= minAlignTokenLen {
			tokens[word] = true
		}
	}
	return tokens
}

func overlaps(a, b map[string]bool) bool {
	for token := range a {
		if b[token] {
			return true
		}
	}
	return false
}
