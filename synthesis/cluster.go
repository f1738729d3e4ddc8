package synthesis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/daybrief/daybrief/ai/llm"
)

// MiscThemeLabel collects records with no natural grouping. Records are never
// dropped by clustering.
const MiscThemeLabel = "Miscellaneous"

// Theme is a derived, cycle-scoped cluster of related records.
type Theme struct {
	Label            string
	MemberIDs        []string
	AggregateUrgency int
	Entities         []string

	earliestMember time.Time
}

// clusteringResponse is the shape the grouping call must return.
type clusteringResponse struct {
	Themes []struct {
		Label     string   `json:"label"`
		RecordIDs []string `json:"record_ids"`
	} `json:"themes"`
}

// Cluster groups the snapshot into themes via a single gateway call. Every
// record ends up in exactly one theme. A malformed grouping response routes
// to the deterministic entity fallback; clustering never fails the cycle.
func (p *Pipeline) Cluster(ctx context.Context, memory *WorkingMemory) []*Theme {
	start := time.Now()
	defer p.recordStage("clustering", start)

	if memory.Empty() {
		return nil
	}

	assignment, err := p.clusterViaGateway(ctx, memory)
	if err != nil {
		slog.Warn("clustering: falling back to entity grouping",
			"user_id", memory.UserID,
			"error", err,
		)
		p.recordFallback("clustering")
		assignment = clusterByEntity(memory)
	}

	return buildThemes(memory, assignment)
}

// clusterViaGateway asks the model for a grouping and normalizes it into a
// record-id to label assignment. Any response that cannot be trusted as a
// full partition returns an error so the caller takes the fallback.
func (p *Pipeline) clusterViaGateway(ctx context.Context, memory *WorkingMemory) (map[string]string, error) {
	content, stats, err := p.gateway.Chat(ctx, []llm.Message{
		llm.SystemPrompt(clusteringSystemPrompt),
		llm.UserMessage(condensedRecordView(memory.Records)),
	})
	p.recordTokens(stats)
	if err != nil {
		return nil, err
	}

	var resp clusteringResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &resp); err != nil {
		return nil, err
	}

	assignment := make(map[string]string, len(memory.Records))
	for _, theme := range resp.Themes {
		label := theme.Label
		if label == "" {
			label = MiscThemeLabel
		}
		for _, id := range theme.RecordIDs {
			if memory.ByID(id) == nil {
				continue // hallucinated id
			}
			if _, dup := assignment[id]; dup {
				continue // first assignment wins
			}
			assignment[id] = label
		}
	}

	// Unassigned records land in Miscellaneous rather than being dropped.
	for _, r := range memory.Records {
		if _, ok := assignment[r.ID]; !ok {
			assignment[r.ID] = MiscThemeLabel
		}
	}
	return assignment, nil
}

// clusterByEntity is the deterministic degraded path: one theme per distinct
// top-level entity, Miscellaneous for records with none.
func clusterByEntity(memory *WorkingMemory) map[string]string {
	assignment := make(map[string]string, len(memory.Records))
	for _, r := range memory.Records {
		label := r.TopEntity()
		if label == "" {
			label = MiscThemeLabel
		}
		assignment[r.ID] = label
	}
	return assignment
}

// buildThemes materializes themes from an id-to-label assignment, computes
// aggregate urgency (max of members), and orders by urgency descending with
// ties broken by earliest member timestamp, then label.
func buildThemes(memory *WorkingMemory, assignment map[string]string) []*Theme {
	byLabel := make(map[string]*Theme)
	for _, r := range memory.Records {
		label := assignment[r.ID]
		theme, ok := byLabel[label]
		if !ok {
			theme = &Theme{Label: label, earliestMember: r.Timestamp}
			byLabel[label] = theme
		}
		theme.MemberIDs = append(theme.MemberIDs, r.ID)
		if r.UrgencyScore > theme.AggregateUrgency {
			theme.AggregateUrgency = r.UrgencyScore
		}
		if r.Timestamp.Before(theme.earliestMember) {
			theme.earliestMember = r.Timestamp
		}
		theme.Entities = appendUnique(theme.Entities, flattenEntities(r.Entities)...)
	}

	themes := make([]*Theme, 0, len(byLabel))
	for _, t := range byLabel {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].AggregateUrgency != themes[j].AggregateUrgency {
			return themes[i].AggregateUrgency > themes[j].AggregateUrgency
		}
		if !themes[i].earliestMember.Equal(themes[j].earliestMember) {
			return themes[i].earliestMember.Before(themes[j].earliestMember)
		}
		return themes[i].Label < themes[j].Label
	})
	return themes
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
